package viewport

import (
	"hangar-inspect/pkg/geometry"
)

// ClampPan restricts a pan offset to the range that keeps the zoomed image
// within the viewport. At or below native fit (zoom <= 1) no panning is
// permitted and the result is always {0,0}.
//
// The overhang per axis is (viewportSize*zoom - viewportSize)/2 screen
// pixels; because pan is stored in the zoom-multiplied unit (divided by zoom
// when composing, see Compose), the permitted stored range is ±overhang*zoom.
// Must be invoked after every zoom or pan mutation, including wheel steps,
// drag updates, and window resizes.
func ClampPan(pan geometry.Point2D, zoom, viewportWidth, viewportHeight float64) geometry.Point2D {
	if zoom <= 1 {
		return geometry.Point2D{}
	}

	boundX := (viewportWidth*zoom - viewportWidth) / 2 * zoom
	boundY := (viewportHeight*zoom - viewportHeight) / 2 * zoom

	return geometry.Point2D{
		X: clampAbs(pan.X, boundX),
		Y: clampAbs(pan.Y, boundY),
	}
}
