package viewport

import (
	"hangar-inspect/internal/calibration"
	"hangar-inspect/pkg/geometry"
)

// DrawTransform is the fully resolved position, size, and orientation at
// which a camera tile's image is rendered for one frame, after composing the
// contain-fit layout, live zoom/pan, and the calibration transform. It is
// consumed by the rendering surface and by the coordinate mapper.
type DrawTransform struct {
	CenterX         float64
	CenterY         float64
	Width           float64
	Height          float64
	RotationDegrees float64
	Flipped         bool
}

// Empty reports whether the transform has no drawable area.
func (t DrawTransform) Empty() bool {
	return t.Width <= 0 || t.Height <= 0
}

// Center returns the transform's center point in display coordinates.
func (t DrawTransform) Center() geometry.Point2D {
	return geometry.Point2D{X: t.CenterX, Y: t.CenterY}
}

// Axis-aligned reports whether the image can be drawn without a rotation
// context.
func (t DrawTransform) AxisAligned() bool {
	return t.RotationDegrees == 0 && !t.Flipped
}

// Compose combines the contain-fit layout, live zoom/pan, and the camera's
// calibration transform into one resolved draw transform.
//
// Pan is stored in a zoom-multiplied unit and divided by zoom here, so a drag
// of d screen pixels moves the rendered image by exactly d screen pixels at
// any zoom level (see ApplyPan). The calibration offset is converted through
// the device-independent scale factor and clamped to half the larger display
// dimension so a runaway stored offset can never push the image fully
// off-screen.
func Compose(layout DrawRect, displayWidth, displayHeight float64,
	zoom float64, pan geometry.Point2D, cal calibration.Transform) DrawTransform {

	if layout.Empty() || zoom <= 0 {
		return DrawTransform{}
	}

	scaledW := layout.Width * zoom
	scaledH := layout.Height * zoom

	base := layout.Center().Add(pan.Scale(1 / zoom))

	calScale := cal.Scale
	if calScale <= 0 {
		calScale = 1
	}

	sf := calibration.ScaleFactor(layout.Width, layout.Height)
	maxOffset := 0.5 * displayWidth
	if displayHeight > displayWidth {
		maxOffset = 0.5 * displayHeight
	}
	offX := clampAbs(cal.X*sf, maxOffset)
	offY := clampAbs(cal.Y*sf, maxOffset)

	return DrawTransform{
		CenterX:         base.X + offX,
		CenterY:         base.Y + offY,
		Width:           scaledW * calScale,
		Height:          scaledH * calScale,
		RotationDegrees: cal.Rotation,
		Flipped:         cal.Flipped,
	}
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
