package viewport

import (
	"math"

	"hangar-inspect/pkg/geometry"
)

// ImagePoint is a pointer position expressed in the two canonical image
// spaces: raw image pixels and normalized [0,1] fractions of the image size.
// Normalized coordinates are the storage format for annotation geometry
// because they survive resolution changes between capture sessions.
type ImagePoint struct {
	Pixel      geometry.Point2D
	Normalized geometry.Point2D
}

// forwardMatrix builds the affine transform that maps image-pixel
// coordinates to display coordinates under the resolved draw transform.
// The chain is: center the image, scale to the drawn size, mirror if
// flipped, rotate, translate to the calibrated center.
func forwardMatrix(t DrawTransform, imageWidth, imageHeight float64) (geometry.AffineTransform, bool) {
	if t.Empty() || imageWidth <= 0 || imageHeight <= 0 {
		return geometry.AffineTransform{}, false
	}

	m := geometry.Translation(-imageWidth/2, -imageHeight/2)
	m = geometry.Scale(t.Width/imageWidth, t.Height/imageHeight).Compose(m)
	if t.Flipped {
		m = geometry.Scale(-1, 1).Compose(m)
	}
	if t.RotationDegrees != 0 {
		m = geometry.Rotation(t.RotationDegrees * math.Pi / 180).Compose(m)
	}
	m = geometry.Translation(t.CenterX, t.CenterY).Compose(m)
	return m, true
}

// ForwardMatrix exposes the image-to-screen affine for renderers that map
// many points per frame.
func ForwardMatrix(t DrawTransform, imageWidth, imageHeight float64) (geometry.AffineTransform, bool) {
	return forwardMatrix(t, imageWidth, imageHeight)
}

// InverseMatrix exposes the screen-to-image affine for renderers that
// inverse-sample the source image per output pixel.
func InverseMatrix(t DrawTransform, imageWidth, imageHeight float64) (geometry.AffineTransform, bool) {
	m, ok := forwardMatrix(t, imageWidth, imageHeight)
	if !ok {
		return geometry.AffineTransform{}, false
	}
	return m.Inverse()
}

// ImageToScreen maps an image-pixel point to display coordinates under the
// resolved transform. Returns false for a degenerate transform or image.
func ImageToScreen(t DrawTransform, imageWidth, imageHeight float64, p geometry.Point2D) (geometry.Point2D, bool) {
	m, ok := forwardMatrix(t, imageWidth, imageHeight)
	if !ok {
		return geometry.Point2D{}, false
	}
	return m.Apply(p), true
}

// ScreenToImage maps a pointer position in display coordinates back to
// image-pixel and normalized coordinates by inverting the forward chain.
// Returns false for a degenerate transform or image.
func ScreenToImage(t DrawTransform, imageWidth, imageHeight float64, screen geometry.Point2D) (ImagePoint, bool) {
	m, ok := forwardMatrix(t, imageWidth, imageHeight)
	if !ok {
		return ImagePoint{}, false
	}
	inv, ok := m.Inverse()
	if !ok {
		return ImagePoint{}, false
	}

	px := inv.Apply(screen)
	return ImagePoint{
		Pixel: px,
		Normalized: geometry.Point2D{
			X: px.X / imageWidth,
			Y: px.Y / imageHeight,
		},
	}, true
}

// NormalizedRectToScreen maps a normalized [0,1] rectangle to its on-screen
// axis-aligned bounding rectangle under the resolved transform. When the
// transform carries rotation the result bounds the rotated corners, which is
// what hit-testing checks against. Returns an empty rect on degenerate
// input.
func NormalizedRectToScreen(t DrawTransform, imageWidth, imageHeight float64, r geometry.Rect) geometry.Rect {
	m, ok := forwardMatrix(t, imageWidth, imageHeight)
	if !ok {
		return geometry.Rect{}
	}

	corners := []geometry.Point2D{
		{X: r.X * imageWidth, Y: r.Y * imageHeight},
		{X: (r.X + r.Width) * imageWidth, Y: r.Y * imageHeight},
		{X: (r.X + r.Width) * imageWidth, Y: (r.Y + r.Height) * imageHeight},
		{X: r.X * imageWidth, Y: (r.Y + r.Height) * imageHeight},
	}
	for i := range corners {
		corners[i] = m.Apply(corners[i])
	}
	return geometry.BoundingBox(corners)
}
