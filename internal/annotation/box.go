// Package annotation owns validation boxes: the two-point creation protocol,
// hit-testing against the resolved draw transform, and the per-task
// validated-box sets that gate a pass decision.
package annotation

import (
	"hangar-inspect/pkg/geometry"
)

// MinBoxPixels is the minimum width and height, at the image's native
// resolution, a box must span to be accepted at creation time.
const MinBoxPixels = 10.0

// ValidationBox is a labeled rectangular region an inspector must
// acknowledge before the owning task can be marked passed. Geometry is
// stored normalized to [0,1] of the image dimensions so it is independent of
// capture resolution; the pixel fields mirror the geometry at the resolution
// the box was drawn on, kept for older report tooling.
type ValidationBox struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	PixelX      float64 `json:"pixelX,omitempty"`
	PixelY      float64 `json:"pixelY,omitempty"`
	PixelWidth  float64 `json:"pixelWidth,omitempty"`
	PixelHeight float64 `json:"pixelHeight,omitempty"`
}

// NormalizedRect returns the box geometry as a normalized rectangle.
func (b ValidationBox) NormalizedRect() geometry.Rect {
	return geometry.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// Valid reports whether the normalized geometry is well-formed: within
// [0,1] on both axes and with positive area.
func (b ValidationBox) Valid() bool {
	return b.X >= 0 && b.Y >= 0 &&
		b.Width > 0 && b.Height > 0 &&
		b.X+b.Width <= 1 && b.Y+b.Height <= 1
}
