// Package viewport implements the transform and coordinate-mapping engine
// behind each camera tile: contain-fit layout, zoom/pan composition with the
// calibration transform, pan bound clamping, and bidirectional mapping
// between screen, image-pixel, and normalized coordinates.
package viewport

import (
	"math"

	"hangar-inspect/pkg/geometry"
)

// DrawRect is the rectangle an image occupies inside a display area after a
// contain fit: aspect-preserving, centered. Offsets are relative to the
// display area's origin.
type DrawRect struct {
	Width   float64
	Height  float64
	OffsetX float64
	OffsetY float64
}

// Empty reports whether the rect is degenerate (no drawable area).
func (r DrawRect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the rect's center in display coordinates.
func (r DrawRect) Center() geometry.Point2D {
	return geometry.Point2D{X: r.OffsetX + r.Width/2, Y: r.OffsetY + r.Height/2}
}

// ResolveLayout computes the contain-fit draw rectangle for an image of the
// given natural size inside the given display area. Invalid inputs (zero,
// negative, or non-finite dimensions) yield a zero DrawRect; callers skip
// drawing and pointer mapping for that frame.
func ResolveLayout(imageWidth, imageHeight, displayWidth, displayHeight float64) DrawRect {
	if !validDim(imageWidth) || !validDim(imageHeight) ||
		!validDim(displayWidth) || !validDim(displayHeight) {
		return DrawRect{}
	}

	imageAspect := imageWidth / imageHeight
	displayAspect := displayWidth / displayHeight

	var r DrawRect
	if imageAspect > displayAspect {
		// Image is wider than the display: width fills, height derived.
		r.Width = displayWidth
		r.Height = displayWidth / imageAspect
	} else {
		// Image is taller (or equal): height fills, width derived.
		r.Height = displayHeight
		r.Width = displayHeight * imageAspect
	}
	r.OffsetX = (displayWidth - r.Width) / 2
	r.OffsetY = (displayHeight - r.Height) / 2
	return r
}

func validDim(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
