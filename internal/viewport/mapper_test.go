package viewport

import (
	"math"
	"testing"

	"hangar-inspect/pkg/geometry"
)

const (
	testImageW = 4000.0
	testImageH = 3000.0
)

// centered 600x450 render of the 4000x3000 test image.
func testTransform() DrawTransform {
	return DrawTransform{CenterX: 400, CenterY: 225, Width: 600, Height: 450}
}

func TestImageToScreenCenter(t *testing.T) {
	p, ok := ImageToScreen(testTransform(), testImageW, testImageH,
		geometry.Point2D{X: 2000, Y: 1500})
	if !ok {
		t.Fatal("mapping failed")
	}
	if math.Abs(p.X-400) > 1e-9 || math.Abs(p.Y-225) > 1e-9 {
		t.Errorf("image center should land on draw center, got (%g,%g)", p.X, p.Y)
	}
}

func TestImageToScreenCorner(t *testing.T) {
	p, ok := ImageToScreen(testTransform(), testImageW, testImageH, geometry.Point2D{})
	if !ok {
		t.Fatal("mapping failed")
	}
	if math.Abs(p.X-100) > 1e-9 || math.Abs(p.Y-0) > 1e-9 {
		t.Errorf("expected top-left at (100,0), got (%g,%g)", p.X, p.Y)
	}
}

func TestImageToScreenFlipped(t *testing.T) {
	tr := testTransform()
	tr.Flipped = true

	p, ok := ImageToScreen(tr, testImageW, testImageH, geometry.Point2D{})
	if !ok {
		t.Fatal("mapping failed")
	}
	// Mirroring about the vertical axis sends the left edge to the right.
	if math.Abs(p.X-700) > 1e-9 || math.Abs(p.Y-0) > 1e-9 {
		t.Errorf("expected flipped top-left at (700,0), got (%g,%g)", p.X, p.Y)
	}
}

func TestScreenToImageNormalized(t *testing.T) {
	ip, ok := ScreenToImage(testTransform(), testImageW, testImageH,
		geometry.Point2D{X: 400, Y: 225})
	if !ok {
		t.Fatal("mapping failed")
	}
	if math.Abs(ip.Normalized.X-0.5) > 1e-9 || math.Abs(ip.Normalized.Y-0.5) > 1e-9 {
		t.Errorf("draw center should be normalized (0.5,0.5), got %+v", ip.Normalized)
	}
	if math.Abs(ip.Pixel.X-2000) > 1e-9 || math.Abs(ip.Pixel.Y-1500) > 1e-9 {
		t.Errorf("draw center should be pixel (2000,1500), got %+v", ip.Pixel)
	}
}

func TestRoundTripUnderRotationAndFlip(t *testing.T) {
	tr := testTransform()
	tr.RotationDegrees = 17
	tr.Flipped = true

	points := []geometry.Point2D{
		{X: 0, Y: 0},
		{X: testImageW, Y: testImageH},
		{X: 123.5, Y: 2870.25},
		{X: 3999, Y: 1},
	}
	for _, src := range points {
		screen, ok := ImageToScreen(tr, testImageW, testImageH, src)
		if !ok {
			t.Fatalf("forward mapping failed for %+v", src)
		}
		back, ok := ScreenToImage(tr, testImageW, testImageH, screen)
		if !ok {
			t.Fatalf("inverse mapping failed for %+v", src)
		}
		if src.Distance(back.Pixel) > 1e-6 {
			t.Errorf("round trip drifted: %+v -> %+v", src, back.Pixel)
		}
	}
}

func TestScreenToImageOutsideImage(t *testing.T) {
	// Points in the letterbox bands map outside [0,1]; callers decide
	// whether to reject them.
	ip, ok := ScreenToImage(testTransform(), testImageW, testImageH,
		geometry.Point2D{X: 10, Y: 225})
	if !ok {
		t.Fatal("mapping failed")
	}
	if ip.Normalized.X >= 0 {
		t.Errorf("expected negative normalized X in letterbox band, got %g", ip.Normalized.X)
	}
}

func TestMappingDegenerate(t *testing.T) {
	if _, ok := ImageToScreen(DrawTransform{}, testImageW, testImageH, geometry.Point2D{}); ok {
		t.Error("empty transform must not map")
	}
	if _, ok := ScreenToImage(testTransform(), 0, testImageH, geometry.Point2D{}); ok {
		t.Error("zero image width must not map")
	}
}

func TestNormalizedRectToScreen(t *testing.T) {
	r := NormalizedRectToScreen(testTransform(), testImageW, testImageH,
		geometry.Rect{X: 0, Y: 0, Width: 1, Height: 1})

	if math.Abs(r.X-100) > 1e-9 || math.Abs(r.Y-0) > 1e-9 ||
		math.Abs(r.Width-600) > 1e-9 || math.Abs(r.Height-450) > 1e-9 {
		t.Errorf("full rect should cover the draw rect, got %+v", r)
	}
}

func TestNormalizedRectToScreenRotatedBounds(t *testing.T) {
	tr := testTransform()
	tr.RotationDegrees = 45

	aligned := NormalizedRectToScreen(testTransform(), testImageW, testImageH,
		geometry.Rect{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.2})
	rotated := NormalizedRectToScreen(tr, testImageW, testImageH,
		geometry.Rect{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.2})

	// The bounding box of the rotated corners is wider than the aligned one.
	if rotated.Width <= aligned.Width {
		t.Errorf("rotated bounds (%g) should exceed aligned width (%g)",
			rotated.Width, aligned.Width)
	}
	c1, c2 := aligned.Center(), rotated.Center()
	if c1.Distance(c2) > 1e-6 {
		t.Errorf("rotation about the center moved the box center: %+v vs %+v", c1, c2)
	}
}
