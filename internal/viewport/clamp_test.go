package viewport

import (
	"testing"

	"hangar-inspect/pkg/geometry"
)

func TestClampPanNativeFit(t *testing.T) {
	// No panning at or below native fit, whatever was stored.
	p := ClampPan(geometry.Point2D{X: 500, Y: -300}, 1.0, 800, 450)
	if p.X != 0 || p.Y != 0 {
		t.Fatalf("expected {0,0} at zoom 1, got %+v", p)
	}

	p = ClampPan(geometry.Point2D{X: 10, Y: 10}, 0.5, 800, 450)
	if p.X != 0 || p.Y != 0 {
		t.Fatalf("expected {0,0} below zoom 1, got %+v", p)
	}
}

func TestClampPanBounds(t *testing.T) {
	// At zoom 2 on 800x450 the stored bound is (800*2-800)/2*2 = 800
	// horizontally and (450*2-450)/2*2 = 450 vertically.
	p := ClampPan(geometry.Point2D{X: 5000, Y: -5000}, 2.0, 800, 450)
	if p.X != 800 {
		t.Errorf("expected X clamped to 800, got %g", p.X)
	}
	if p.Y != -450 {
		t.Errorf("expected Y clamped to -450, got %g", p.Y)
	}
}

func TestClampPanWithinBounds(t *testing.T) {
	in := geometry.Point2D{X: 120, Y: -80}
	out := ClampPan(in, 2.0, 800, 450)
	if out != in {
		t.Errorf("in-bounds pan should pass through, got %+v", out)
	}
}

func TestClampPanBoundsGrowWithZoom(t *testing.T) {
	prev := 0.0
	for _, zoom := range []float64{1.25, 2, 4, 8, 10} {
		p := ClampPan(geometry.Point2D{X: 1e9}, zoom, 800, 450)
		if p.X <= prev {
			t.Fatalf("bound at zoom %g (%g) not greater than previous (%g)", zoom, p.X, prev)
		}
		prev = p.X
	}
}
