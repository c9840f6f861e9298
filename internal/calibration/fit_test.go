package calibration

import (
	"math"
	"testing"

	"hangar-inspect/pkg/geometry"
)

func TestFitSimilarityRecoversKnownTransform(t *testing.T) {
	want := SimilarityFit{Scale: 1.5, RotationDegrees: 30, TX: 40, TY: -12}

	src := []geometry.Point2D{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 80}, {X: 13, Y: 57},
	}
	dst := make([]geometry.Point2D, len(src))
	for i, p := range src {
		dst[i] = want.Apply(p)
	}

	got, err := FitSimilarity(src, dst)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if math.Abs(got.Scale-want.Scale) > 1e-9 {
		t.Errorf("scale: got %g, want %g", got.Scale, want.Scale)
	}
	if math.Abs(got.RotationDegrees-want.RotationDegrees) > 1e-9 {
		t.Errorf("rotation: got %g, want %g", got.RotationDegrees, want.RotationDegrees)
	}
	if math.Abs(got.TX-want.TX) > 1e-9 || math.Abs(got.TY-want.TY) > 1e-9 {
		t.Errorf("translation: got (%g,%g), want (%g,%g)", got.TX, got.TY, want.TX, want.TY)
	}
}

func TestFitSimilarityLeastSquaresResidual(t *testing.T) {
	// Noisy correspondences: the fit should still land near the true
	// transform and the residuals stay bounded by the noise.
	truth := SimilarityFit{Scale: 1.02, RotationDegrees: -2, TX: 5, TY: 3}
	noise := []geometry.Point2D{
		{X: 0.4, Y: -0.2}, {X: -0.3, Y: 0.1}, {X: 0.2, Y: 0.3}, {X: -0.1, Y: -0.4},
	}

	src := []geometry.Point2D{
		{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 200, Y: 150}, {X: 0, Y: 150},
	}
	dst := make([]geometry.Point2D, len(src))
	for i, p := range src {
		dst[i] = truth.Apply(p).Add(noise[i])
	}

	fit, err := FitSimilarity(src, dst)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	for i := range src {
		if d := fit.Apply(src[i]).Distance(dst[i]); d > 1.0 {
			t.Errorf("residual %d too large: %g", i, d)
		}
	}
}

func TestFitSimilarityErrors(t *testing.T) {
	one := []geometry.Point2D{{X: 1, Y: 1}}
	two := []geometry.Point2D{{X: 1, Y: 1}, {X: 2, Y: 2}}

	if _, err := FitSimilarity(one, one); err == nil {
		t.Error("one correspondence should error")
	}
	if _, err := FitSimilarity(two, one); err == nil {
		t.Error("count mismatch should error")
	}
}

func TestToTransform(t *testing.T) {
	fit := SimilarityFit{Scale: 1.1, RotationDegrees: 3, TX: 45, TY: -9}

	// Picked on a 600x450 draw rect: scale factor 0.45 converts the
	// screen-pixel translation into the stored offset unit.
	tr, err := fit.ToTransform(ScaleFactor(600, 450))
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if math.Abs(tr.X-100) > 1e-9 || math.Abs(tr.Y+20) > 1e-9 {
		t.Errorf("expected offsets (100,-20), got (%g,%g)", tr.X, tr.Y)
	}
	if tr.Scale != 1.1 || tr.Rotation != 3 {
		t.Errorf("scale/rotation not carried: %+v", tr)
	}

	if _, err := fit.ToTransform(0); err == nil {
		t.Error("zero scale factor should error")
	}
}
