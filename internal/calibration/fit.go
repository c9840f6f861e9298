package calibration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"hangar-inspect/pkg/geometry"
)

// SimilarityFit is a least-squares similarity transform (uniform scale,
// rotation, translation) estimated from point correspondences picked by the
// operator during a calibration session. Translation is in screen pixels.
type SimilarityFit struct {
	Scale           float64
	RotationDegrees float64
	TX              float64
	TY              float64
}

// FitSimilarity estimates the similarity transform mapping src points onto
// dst points. Requires at least 2 correspondences.
//
// The model is x' = a*x - b*y + tx, y' = b*x + a*y + ty, which is linear in
// (a, b, tx, ty) and therefore solvable as one least-squares system.
func FitSimilarity(src, dst []geometry.Point2D) (SimilarityFit, error) {
	n := len(src)
	if n != len(dst) {
		return SimilarityFit{}, fmt.Errorf("point count mismatch: %d vs %d", n, len(dst))
	}
	if n < 2 {
		return SimilarityFit{}, fmt.Errorf("need at least 2 points, got %d", n)
	}

	// Two rows per correspondence, unknowns (a, b, tx, ty).
	A := mat.NewDense(2*n, 4, nil)
	b := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y

		A.Set(2*i, 0, x)
		A.Set(2*i, 1, -y)
		A.Set(2*i, 2, 1)
		A.Set(2*i, 3, 0)
		b.SetVec(2*i, dst[i].X)

		A.Set(2*i+1, 0, y)
		A.Set(2*i+1, 1, x)
		A.Set(2*i+1, 2, 0)
		A.Set(2*i+1, 3, 1)
		b.SetVec(2*i+1, dst[i].Y)
	}

	var params mat.VecDense
	if err := params.SolveVec(A, b); err != nil {
		return SimilarityFit{}, fmt.Errorf("solving similarity system: %w", err)
	}

	a := params.AtVec(0)
	bb := params.AtVec(1)
	scale := math.Hypot(a, bb)
	if scale < 1e-10 {
		return SimilarityFit{}, fmt.Errorf("degenerate fit: zero scale")
	}

	return SimilarityFit{
		Scale:           scale,
		RotationDegrees: math.Atan2(bb, a) * 180 / math.Pi,
		TX:              params.AtVec(2),
		TY:              params.AtVec(3),
	}, nil
}

// Apply maps a point through the fitted similarity transform.
func (f SimilarityFit) Apply(p geometry.Point2D) geometry.Point2D {
	rad := f.RotationDegrees * math.Pi / 180
	a := f.Scale * math.Cos(rad)
	b := f.Scale * math.Sin(rad)
	return geometry.Point2D{
		X: a*p.X - b*p.Y + f.TX,
		Y: b*p.X + a*p.Y + f.TY,
	}
}

// ToTransform converts the fit into a calibration Transform, dividing the
// screen-pixel translation by the current scale factor so the stored offsets
// are viewport-independent. scaleFactor must come from ScaleFactor for the
// draw rectangle the correspondences were picked on.
func (f SimilarityFit) ToTransform(scaleFactor float64) (Transform, error) {
	if scaleFactor <= 0 {
		return Transform{}, fmt.Errorf("invalid scale factor %g", scaleFactor)
	}
	return Transform{
		X:        f.TX / scaleFactor,
		Y:        f.TY / scaleFactor,
		Scale:    f.Scale,
		Rotation: f.RotationDegrees,
	}, nil
}
