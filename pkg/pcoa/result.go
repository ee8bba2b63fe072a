package pcoa

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/alenzhao/mds-approximations/pkg/distmat"
)

// Result is the output of one ordination run: eigenvalues sorted descending
// by signed value, the matching proportions explained, and an n×k coordinate
// matrix whose columns are eigenvectors scaled by √max(λ,0).
type Result struct {
	Algorithm   string     `json:"algorithm"`
	SampleIDs   []string   `json:"sample_ids"`
	Eigenvalues []float64  `json:"eigenvalues"`
	Proportions []float64  `json:"proportions"`
	Coordinates *mat.Dense `json:"-"`
}

// Dimensions returns the retained dimension count.
func (r *Result) Dimensions() int {
	return len(r.Eigenvalues)
}

// CoordinateRows returns the coordinates as one row slice per sample.
func (r *Result) CoordinateRows() [][]float64 {
	if r.Coordinates == nil {
		return nil
	}
	n, k := r.Coordinates.Dims()
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			rows[i][j] = r.Coordinates.At(i, j)
		}
	}
	return rows
}

// Stress computes Kruskal's stress-1 between the original distances and the
// distances the coordinates reproduce. Zero means a perfect embedding; the
// value is a diagnostic, never a gate.
func Stress(dm *distmat.DistanceMatrix, r *Result) float64 {
	if r.Coordinates == nil {
		return math.NaN()
	}

	n := dm.Len()
	k := r.Dimensions()
	var num, den float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			target := dm.Data.At(i, j)

			var d2 float64
			for c := 0; c < k; c++ {
				diff := r.Coordinates.At(i, c) - r.Coordinates.At(j, c)
				d2 += diff * diff
			}
			residual := math.Sqrt(d2) - target

			num += residual * residual
			den += target * target
		}
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}
