package distmat

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// symmetryTolerance bounds the allowed drift between d(i,j) and d(j,i).
const symmetryTolerance = 1e-9

// DistanceMatrix pairs an n×n symmetric dissimilarity matrix with the
// sample identifiers naming its rows and columns.
type DistanceMatrix struct {
	IDs  []string
	Data *mat.SymDense
}

// NewDistanceMatrix builds a DistanceMatrix from row-major values and
// validates the distance invariants: square shape, unique non-empty labels,
// zero diagonal, symmetry within tolerance and finite non-negative entries.
func NewDistanceMatrix(ids []string, values [][]float64) (*DistanceMatrix, error) {
	n := len(ids)
	if n < 2 {
		return nil, fmt.Errorf("distance matrix needs at least 2 samples, got %d", n)
	}
	if len(values) != n {
		return nil, fmt.Errorf("expected %d rows, got %d", n, len(values))
	}

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("empty sample identifier")
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate sample identifier %q", id)
		}
		seen[id] = true
	}

	for i := 0; i < n; i++ {
		if len(values[i]) != n {
			return nil, fmt.Errorf("row %q: expected %d values, got %d", ids[i], n, len(values[i]))
		}
		for j := 0; j < n; j++ {
			v := values[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %q column %q: non-finite distance", ids[i], ids[j])
			}
			if v < 0 {
				return nil, fmt.Errorf("row %q column %q: negative distance %g", ids[i], ids[j], v)
			}
		}
		if values[i][i] > symmetryTolerance {
			return nil, fmt.Errorf("row %q: diagonal must be zero, got %g", ids[i], values[i][i])
		}
	}

	data := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(values[i][j]-values[j][i]) > symmetryTolerance {
				return nil, fmt.Errorf("asymmetric entries for %q/%q: %g vs %g",
					ids[i], ids[j], values[i][j], values[j][i])
			}
			data.SetSym(i, j, values[i][j])
		}
	}

	return &DistanceMatrix{IDs: ids, Data: data}, nil
}

// Len returns the number of samples.
func (dm *DistanceMatrix) Len() int {
	return len(dm.IDs)
}
