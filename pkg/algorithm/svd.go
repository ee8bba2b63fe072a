package algorithm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SVD extracts eigenpairs through a singular value decomposition. For a
// symmetric matrix the singular values are the eigenvalue magnitudes and the
// left singular vectors are eigenvectors; the sign of each eigenvalue is
// recovered from uᵢ·vᵢ, which is ±1 for matching or opposing singular vector
// pairs.
type SVD struct{}

// NewSVD creates the SVD-backed strategy.
func NewSVD() *SVD {
	return &SVD{}
}

func (s *SVD) Name() string { return "svd" }

func (s *SVD) Run(b *mat.SymDense, k int) (*mat.Dense, []float64, error) {
	n := b.SymmetricDim()
	if k > n {
		k = n
	}

	var svd mat.SVD
	if ok := svd.Factorize(b, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("svd: %w: factorization did not converge", ErrAlgorithmFailure)
	}

	sigmas := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	values := make([]float64, n)
	vectors := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		var dot float64
		for row := 0; row < n; row++ {
			dot += u.At(row, i) * v.At(row, i)
		}
		values[i] = sigmas[i]
		if dot < 0 {
			values[i] = -sigmas[i]
		}
		for row := 0; row < n; row++ {
			vectors.Set(row, i, u.At(row, i))
		}
	}

	// Magnitude order becomes signed order once negatives are restored.
	sortedVecs, sortedVals := sortEigenpairs(vectors, values)

	outVecs := mat.NewDense(n, k, nil)
	outVals := make([]float64, k)
	for col := 0; col < k; col++ {
		outVals[col] = sortedVals[col]
		for row := 0; row < n; row++ {
			outVecs.Set(row, col, sortedVecs.At(row, col))
		}
	}
	return outVecs, outVals, nil
}
