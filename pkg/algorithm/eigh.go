package algorithm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Eigh runs the full dense symmetric eigendecomposition and keeps the top k
// eigenpairs by signed eigenvalue. Exact, O(n³), the reference the other
// strategies are judged against.
type Eigh struct{}

// NewEigh creates the exact dense strategy.
func NewEigh() *Eigh {
	return &Eigh{}
}

func (e *Eigh) Name() string { return "eigh" }

func (e *Eigh) Run(b *mat.SymDense, k int) (*mat.Dense, []float64, error) {
	n := b.SymmetricDim()
	if k > n {
		k = n
	}

	var es mat.EigenSym
	if ok := es.Factorize(b, true); !ok {
		return nil, nil, fmt.Errorf("eigh: %w: factorization did not converge", ErrAlgorithmFailure)
	}

	// EigenSym reports eigenvalues in ascending order.
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	outVecs := mat.NewDense(n, k, nil)
	outVals := make([]float64, k)
	for col := 0; col < k; col++ {
		src := n - 1 - col
		outVals[col] = values[src]
		for row := 0; row < n; row++ {
			outVecs.Set(row, col, vectors.At(row, src))
		}
	}
	return outVecs, outVals, nil
}
