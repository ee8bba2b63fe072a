package algorithm

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// FSVD approximates the top eigenpairs with randomized subspace iteration:
// a Gaussian sketch of B is refined by power iterations, orthonormalized,
// and the small projected problem QᵀBQ is solved exactly. Randomized with
// high accuracy when the spectrum decays; cost O(n²·(k+p)).
type FSVD struct {
	oversampling int
	powerIters   int
	seed         int64
}

// NewFSVD creates the randomized sketch strategy.
func NewFSVD(opts Options) *FSVD {
	opts = opts.withDefaults()
	return &FSVD{
		oversampling: opts.Oversampling,
		powerIters:   opts.PowerIterations,
		seed:         opts.Seed,
	}
}

func (f *FSVD) Name() string { return "fsvd" }

func (f *FSVD) Run(b *mat.SymDense, k int) (*mat.Dense, []float64, error) {
	n := b.SymmetricDim()
	if k > n {
		k = n
	}

	p := k + f.oversampling
	if p > n {
		p = n
	}

	rng := rand.New(rand.NewSource(f.seed))
	sketch := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			sketch.Set(i, j, rng.NormFloat64())
		}
	}

	// Y = B^(q+1)·Ω with re-orthonormalization between powers so the columns
	// do not all collapse onto the dominant eigenvector.
	var y mat.Dense
	y.Mul(b, sketch)
	for it := 0; it < f.powerIters; it++ {
		q := orthonormalize(&y)
		y.Mul(b, q)
	}
	q := orthonormalize(&y)

	// Projected problem T = QᵀBQ, symmetrized against roundoff.
	var bq mat.Dense
	bq.Mul(b, q)
	var t mat.Dense
	t.Mul(q.T(), &bq)

	tSym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			tSym.SetSym(i, j, 0.5*(t.At(i, j)+t.At(j, i)))
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(tSym, true); !ok {
		return nil, nil, fmt.Errorf("fsvd: %w: projected eigenproblem did not converge", ErrAlgorithmFailure)
	}
	thetas := es.Values(nil)
	var w mat.Dense
	es.VectorsTo(&w)

	// Lift back: U = Q·W, top k by signed value.
	var lifted mat.Dense
	lifted.Mul(q, &w)

	vectors := mat.NewDense(n, k, nil)
	values := make([]float64, k)
	for col := 0; col < k; col++ {
		src := p - 1 - col
		values[col] = thetas[src]
		for row := 0; row < n; row++ {
			vectors.Set(row, col, lifted.At(row, src))
		}
	}
	return vectors, values, nil
}
