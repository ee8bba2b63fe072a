package algorithm

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// breakdownTolerance is the basis-vector norm below which the Krylov space
// is considered exhausted.
const breakdownTolerance = 1e-14

// Eigsh extracts the top k eigenpairs with a Lanczos iteration. The basis is
// kept orthonormal by full reorthogonalization, the projected tridiagonal
// problem is solved exactly, and Ritz pairs are accepted only when their
// residual bound passes the configured tolerance. A basis that hits the
// iteration limit without converging is reported as a failure, never as a
// silent approximation.
type Eigsh struct {
	tolerance float64
	maxIter   int
	seed      int64
}

// NewEigsh creates the Lanczos strategy.
func NewEigsh(opts Options) *Eigsh {
	opts = opts.withDefaults()
	return &Eigsh{
		tolerance: opts.Tolerance,
		maxIter:   opts.MaxIterations,
		seed:      opts.Seed,
	}
}

func (e *Eigsh) Name() string { return "eigsh" }

func (e *Eigsh) Run(b *mat.SymDense, k int) (*mat.Dense, []float64, error) {
	n := b.SymmetricDim()
	if k > n {
		k = n
	}

	limit := e.maxIter
	if limit > n {
		limit = n
	}
	if limit < k {
		limit = k
	}

	m := 2*k + 10
	if m > limit {
		m = limit
	}

	rng := rand.New(rand.NewSource(e.seed))
	for {
		vectors, values, converged, err := e.iterate(b, n, m, k, rng)
		if err != nil {
			return nil, nil, err
		}
		if converged {
			return vectors, values, nil
		}
		if m >= limit {
			return nil, nil, fmt.Errorf("eigsh: %w: no convergence with a %d-dimensional Krylov basis (tolerance %g)",
				ErrAlgorithmFailure, m, e.tolerance)
		}
		m *= 2
		if m > limit {
			m = limit
		}
	}
}

// iterate builds an m-step Krylov basis from a fresh random start and
// extracts Ritz pairs from the projected tridiagonal matrix.
func (e *Eigsh) iterate(b *mat.SymDense, n, m, k int, rng *rand.Rand) (*mat.Dense, []float64, bool, error) {
	basis := make([][]float64, 0, m)
	alphas := make([]float64, 0, m)
	betas := make([]float64, 0, m)

	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	floats.Scale(1/floats.Norm(v, 2), v)

	w := make([]float64, n)
	breakdown := false
	for j := 0; j < m; j++ {
		basis = append(basis, append([]float64(nil), v...))

		symMulVec(w, b, v)
		alpha := floats.Dot(w, basis[j])
		floats.AddScaled(w, -alpha, basis[j])
		if j > 0 {
			floats.AddScaled(w, -betas[j-1], basis[j-1])
		}
		// Full reorthogonalization keeps the basis orthonormal in floating
		// point; three-term recurrence alone drifts after a few steps.
		for _, u := range basis {
			floats.AddScaled(w, -floats.Dot(w, u), u)
		}
		alphas = append(alphas, alpha)

		beta := floats.Norm(w, 2)
		if beta < breakdownTolerance {
			// The Krylov space is invariant: Ritz pairs are exact.
			breakdown = true
			break
		}
		betas = append(betas, beta)
		for i := range v {
			v[i] = w[i] / beta
		}
	}

	used := len(alphas)
	t := mat.NewSymDense(used, nil)
	for i := 0; i < used; i++ {
		t.SetSym(i, i, alphas[i])
		if i < used-1 {
			t.SetSym(i, i+1, betas[i])
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(t, true); !ok {
		return nil, nil, false, fmt.Errorf("eigsh: %w: tridiagonal eigenproblem did not converge", ErrAlgorithmFailure)
	}
	thetas := es.Values(nil)
	var y mat.Dense
	es.VectorsTo(&y)

	kept := k
	if kept > used {
		kept = used
	}

	var lastBeta float64
	if !breakdown {
		lastBeta = betas[used-1]
	}

	vectors := mat.NewDense(n, k, nil)
	values := make([]float64, k)
	converged := true
	for col := 0; col < kept; col++ {
		src := used - 1 - col
		theta := thetas[src]
		values[col] = theta

		for row := 0; row < n; row++ {
			var sum float64
			for l := 0; l < used; l++ {
				sum += basis[l][row] * y.At(l, src)
			}
			vectors.Set(row, col, sum)
		}

		if !breakdown {
			residual := math.Abs(lastBeta * y.At(used-1, src))
			if residual > e.tolerance*math.Max(1, math.Abs(theta)) {
				converged = false
			}
		}
	}
	// A rank-deficient input exhausts the Krylov space before k directions;
	// the missing eigenvalues are exact zeros.
	for col := kept; col < k; col++ {
		values[col] = 0
	}
	return vectors, values, converged, nil
}
