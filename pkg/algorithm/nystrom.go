package algorithm

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// pseudoInverseTolerance guards the division by landmark eigenvalues when
// extending eigenvectors to the full point set.
const pseudoInverseTolerance = 1e-12

// Nystrom approximates the eigensystem from a subset of m landmark rows.
// The m×m landmark problem is solved exactly, eigenvalues are rescaled by
// n/m, and eigenvectors are extended to all points through the sampled
// columns. Cost O(m²·n) instead of O(n³).
type Nystrom struct {
	landmarks int
	seed      int64
}

// NewNystrom creates the landmark sampling strategy.
func NewNystrom(opts Options) *Nystrom {
	opts = opts.withDefaults()
	return &Nystrom{
		landmarks: opts.Landmarks,
		seed:      opts.Seed,
	}
}

func (ny *Nystrom) Name() string { return "nystrom" }

func (ny *Nystrom) Run(b *mat.SymDense, k int) (*mat.Dense, []float64, error) {
	n := b.SymmetricDim()
	if k > n {
		k = n
	}

	m := ny.landmarks
	if m <= 0 {
		m = 4 * k
		if m < 20 {
			m = 20
		}
	}
	if m > n {
		m = n
	}
	if m < k {
		m = k
	}

	rng := rand.New(rand.NewSource(ny.seed))
	perm := rng.Perm(n)
	landmarks := append([]int(nil), perm[:m]...)
	sort.Ints(landmarks)

	// W = B[S,S] on the landmark set, C = B[:,S] against all points.
	w := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			w.SetSym(i, j, b.At(landmarks[i], landmarks[j]))
		}
	}
	c := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			c.Set(i, j, b.At(i, landmarks[j]))
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(w, true); !ok {
		return nil, nil, fmt.Errorf("nystrom: %w: landmark eigenproblem did not converge", ErrAlgorithmFailure)
	}
	thetas := es.Values(nil)
	var u mat.Dense
	es.VectorsTo(&u)

	scale := float64(n) / float64(m)
	vectors := mat.NewDense(n, k, nil)
	values := make([]float64, k)
	extended := make([]float64, n)
	for col := 0; col < k; col++ {
		src := m - 1 - col
		theta := thetas[src]
		values[col] = scale * theta

		// Near-zero landmark eigenvalues mark directions outside the sampled
		// range; extending through them would divide by noise, so the column
		// stays zero.
		if math.Abs(theta) < pseudoInverseTolerance {
			continue
		}

		var norm float64
		for row := 0; row < n; row++ {
			var sum float64
			for l := 0; l < m; l++ {
				sum += c.At(row, l) * u.At(l, src)
			}
			ext := sum / theta
			extended[row] = ext
			norm += ext * ext
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		for row := 0; row < n; row++ {
			vectors.Set(row, col, extended[row]/norm)
		}
	}
	return vectors, values, nil
}
