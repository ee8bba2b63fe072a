package algorithm

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// stressEpsilon is the relative stress improvement below which the gradient
// descent is considered converged.
const stressEpsilon = 1e-7

// SCMDS refines a random k-dimensional embedding by stochastic gradient
// descent on pairwise stress, then converts the converged embedding back to
// spectral form through a thin SVD. Target distances are recovered from the
// Gram identity d²(i,j) = b[i][i] + b[j][j] − 2·b[i][j], so the strategy
// consumes the same centered matrix as the others. Cost O(n·s·k) per epoch.
type SCMDS struct {
	epochs       int
	learningRate float64
	sampleSize   int
	seed         int64
}

// NewSCMDS creates the stochastic refinement strategy.
func NewSCMDS(opts Options) *SCMDS {
	opts = opts.withDefaults()
	return &SCMDS{
		epochs:       opts.Epochs,
		learningRate: opts.LearningRate,
		sampleSize:   opts.SampleSize,
		seed:         opts.Seed,
	}
}

func (s *SCMDS) Name() string { return "scmds" }

func (s *SCMDS) Run(b *mat.SymDense, k int) (*mat.Dense, []float64, error) {
	n := b.SymmetricDim()
	if k > n {
		k = n
	}

	dist := targetDistances(b)

	rng := rand.New(rand.NewSource(s.seed))
	x := make([][]float64, n)
	for i := range x {
		x[i] = make([]float64, k)
		for d := range x[i] {
			x[i][d] = rng.NormFloat64() * 0.1
		}
	}

	sample := s.sampleSize
	if sample >= n {
		sample = n - 1
	}
	if sample < 1 {
		sample = 1
	}

	diff := make([]float64, k)
	lr := s.learningRate
	prevStress := math.Inf(1)
	for epoch := 0; epoch < s.epochs; epoch++ {
		for i := 0; i < n; i++ {
			for c := 0; c < sample; c++ {
				j := rng.Intn(n)
				if j == i {
					continue
				}

				var dEmb float64
				for d := 0; d < k; d++ {
					diff[d] = x[i][d] - x[j][d]
					dEmb += diff[d] * diff[d]
				}
				dEmb = math.Sqrt(dEmb)
				if dEmb < 1e-9 {
					continue
				}

				// Move both endpoints half a step along the residual.
				coef := 0.5 * lr * (dEmb - dist[i][j]) / dEmb
				for d := 0; d < k; d++ {
					step := coef * diff[d]
					x[i][d] -= step
					x[j][d] += step
				}
			}
		}

		stress := embeddingStress(dist, x)
		if math.IsNaN(stress) || math.IsInf(stress, 0) {
			return nil, nil, fmt.Errorf("scmds: %w: stress diverged at epoch %d (learning rate %g)",
				ErrAlgorithmFailure, epoch, s.learningRate)
		}
		if math.Abs(prevStress-stress) < stressEpsilon*math.Max(stress, 1) {
			break
		}
		prevStress = stress
		lr *= 0.99
	}

	return embeddingToSpectral(x, n, k)
}

// targetDistances converts the centered Gram matrix back to the pairwise
// distances the embedding must reproduce.
func targetDistances(b *mat.SymDense) [][]float64 {
	n := b.SymmetricDim()
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			d2 := b.At(i, i) + b.At(j, j) - 2*b.At(i, j)
			if d2 < 0 {
				d2 = 0
			}
			dist[i][j] = math.Sqrt(d2)
		}
	}
	return dist
}

// embeddingStress computes Kruskal's stress-1 for the current configuration.
func embeddingStress(dist [][]float64, x [][]float64) float64 {
	n := len(x)
	var num, den float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var d2 float64
			for d := range x[i] {
				delta := x[i][d] - x[j][d]
				d2 += delta * delta
			}
			residual := math.Sqrt(d2) - dist[i][j]
			num += residual * residual
			den += dist[i][j] * dist[i][j]
		}
	}
	if den == 0 {
		return 0
	}
	return math.Sqrt(num / den)
}

// embeddingToSpectral centers the embedding and recovers eigenpairs from its
// thin SVD: left singular vectors become eigenvectors and λᵢ = σᵢ².
func embeddingToSpectral(x [][]float64, n, k int) (*mat.Dense, []float64, error) {
	centered := mat.NewDense(n, k, nil)
	for d := 0; d < k; d++ {
		var mean float64
		for i := 0; i < n; i++ {
			mean += x[i][d]
		}
		mean /= float64(n)
		for i := 0; i < n; i++ {
			centered.Set(i, d, x[i][d]-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, nil, fmt.Errorf("scmds: %w: embedding factorization did not converge", ErrAlgorithmFailure)
	}
	sigmas := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)

	vectors := mat.NewDense(n, k, nil)
	values := make([]float64, k)
	for col := 0; col < k && col < len(sigmas); col++ {
		values[col] = sigmas[col] * sigmas[col]
		for row := 0; row < n; row++ {
			vectors.Set(row, col, u.At(row, col))
		}
	}
	return vectors, values, nil
}
