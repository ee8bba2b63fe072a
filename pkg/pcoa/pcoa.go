package pcoa

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/distmat"
)

// ErrInvalidDimension reports a dimension request or matrix size outside the
// valid range.
var ErrInvalidDimension = errors.New("invalid dimension")

// Pipeline turns a distance matrix and an eigendecomposition strategy into
// an ordination result. The pipeline owns everything around the strategy:
// centering, validation of the returned eigenpairs, ordering, sign
// convention, coordinate scaling and proportions explained.
type Pipeline struct {
	logger zerolog.Logger
}

// NewPipeline creates a pipeline logging through the configured logger.
func NewPipeline(cfg *Config) *Pipeline {
	return &Pipeline{logger: cfg.CreateLogger()}
}

// Transform runs one ordination: center the distances, delegate the
// eigenproblem to alg, post-process into coordinates. A request for more
// dimensions than the matrix supports is clamped to n-1 with a warning; an
// invalid matrix or dimension count is an error before any numeric work
// starts.
func (p *Pipeline) Transform(dm *distmat.DistanceMatrix, alg algorithm.Algorithm, k int) (*Result, error) {
	n := dm.Len()
	if n < 2 {
		return nil, fmt.Errorf("%w: distance matrix has %d samples, need at least 2", ErrInvalidDimension, n)
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: requested %d dimensions, need at least 1", ErrInvalidDimension, k)
	}
	if k > n-1 {
		p.logger.Warn().
			Int("requested", k).
			Int("clamped", n-1).
			Msg("Dimension request exceeds matrix rank, clamping")
		k = n - 1
	}

	start := time.Now()
	b := CenterDistanceMatrix(dm.Data)

	vectors, values, err := alg.Run(b, k)
	if err != nil {
		return nil, fmt.Errorf("algorithm %s: %w", alg.Name(), err)
	}

	rows, cols := vectors.Dims()
	if rows != n || cols != k || len(values) != k {
		return nil, fmt.Errorf("algorithm %s: %w: returned %dx%d vectors and %d values for n=%d k=%d",
			alg.Name(), algorithm.ErrAlgorithmFailure, rows, cols, len(values), n, k)
	}
	if !finiteEigenpairs(values, vectors) {
		return nil, fmt.Errorf("algorithm %s: %w: non-finite eigenpairs", alg.Name(), algorithm.ErrAlgorithmFailure)
	}

	sortEigenpairsDesc(vectors, values)
	normalizeSigns(vectors)
	scaleToCoordinates(vectors, values)

	result := &Result{
		Algorithm:   alg.Name(),
		SampleIDs:   append([]string(nil), dm.IDs...),
		Eigenvalues: values,
		Proportions: proportionExplained(values),
		Coordinates: vectors,
	}

	p.logger.Debug().
		Str("algorithm", alg.Name()).
		Int("samples", n).
		Int("dimensions", k).
		Dur("elapsed", time.Since(start)).
		Msg("Ordination complete")

	return result, nil
}

// CenterDistanceMatrix applies Gower's transform B = -½·J·D²·J, converting
// squared distances into the inner-product matrix the eigendecomposition
// strategies consume. The input is not modified.
func CenterDistanceMatrix(d mat.Symmetric) *mat.SymDense {
	n := d.SymmetricDim()

	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := d.At(i, j)
			b.SetSym(i, j, v*v)
		}
	}

	rowMean := make([]float64, n)
	var grandMean float64
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += b.At(i, j)
		}
		rowMean[i] = sum / float64(n)
		grandMean += sum
	}
	grandMean /= float64(n * n)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			centered := -0.5 * (b.At(i, j) - rowMean[i] - rowMean[j] + grandMean)
			b.SetSym(i, j, centered)
		}
	}
	return b
}

// sortEigenpairsDesc stably re-sorts eigenpairs descending by signed value.
// Strategies already promise this order; the pipeline enforces it so a
// misbehaving implementation cannot corrupt downstream output.
func sortEigenpairsDesc(vectors *mat.Dense, values []float64) {
	n, k := vectors.Dims()

	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})

	sorted := true
	for i, src := range idx {
		if i != src {
			sorted = false
			break
		}
	}
	if sorted {
		return
	}

	origVecs := mat.DenseCopyOf(vectors)
	origVals := append([]float64(nil), values...)
	for dst, src := range idx {
		values[dst] = origVals[src]
		for row := 0; row < n; row++ {
			vectors.Set(row, dst, origVecs.At(row, src))
		}
	}
}

// normalizeSigns flips each eigenvector column so its largest-magnitude
// component (the first one on ties) is positive. Eigenvectors are only
// defined up to sign; fixing one makes repeated runs byte-comparable.
func normalizeSigns(vectors *mat.Dense) {
	n, k := vectors.Dims()
	for col := 0; col < k; col++ {
		pivot := 0
		maxAbs := 0.0
		for row := 0; row < n; row++ {
			if a := math.Abs(vectors.At(row, col)); a > maxAbs {
				maxAbs = a
				pivot = row
			}
		}
		if vectors.At(pivot, col) < 0 {
			for row := 0; row < n; row++ {
				vectors.Set(row, col, -vectors.At(row, col))
			}
		}
	}
}

// scaleToCoordinates converts eigenvector columns to point coordinates: each
// column is unit-normalized and multiplied by √max(λ,0). Columns for
// non-positive eigenvalues collapse to zero; their raw eigenvalues stay in
// the sequence as a quality signal.
func scaleToCoordinates(vectors *mat.Dense, values []float64) {
	n, k := vectors.Dims()
	for col := 0; col < k; col++ {
		var norm float64
		for row := 0; row < n; row++ {
			v := vectors.At(row, col)
			norm += v * v
		}
		norm = math.Sqrt(norm)

		scale := 0.0
		if values[col] > 0 && norm > 0 {
			scale = math.Sqrt(values[col]) / norm
		}
		for row := 0; row < n; row++ {
			vectors.Set(row, col, vectors.At(row, col)*scale)
		}
	}
}

// proportionExplained divides each eigenvalue by the sum of absolute
// eigenvalues. The shared denominator keeps the sequence well-defined when
// negative eigenvalues are present; an all-zero spectrum yields zeros.
func proportionExplained(values []float64) []float64 {
	var total float64
	for _, v := range values {
		total += math.Abs(v)
	}

	props := make([]float64, len(values))
	if total == 0 {
		return props
	}
	for i, v := range values {
		props[i] = v / total
	}
	return props
}

func finiteEigenpairs(values []float64, vectors *mat.Dense) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	rows, cols := vectors.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := vectors.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
