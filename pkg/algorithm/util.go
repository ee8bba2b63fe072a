package algorithm

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// symMulVec sets dst = a·x.
func symMulVec(dst []float64, a *mat.SymDense, x []float64) {
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		var sum float64
		for j := 0; j < n; j++ {
			sum += a.At(i, j) * x[j]
		}
		dst[i] = sum
	}
}

// sortEigenpairs reorders eigenpairs descending by signed eigenvalue,
// permuting the columns of vectors to match. The sort is stable so equal
// eigenvalues keep their relative order.
func sortEigenpairs(vectors *mat.Dense, values []float64) (*mat.Dense, []float64) {
	n, k := vectors.Dims()

	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})

	sortedVecs := mat.NewDense(n, k, nil)
	sortedVals := make([]float64, k)
	for dst, src := range idx {
		sortedVals[dst] = values[src]
		for row := 0; row < n; row++ {
			sortedVecs.Set(row, dst, vectors.At(row, src))
		}
	}
	return sortedVecs, sortedVals
}

// orthonormalize applies modified Gram-Schmidt to the columns of a,
// returning a fresh matrix. A column that collapses below tolerance is left
// zero rather than renormalized.
func orthonormalize(a *mat.Dense) *mat.Dense {
	n, c := a.Dims()
	q := mat.DenseCopyOf(a)

	for j := 0; j < c; j++ {
		for i := 0; i < j; i++ {
			var dot float64
			for row := 0; row < n; row++ {
				dot += q.At(row, i) * q.At(row, j)
			}
			for row := 0; row < n; row++ {
				q.Set(row, j, q.At(row, j)-dot*q.At(row, i))
			}
		}

		var norm float64
		for row := 0; row < n; row++ {
			v := q.At(row, j)
			norm += v * v
		}
		norm = math.Sqrt(norm)

		if norm < 1e-12 {
			for row := 0; row < n; row++ {
				q.Set(row, j, 0)
			}
			continue
		}
		for row := 0; row < n; row++ {
			q.Set(row, j, q.At(row, j)/norm)
		}
	}
	return q
}
