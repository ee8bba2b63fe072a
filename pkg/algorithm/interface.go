package algorithm

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrDuplicateAlgorithm reports a second registration under a name that
	// is already taken.
	ErrDuplicateAlgorithm = errors.New("algorithm already registered")

	// ErrAlgorithmNotFound reports a lookup for a name that was never
	// registered.
	ErrAlgorithmNotFound = errors.New("algorithm not found")

	// ErrAlgorithmFailure reports numerical breakdown or non-convergence
	// inside a strategy.
	ErrAlgorithmFailure = errors.New("algorithm failed")
)

// Algorithm is the contract every eigendecomposition strategy implements.
// Run consumes a double-centered Gram matrix and extracts its top k
// eigenpairs: an n×k matrix whose columns are (approximately unit)
// eigenvectors and the matching eigenvalues sorted descending by signed
// value. Implementations hold no per-run state and are safe for concurrent
// reuse.
type Algorithm interface {
	Name() string
	Run(b *mat.SymDense, k int) (*mat.Dense, []float64, error)
}

// Registry maps names to algorithm instances. Registration happens once at
// startup from the composition root; lookups afterwards are read-only, so no
// locking is carried.
type Registry struct {
	algorithms map[string]Algorithm
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{algorithms: make(map[string]Algorithm)}
}

// Register adds an algorithm under its declared name. Registering a name
// twice is an error, never a silent overwrite.
func (r *Registry) Register(a Algorithm) error {
	name := a.Name()
	if _, exists := r.algorithms[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateAlgorithm, name)
	}
	r.algorithms[name] = a
	return nil
}

// Get returns the algorithm registered under name.
func (r *Registry) Get(name string) (Algorithm, error) {
	a, exists := r.algorithms[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrAlgorithmNotFound, name)
	}
	return a, nil
}

// Names returns the registered identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry builds a registry holding the six shipped strategies,
// configured from opts.
func DefaultRegistry(opts Options) (*Registry, error) {
	r := NewRegistry()
	for _, a := range []Algorithm{
		NewEigh(),
		NewEigsh(opts),
		NewSVD(),
		NewFSVD(opts),
		NewNystrom(opts),
		NewSCMDS(opts),
	} {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}
