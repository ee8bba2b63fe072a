package algorithm

// Options collects the tuning knobs shared by the iterative and randomized
// strategies. Exact strategies ignore it. Non-positive fields fall back to
// the defaults at construction time.
type Options struct {
	Tolerance       float64 // convergence threshold for iterative refinement
	MaxIterations   int     // Krylov basis growth limit
	Oversampling    int     // extra sketch columns beyond the requested rank
	PowerIterations int     // subspace power refinements for the sketch
	Landmarks       int     // sampled rows for the landmark method, 0 = auto
	Epochs          int     // gradient descent epochs
	LearningRate    float64 // gradient descent step size
	SampleSize      int     // pairs sampled per point per epoch
	Seed            int64   // seed shared by all randomized strategies
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Tolerance:       1e-10,
		MaxIterations:   300,
		Oversampling:    10,
		PowerIterations: 2,
		Landmarks:       0,
		Epochs:          200,
		LearningRate:    0.1,
		SampleSize:      10,
		Seed:            42,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.Oversampling <= 0 {
		o.Oversampling = def.Oversampling
	}
	if o.PowerIterations <= 0 {
		o.PowerIterations = def.PowerIterations
	}
	if o.Landmarks < 0 {
		o.Landmarks = 0
	}
	if o.Epochs <= 0 {
		o.Epochs = def.Epochs
	}
	if o.LearningRate <= 0 {
		o.LearningRate = def.LearningRate
	}
	if o.SampleSize <= 0 {
		o.SampleSize = def.SampleSize
	}
	if o.Seed == 0 {
		o.Seed = def.Seed
	}
	return o
}
