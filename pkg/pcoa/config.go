package pcoa

import (
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
)

// Config manages pipeline and solver configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Pipeline parameters
	v.SetDefault("pcoa.dimensions", 10)
	v.SetDefault("pcoa.random_seed", int64(42))

	// Solver parameters
	v.SetDefault("solver.tolerance", 1e-10)
	v.SetDefault("solver.max_iterations", 300)
	v.SetDefault("fsvd.oversampling", 10)
	v.SetDefault("fsvd.power_iterations", 2)
	v.SetDefault("nystrom.landmarks", 0)
	v.SetDefault("scmds.epochs", 200)
	v.SetDefault("scmds.learning_rate", 0.1)
	v.SetDefault("scmds.sample_size", 10)

	// Performance parameters
	v.SetDefault("performance.parallel", true)
	v.SetDefault("performance.num_workers", runtime.NumCPU())

	// Logging parameters
	v.SetDefault("logging.level", "info")

	// Output parameters
	v.SetDefault("output.path", ".")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Getters for pipeline parameters

func (c *Config) Dimensions() int   { return c.v.GetInt("pcoa.dimensions") }
func (c *Config) RandomSeed() int64 { return c.v.GetInt64("pcoa.random_seed") }

// Getters for solver parameters

func (c *Config) Tolerance() float64    { return c.v.GetFloat64("solver.tolerance") }
func (c *Config) MaxIterations() int    { return c.v.GetInt("solver.max_iterations") }
func (c *Config) Oversampling() int     { return c.v.GetInt("fsvd.oversampling") }
func (c *Config) PowerIterations() int  { return c.v.GetInt("fsvd.power_iterations") }
func (c *Config) Landmarks() int        { return c.v.GetInt("nystrom.landmarks") }
func (c *Config) Epochs() int           { return c.v.GetInt("scmds.epochs") }
func (c *Config) LearningRate() float64 { return c.v.GetFloat64("scmds.learning_rate") }
func (c *Config) SampleSize() int       { return c.v.GetInt("scmds.sample_size") }

// Getters for performance parameters

func (c *Config) Parallel() bool  { return c.v.GetBool("performance.parallel") }
func (c *Config) NumWorkers() int { return c.v.GetInt("performance.num_workers") }

// Getters for logging and output parameters

func (c *Config) LogLevel() string   { return c.v.GetString("logging.level") }
func (c *Config) OutputPath() string { return c.v.GetString("output.path") }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// SolverOptions projects the solver keys onto the option struct consumed by
// the algorithm constructors.
func (c *Config) SolverOptions() algorithm.Options {
	return algorithm.Options{
		Tolerance:       c.Tolerance(),
		MaxIterations:   c.MaxIterations(),
		Oversampling:    c.Oversampling(),
		PowerIterations: c.PowerIterations(),
		Landmarks:       c.Landmarks(),
		Epochs:          c.Epochs(),
		LearningRate:    c.LearningRate(),
		SampleSize:      c.SampleSize(),
		Seed:            c.RandomSeed(),
	}
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "pcoa").Logger()
}
