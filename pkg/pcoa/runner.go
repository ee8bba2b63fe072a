package pcoa

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/distmat"
)

// Runner executes a batch of ordinations over one distance matrix and writes
// one report per algorithm.
type Runner struct {
	cfg      *Config
	registry *algorithm.Registry
	pipeline *Pipeline
	logger   zerolog.Logger
}

// NewRunner creates a runner over the given registry.
func NewRunner(cfg *Config, registry *algorithm.Registry) *Runner {
	return &Runner{
		cfg:      cfg,
		registry: registry,
		pipeline: NewPipeline(cfg),
		logger:   cfg.CreateLogger(),
	}
}

// Run resolves every requested algorithm up front, so a single unknown name
// aborts the whole batch before any file is written, then executes the runs,
// in parallel when configured. An empty name list means every registered
// algorithm. Results come back in request order.
func (r *Runner) Run(ctx context.Context, dm *distmat.DistanceMatrix, names []string, k int, outPath string) ([]*Result, error) {
	if len(names) == 0 {
		names = r.registry.Names()
	}

	algs := make([]algorithm.Algorithm, len(names))
	for i, name := range names {
		alg, err := r.registry.Get(name)
		if err != nil {
			return nil, fmt.Errorf("%w; use a registered algorithm or register it at startup (registered: %s)",
				err, strings.Join(r.registry.Names(), ", "))
		}
		algs[i] = alg
	}

	writer := NewReportWriter(outPath)
	results := make([]*Result, len(algs))

	workers := 1
	if r.cfg.Parallel() {
		workers = r.cfg.NumWorkers()
	}
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, alg := range algs {
		i, alg := i, alg // per-iteration copies; required while go.mod targets go < 1.22
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			result, err := r.pipeline.Transform(dm, alg, k)
			if err != nil {
				return err
			}

			path, err := writer.Write(result)
			if err != nil {
				return err
			}

			r.logger.Info().
				Str("algorithm", alg.Name()).
				Int("dimensions", result.Dimensions()).
				Float64("stress", Stress(dm, result)).
				Dur("elapsed", time.Since(start)).
				Str("report", path).
				Msg("Ordination written")

			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
