package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/distmat"
	"github.com/alenzhao/mds-approximations/pkg/pcoa"
)

func main() {
	fmt.Println("Principal Coordinate Analysis Example")
	fmt.Println("=====================================")

	if err := runOrdinationExample(); err != nil {
		log.Fatalf("Example failed: %v", err)
	}
}

func runOrdinationExample() error {
	// Step 1: Build a distance matrix from synthetic points
	fmt.Println("📋 Step 1: Building a distance matrix from synthetic points...")

	const (
		samples   = 40
		pointDims = 3
	)

	rng := rand.New(rand.NewSource(42))
	ids := make([]string, samples)
	points := make([][]float64, samples)
	for i := range points {
		ids[i] = fmt.Sprintf("sample_%02d", i)
		points[i] = make([]float64, pointDims)
		for d := range points[i] {
			points[i][d] = rng.NormFloat64()
		}
	}

	values := make([][]float64, samples)
	for i := range values {
		values[i] = make([]float64, samples)
		for j := range values[i] {
			var sum float64
			for d := 0; d < pointDims; d++ {
				diff := points[i][d] - points[j][d]
				sum += diff * diff
			}
			values[i][j] = math.Sqrt(sum)
		}
	}

	dm, err := distmat.NewDistanceMatrix(ids, values)
	if err != nil {
		return fmt.Errorf("failed to build distance matrix: %w", err)
	}

	fmt.Printf("✅ Distance matrix ready: %d samples\n", dm.Len())

	// Step 2: Configure the pipeline
	fmt.Println("\n⚙️  Step 2: Configuring the pipeline...")

	cfg := pcoa.NewConfig()
	cfg.Set("logging.level", "warn")
	cfg.Set("pcoa.dimensions", 3)

	registry, err := algorithm.DefaultRegistry(cfg.SolverOptions())
	if err != nil {
		return fmt.Errorf("failed to build registry: %w", err)
	}
	pipeline := pcoa.NewPipeline(cfg)

	fmt.Printf("✅ Registered algorithms: %v\n", registry.Names())

	// Step 3: Exact ordination as the reference
	fmt.Println("\n🧮 Step 3: Exact ordination with eigh...")

	exact, err := registry.Get("eigh")
	if err != nil {
		return err
	}

	reference, err := pipeline.Transform(dm, exact, cfg.Dimensions())
	if err != nil {
		return fmt.Errorf("exact ordination failed: %w", err)
	}

	fmt.Printf("   Eigenvalues:")
	for _, v := range reference.Eigenvalues {
		fmt.Printf(" %.4f", v)
	}
	fmt.Println()

	fmt.Printf("   Proportion explained:")
	for _, p := range reference.Proportions {
		fmt.Printf(" %.1f%%", p*100)
	}
	fmt.Println()

	fmt.Printf("   Stress: %.6f\n", pcoa.Stress(dm, reference))

	// Step 4: Compare the approximate algorithms against the reference
	fmt.Println("\n📊 Step 4: Comparing approximate algorithms...")

	for _, name := range registry.Names() {
		if name == "eigh" {
			continue
		}

		alg, err := registry.Get(name)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := pipeline.Transform(dm, alg, cfg.Dimensions())
		if err != nil {
			fmt.Printf("   ❌ %s: failed (%v)\n", name, err)
			continue
		}

		fmt.Printf("   📈 %-7s leading eigenvalue %.4f (exact %.4f), stress %.6f, %d ms\n",
			name, res.Eigenvalues[0], reference.Eigenvalues[0],
			pcoa.Stress(dm, res), time.Since(start).Milliseconds())
	}

	fmt.Println("\n🎉 Ordination example completed successfully!")
	return nil
}
