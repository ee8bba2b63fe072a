package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/distmat"
	"github.com/alenzhao/mds-approximations/pkg/pcoa"
	"github.com/alenzhao/mds-approximations/pkg/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runCommand(os.Args[2:])
	case "serve":
		serveCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// stringSliceFlag collects repeated --algorithm flags
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func runCommand(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var algorithms stringSliceFlag
	fs.Var(&algorithms, "algorithm", "algorithm to run (repeatable; default: all registered)")
	dimensions := fs.Int("dimensions", 0, "dimensions to retain (0 uses the configured value)")
	outPath := fs.String("outpath", "", "directory for result reports (default: configured output path)")
	configFile := fs.String("config", "", "optional config file (YAML, JSON, or TOML)")
	seed := fs.Int64("seed", 0, "random seed override (0 keeps the configured seed)")
	sequential := fs.Bool("sequential", false, "run algorithms one at a time")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Println("Usage: mds-approximations run [options] <distance_matrix_file>")
		fmt.Println()
		fs.PrintDefaults()
		os.Exit(1)
	}
	matrixFile := fs.Arg(0)

	cfg := pcoa.NewConfig()
	if *configFile != "" {
		if err := cfg.LoadFromFile(*configFile); err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *verbose {
		cfg.Set("logging.level", "debug")
	}
	if *seed != 0 {
		cfg.Set("pcoa.random_seed", *seed)
	}
	if *sequential {
		cfg.Set("performance.parallel", false)
	}
	if *dimensions > 0 {
		cfg.Set("pcoa.dimensions", *dimensions)
	}
	if *outPath != "" {
		cfg.Set("output.path", *outPath)
	}

	logger := cfg.CreateLogger()
	logger.Info().Msg("🚀 Starting principal coordinate analysis")

	registry, err := algorithm.DefaultRegistry(cfg.SolverOptions())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build algorithm registry")
	}

	dm, err := distmat.ParseFile(matrixFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load distance matrix")
	}
	logger.Info().
		Str("file", matrixFile).
		Int("samples", dm.Len()).
		Msg("Distance matrix loaded")

	runner := pcoa.NewRunner(cfg, registry)
	results, err := runner.Run(context.Background(), dm, algorithms, cfg.Dimensions(), cfg.OutputPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("Ordination failed")
	}

	logger.Info().
		Int("algorithms", len(results)).
		Str("outpath", cfg.OutputPath()).
		Msg("✅ All ordinations complete")
}

func serveCommand(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address override (default: SERVER_ADDRESS or :8080)")
	fs.Parse(args)

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("🚀 Starting ordination service")

	cfg := server.LoadConfig()
	if *addr != "" {
		cfg.Server.Address = *addr
	}

	log.Info().
		Str("address", cfg.Server.Address).
		Int("max_workers", cfg.Jobs.MaxWorkers).
		Dur("job_timeout", cfg.Jobs.JobTimeout).
		Msg("Configuration loaded")

	pcfg := pcoa.NewConfig()
	registry, err := algorithm.DefaultRegistry(pcfg.SolverOptions())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build algorithm registry")
	}

	srv := server.New(cfg, registry, pcoa.NewPipeline(pcfg))
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("Server shutdown failed")
	}
}

func printUsage() {
	fmt.Println("Principal coordinate analysis with exact and approximate eigendecomposition")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mds-approximations run [options] <distance_matrix_file>")
	fmt.Println("  mds-approximations serve [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run   - Ordinate a distance matrix and write one report per algorithm")
	fmt.Println("  serve - Start the HTTP ordination service")
	fmt.Println("  help  - Show this message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  mds-approximations run --algorithm eigh --dimensions 3 distances.txt")
	fmt.Println("  mds-approximations run --algorithm fsvd --algorithm nystrom --outpath results distances.txt")
	fmt.Println("  mds-approximations serve --addr :8080")
}
