package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/pcoa"
)

// Server wraps the HTTP server and its job service
type Server struct {
	config     *Config
	jobService *JobService
	httpServer *http.Server
}

// New wires the job service, handlers, and routes into a server
func New(cfg *Config, registry *algorithm.Registry, pipeline *pcoa.Pipeline) *Server {
	jobService := NewJobService(cfg.Jobs, registry, pipeline)
	handlers := NewHandlers(jobService, registry, cfg)
	router := SetupRoutes(handlers)

	return &Server{
		config:     cfg,
		jobService: jobService,
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Run starts the server and blocks until shutdown
func (s *Server) Run() error {
	go func() {
		log.Info().Str("address", s.httpServer.Addr).Msg("🌐 Starting ordination server")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.jobService.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	log.Info().Msg("✅ Server stopped")
	return nil
}
