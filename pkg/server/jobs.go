package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/distmat"
	"github.com/alenzhao/mds-approximations/pkg/pcoa"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotCancellable = errors.New("job cannot be cancelled")
)

// JobService manages asynchronous ordination jobs
type JobService struct {
	jobs     map[string]*Job
	results  map[string][]*OrdinationResult
	matrices map[string]*distmat.DistanceMatrix
	mutex    sync.RWMutex

	registry *algorithm.Registry
	pipeline *pcoa.Pipeline
	workers  chan struct{}

	jobTimeout      time.Duration
	resultTTL       time.Duration
	cleanupInterval time.Duration
	stop            chan struct{}
}

// NewJobService creates a new job service and starts its cleanup loop
func NewJobService(cfg JobConfig, registry *algorithm.Registry, pipeline *pcoa.Pipeline) *JobService {
	s := &JobService{
		jobs:            make(map[string]*Job),
		results:         make(map[string][]*OrdinationResult),
		matrices:        make(map[string]*distmat.DistanceMatrix),
		registry:        registry,
		pipeline:        pipeline,
		workers:         make(chan struct{}, cfg.MaxWorkers),
		jobTimeout:      cfg.JobTimeout,
		resultTTL:       cfg.ResultTTL,
		cleanupInterval: cfg.CleanupInterval,
		stop:            make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Close stops the background cleanup loop
func (s *JobService) Close() {
	close(s.stop)
}

// Submit validates the request, queues a job, and starts processing it
func (s *JobService) Submit(dm *distmat.DistanceMatrix, algorithms []string, dimensions int) (*Job, error) {
	if dimensions < 1 {
		return nil, fmt.Errorf("dimensions must be at least 1, got %d", dimensions)
	}

	if len(algorithms) == 0 {
		algorithms = s.registry.Names()
	}
	for _, name := range algorithms {
		if _, err := s.registry.Get(name); err != nil {
			return nil, fmt.Errorf("%w (registered: %v)", err, s.registry.Names())
		}
	}

	job := &Job{
		ID:          uuid.New().String(),
		Status:      JobStatusQueued,
		Algorithms:  algorithms,
		Dimensions:  dimensions,
		SampleCount: dm.Len(),
		Progress:    JobProgress{Percentage: 0, Message: "queued"},
		CreatedAt:   time.Now(),
	}

	s.mutex.Lock()
	s.jobs[job.ID] = job
	s.matrices[job.ID] = dm
	s.mutex.Unlock()

	log.Info().
		Str("job_id", job.ID).
		Strs("algorithms", algorithms).
		Int("dimensions", dimensions).
		Int("samples", dm.Len()).
		Msg("Ordination job submitted")

	go s.processJob(job.ID)

	return s.snapshot(job), nil
}

// Get returns a snapshot of a job by ID
func (s *JobService) Get(jobID string) (*Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return s.snapshot(job), nil
}

// GetResults returns the results of a completed job
func (s *JobService) GetResults(jobID string) ([]*OrdinationResult, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != JobStatusCompleted {
		return nil, fmt.Errorf("job %s is %s, results are only available for completed jobs", jobID, job.Status)
	}
	return s.results[jobID], nil
}

// Cancel cancels a queued or running job
func (s *JobService) Cancel(jobID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if job.Status != JobStatusQueued && job.Status != JobStatusRunning {
		return fmt.Errorf("%w: job %s is %s", ErrJobNotCancellable, jobID, job.Status)
	}

	job.Status = JobStatusCancelled
	job.Progress = JobProgress{Percentage: job.Progress.Percentage, Message: "cancelled"}
	now := time.Now()
	job.CompletedAt = &now
	delete(s.matrices, jobID)

	log.Info().Str("job_id", jobID).Msg("Job cancelled")
	return nil
}

// ActiveJobs counts queued and running jobs
func (s *JobService) ActiveJobs() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := 0
	for _, job := range s.jobs {
		if job.Status == JobStatusQueued || job.Status == JobStatusRunning {
			count++
		}
	}
	return count
}

func (s *JobService) processJob(jobID string) {
	s.workers <- struct{}{}
	defer func() { <-s.workers }()

	s.mutex.Lock()
	job, exists := s.jobs[jobID]
	if !exists || job.Status != JobStatusQueued {
		// Cancelled while waiting for a worker slot.
		s.mutex.Unlock()
		return
	}
	dm := s.matrices[jobID]
	now := time.Now()
	job.Status = JobStatusRunning
	job.StartedAt = &now
	job.Progress = JobProgress{Percentage: 5, Message: "running"}
	algorithms := job.Algorithms
	dimensions := job.Dimensions
	s.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	results := make([]*OrdinationResult, 0, len(algorithms))
	for i, name := range algorithms {
		if err := ctx.Err(); err != nil {
			s.failJob(jobID, fmt.Errorf("job timed out after %v: %w", s.jobTimeout, err))
			return
		}
		if s.isCancelled(jobID) {
			return
		}

		alg, err := s.registry.Get(name)
		if err != nil {
			s.failJob(jobID, err)
			return
		}

		start := time.Now()
		res, err := s.pipeline.Transform(dm, alg, dimensions)
		if err != nil {
			s.failJob(jobID, fmt.Errorf("algorithm %s: %w", name, err))
			return
		}
		results = append(results, convertResult(res, dm, time.Since(start)))

		s.setProgress(jobID, 5+90*float64(i+1)/float64(len(algorithms)),
			fmt.Sprintf("completed %s (%d/%d)", name, i+1, len(algorithms)))
	}

	s.completeJob(jobID, results)
}

func (s *JobService) isCancelled(jobID string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, exists := s.jobs[jobID]
	return !exists || job.Status == JobStatusCancelled
}

func (s *JobService) setProgress(jobID string, percentage float64, message string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if job, exists := s.jobs[jobID]; exists && job.Status == JobStatusRunning {
		job.Progress = JobProgress{Percentage: percentage, Message: message}
	}
}

func (s *JobService) completeJob(jobID string, results []*OrdinationResult) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != JobStatusRunning {
		return
	}

	now := time.Now()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.Progress = JobProgress{Percentage: 100, Message: "completed"}
	s.results[jobID] = results
	delete(s.matrices, jobID)

	log.Info().
		Str("job_id", jobID).
		Int("results", len(results)).
		Dur("elapsed", now.Sub(*job.StartedAt)).
		Msg("Job completed")
}

func (s *JobService) failJob(jobID string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists || job.Status != JobStatusRunning {
		return
	}

	now := time.Now()
	job.Status = JobStatusFailed
	job.CompletedAt = &now
	job.Error = err.Error()
	job.Progress = JobProgress{Percentage: job.Progress.Percentage, Message: "failed"}
	delete(s.matrices, jobID)

	log.Error().Err(err).Str("job_id", jobID).Msg("Job failed")
}

func (s *JobService) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

func (s *JobService) cleanup() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := time.Now().Add(-s.resultTTL)
	removed := 0
	for id, job := range s.jobs {
		if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			delete(s.results, id)
			delete(s.matrices, id)
			removed++
		}
	}

	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Cleaned up expired jobs")
	}
}

// snapshot copies a job so callers never share the mutable struct
func (s *JobService) snapshot(job *Job) *Job {
	copied := *job
	copied.Algorithms = append([]string(nil), job.Algorithms...)
	return &copied
}

func convertResult(res *pcoa.Result, dm *distmat.DistanceMatrix, elapsed time.Duration) *OrdinationResult {
	return &OrdinationResult{
		Algorithm:    res.Algorithm,
		SampleIDs:    res.SampleIDs,
		Eigenvalues:  res.Eigenvalues,
		Proportions:  res.Proportions,
		Coordinates:  res.CoordinateRows(),
		Stress:       pcoa.Stress(dm, res),
		ProcessingMS: elapsed.Milliseconds(),
	}
}
