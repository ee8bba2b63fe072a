package server

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/distmat"
	"github.com/alenzhao/mds-approximations/pkg/pcoa"
)

func newTestService(t *testing.T) *JobService {
	t.Helper()

	pcfg := pcoa.NewConfig()
	pcfg.Set("logging.level", "error")

	registry, err := algorithm.DefaultRegistry(pcfg.SolverOptions())
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}

	svc := NewJobService(testConfig().Jobs, registry, pcoa.NewPipeline(pcfg))
	t.Cleanup(svc.Close)
	return svc
}

func lineDistances(t *testing.T) *distmat.DistanceMatrix {
	t.Helper()

	dm, err := distmat.Parse(strings.NewReader(lineMatrixText))
	if err != nil {
		t.Fatalf("Failed to parse fixture matrix: %v", err)
	}
	return dm
}

func waitForService(t *testing.T, svc *JobService, jobID string) *Job {
	t.Helper()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Get(jobID)
		if err != nil {
			t.Fatalf("Get failed while polling: %v", err)
		}
		switch job.Status {
		case JobStatusCompleted:
			return job
		case JobStatusFailed:
			t.Fatalf("Job failed: %s", job.Error)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Job %s did not complete before deadline", jobID)
	return nil
}

func TestJobServiceSubmitAndComplete(t *testing.T) {
	svc := newTestService(t)

	job, err := svc.Submit(lineDistances(t), []string{"eigh"}, 2)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if job.Status != JobStatusQueued {
		t.Errorf("Expected initial status queued, got %s", job.Status)
	}
	if job.SampleCount != 4 {
		t.Errorf("Expected 4 samples, got %d", job.SampleCount)
	}

	done := waitForService(t, svc, job.ID)
	if done.Progress.Percentage != 100 {
		t.Errorf("Expected progress 100, got %v", done.Progress.Percentage)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("Expected started and completed timestamps on a finished job")
	}

	results, err := svc.GetResults(job.ID)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if math.Abs(results[0].Eigenvalues[0]-5.0) > 1e-8 {
		t.Errorf("Expected leading eigenvalue 5, got %v", results[0].Eigenvalues[0])
	}
	if results[0].ProcessingMS < 0 {
		t.Errorf("Expected non-negative processing time, got %d", results[0].ProcessingMS)
	}
}

func TestJobServiceSubmitValidation(t *testing.T) {
	svc := newTestService(t)
	dm := lineDistances(t)

	if _, err := svc.Submit(dm, []string{"eigh"}, 0); err == nil {
		t.Error("Expected error for zero dimensions, got nil")
	}

	_, err := svc.Submit(dm, []string{"does-not-exist"}, 2)
	if !errors.Is(err, algorithm.ErrAlgorithmNotFound) {
		t.Errorf("Expected ErrAlgorithmNotFound, got %v", err)
	}
}

func TestJobServiceSubmitDefaultsToAllAlgorithms(t *testing.T) {
	svc := newTestService(t)

	job, err := svc.Submit(lineDistances(t), nil, 2)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	expected := []string{"eigh", "eigsh", "fsvd", "nystrom", "scmds", "svd"}
	if len(job.Algorithms) != len(expected) {
		t.Fatalf("Expected %d algorithms, got %v", len(expected), job.Algorithms)
	}
	for i, name := range expected {
		if job.Algorithms[i] != name {
			t.Errorf("Expected algorithm %s at position %d, got %s", name, i, job.Algorithms[i])
		}
	}

	waitForService(t, svc, job.ID)
	results, err := svc.GetResults(job.ID)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(results) != len(expected) {
		t.Fatalf("Expected %d results, got %d", len(expected), len(results))
	}
}

func TestJobServiceGetResultsBeforeCompletion(t *testing.T) {
	svc := newTestService(t)

	svc.mutex.Lock()
	svc.jobs["pending"] = &Job{ID: "pending", Status: JobStatusQueued, CreatedAt: time.Now()}
	svc.mutex.Unlock()

	if _, err := svc.GetResults("pending"); err == nil {
		t.Error("Expected error fetching results of a queued job, got nil")
	}
	if _, err := svc.GetResults("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestJobServiceCancel(t *testing.T) {
	svc := newTestService(t)

	svc.mutex.Lock()
	svc.jobs["queued"] = &Job{ID: "queued", Status: JobStatusQueued, CreatedAt: time.Now()}
	svc.mutex.Unlock()

	if err := svc.Cancel("queued"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	job, err := svc.Get("queued")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != JobStatusCancelled {
		t.Errorf("Expected status cancelled, got %s", job.Status)
	}
	if job.CompletedAt == nil {
		t.Error("Expected completion timestamp on a cancelled job")
	}

	if err := svc.Cancel("queued"); !errors.Is(err, ErrJobNotCancellable) {
		t.Errorf("Expected ErrJobNotCancellable on double cancel, got %v", err)
	}
	if err := svc.Cancel("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestJobServiceActiveJobs(t *testing.T) {
	svc := newTestService(t)

	now := time.Now()
	svc.mutex.Lock()
	svc.jobs["a"] = &Job{ID: "a", Status: JobStatusQueued, CreatedAt: now}
	svc.jobs["b"] = &Job{ID: "b", Status: JobStatusRunning, CreatedAt: now}
	svc.jobs["c"] = &Job{ID: "c", Status: JobStatusCompleted, CreatedAt: now, CompletedAt: &now}
	svc.mutex.Unlock()

	if got := svc.ActiveJobs(); got != 2 {
		t.Errorf("Expected 2 active jobs, got %d", got)
	}
}

func TestJobServiceCleanup(t *testing.T) {
	svc := newTestService(t)

	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now()
	svc.mutex.Lock()
	svc.jobs["expired"] = &Job{ID: "expired", Status: JobStatusCompleted, CreatedAt: old, CompletedAt: &old}
	svc.results["expired"] = []*OrdinationResult{{Algorithm: "eigh"}}
	svc.jobs["fresh"] = &Job{ID: "fresh", Status: JobStatusCompleted, CreatedAt: recent, CompletedAt: &recent}
	svc.mutex.Unlock()

	svc.cleanup()

	if _, err := svc.Get("expired"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected expired job to be removed, got %v", err)
	}
	if _, err := svc.Get("fresh"); err != nil {
		t.Errorf("Expected fresh job to survive cleanup, got %v", err)
	}
}

func TestJobSnapshotIsolation(t *testing.T) {
	svc := newTestService(t)

	svc.mutex.Lock()
	svc.jobs["j"] = &Job{ID: "j", Status: JobStatusQueued, Algorithms: []string{"eigh"}, CreatedAt: time.Now()}
	svc.mutex.Unlock()

	snap, err := svc.Get("j")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	snap.Status = JobStatusFailed
	snap.Algorithms[0] = "mutated"

	svc.mutex.RLock()
	stored := svc.jobs["j"]
	status := stored.Status
	name := stored.Algorithms[0]
	svc.mutex.RUnlock()

	if status != JobStatusQueued {
		t.Errorf("Expected stored status queued after mutating snapshot, got %s", status)
	}
	if name != "eigh" {
		t.Errorf("Expected stored algorithms untouched, got %s", name)
	}
}
