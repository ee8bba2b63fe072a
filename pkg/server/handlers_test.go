package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/pcoa"
)

const lineMatrixText = `	A	B	C	D
A	0	1	2	3
B	1	0	1	2
C	2	1	0	1
D	3	2	1	0
`

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	os.Exit(m.Run())
}

func testConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":0",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Jobs: JobConfig{
			MaxWorkers:        2,
			DefaultDimensions: 2,
			JobTimeout:        time.Minute,
			CleanupInterval:   time.Minute,
			ResultTTL:         time.Hour,
		},
		Upload: UploadConfig{
			MaxBytes: 1 << 20,
		},
	}
}

func newTestRouter(t *testing.T) (*JobService, *mux.Router) {
	t.Helper()

	cfg := testConfig()
	pcfg := pcoa.NewConfig()
	pcfg.Set("logging.level", "error")

	registry, err := algorithm.DefaultRegistry(pcfg.SolverOptions())
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}

	svc := NewJobService(cfg.Jobs, registry, pcoa.NewPipeline(pcfg))
	t.Cleanup(svc.Close)

	return svc, SetupRoutes(NewHandlers(svc, registry, cfg))
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()

	var resp struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if data != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("Failed to decode response data: %v", err)
		}
	}
	return APIResponse{Success: resp.Success, Message: resp.Message, Error: resp.Error}
}

func multipartRequest(t *testing.T, matrix string, fields map[string][]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if matrix != "" {
		part, err := writer.CreateFormFile("matrixFile", "distances.txt")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := io.WriteString(part, matrix); err != nil {
			t.Fatalf("Failed to write matrix: %v", err)
		}
	}
	for key, values := range fields {
		for _, value := range values {
			if err := writer.WriteField(key, value); err != nil {
				t.Fatalf("Failed to write field %s: %v", key, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ordinations", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func waitForJob(t *testing.T, router *mux.Router, jobID string) JobResponse {
	t.Helper()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ordinations/"+jobID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200 polling job, got %d", rec.Code)
		}

		var jr JobResponse
		decodeResponse(t, rec, &jr)
		if jr.Job == nil {
			t.Fatalf("Expected job in poll response, got none")
		}

		switch jr.Job.Status {
		case JobStatusCompleted:
			return jr
		case JobStatusFailed:
			t.Fatalf("Job failed: %s", jr.Job.Error)
		case JobStatusCancelled:
			t.Fatalf("Job was cancelled unexpectedly")
		}

		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Job %s did not complete before deadline", jobID)
	return JobResponse{}
}

func TestHealthCheck(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var health HealthResponse
	resp := decodeResponse(t, rec, &health)
	if !resp.Success {
		t.Errorf("Expected success response, got error %q", resp.Error)
	}
	if health.Status != "healthy" {
		t.Errorf("Expected status healthy, got %s", health.Status)
	}
	if health.ActiveJobs != 0 {
		t.Errorf("Expected 0 active jobs, got %d", health.ActiveJobs)
	}
}

func TestListAlgorithms(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/algorithms", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var algs AlgorithmsResponse
	decodeResponse(t, rec, &algs)

	expected := []string{"eigh", "eigsh", "fsvd", "nystrom", "scmds", "svd"}
	if len(algs.Algorithms) != len(expected) {
		t.Fatalf("Expected %d algorithms, got %d: %v", len(expected), len(algs.Algorithms), algs.Algorithms)
	}
	for i, name := range expected {
		if algs.Algorithms[i] != name {
			t.Errorf("Expected algorithm %s at position %d, got %s", name, i, algs.Algorithms[i])
		}
	}
}

func TestSubmitAndPollOrdination(t *testing.T) {
	_, router := newTestRouter(t)

	req := multipartRequest(t, lineMatrixText, map[string][]string{
		"algorithm":  {"eigh"},
		"dimensions": {"2"},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var submitted SubmitResponse
	decodeResponse(t, rec, &submitted)
	if submitted.JobID == "" {
		t.Fatal("Expected a job ID, got empty string")
	}

	jr := waitForJob(t, router, submitted.JobID)
	if len(jr.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(jr.Results))
	}

	result := jr.Results[0]
	if result.Algorithm != "eigh" {
		t.Errorf("Expected algorithm eigh, got %s", result.Algorithm)
	}
	if len(result.SampleIDs) != 4 || result.SampleIDs[0] != "A" || result.SampleIDs[3] != "D" {
		t.Errorf("Expected sample IDs A..D, got %v", result.SampleIDs)
	}
	if len(result.Eigenvalues) != 2 {
		t.Fatalf("Expected 2 eigenvalues, got %d", len(result.Eigenvalues))
	}
	if math.Abs(result.Eigenvalues[0]-5.0) > 1e-8 {
		t.Errorf("Expected leading eigenvalue 5, got %v", result.Eigenvalues[0])
	}
	if len(result.Coordinates) != 4 || len(result.Coordinates[0]) != 2 {
		t.Fatalf("Expected 4x2 coordinates, got %dx%d", len(result.Coordinates), len(result.Coordinates[0]))
	}
	if result.Stress > 1e-6 {
		t.Errorf("Expected near-zero stress for collinear points, got %v", result.Stress)
	}
}

func TestSubmitDefaultsToAllAlgorithms(t *testing.T) {
	_, router := newTestRouter(t)

	req := multipartRequest(t, lineMatrixText, map[string][]string{
		"dimensions": {"2"},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var submitted SubmitResponse
	decodeResponse(t, rec, &submitted)

	jr := waitForJob(t, router, submitted.JobID)
	expected := []string{"eigh", "eigsh", "fsvd", "nystrom", "scmds", "svd"}
	if len(jr.Results) != len(expected) {
		t.Fatalf("Expected %d results, got %d", len(expected), len(jr.Results))
	}
	for i, name := range expected {
		if jr.Results[i].Algorithm != name {
			t.Errorf("Expected result %d from %s, got %s", i, name, jr.Results[i].Algorithm)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name    string
		matrix  string
		fields  map[string][]string
		wantErr string
	}{
		{
			name:    "missing matrix file",
			matrix:  "",
			fields:  map[string][]string{"dimensions": {"2"}},
			wantErr: "matrixFile is required",
		},
		{
			name:    "malformed matrix",
			matrix:  "\tA\tB\nA\t0\tx\nB\tx\t0\n",
			fields:  map[string][]string{"dimensions": {"2"}},
			wantErr: "invalid distance matrix",
		},
		{
			name:    "unknown algorithm",
			matrix:  lineMatrixText,
			fields:  map[string][]string{"algorithm": {"pca"}, "dimensions": {"2"}},
			wantErr: "algorithm not found",
		},
		{
			name:    "non-numeric dimensions",
			matrix:  lineMatrixText,
			fields:  map[string][]string{"dimensions": {"many"}},
			wantErr: "invalid dimensions",
		},
		{
			name:    "zero dimensions",
			matrix:  lineMatrixText,
			fields:  map[string][]string{"dimensions": {"0"}},
			wantErr: "dimensions must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := newTestRouter(t)

			req := multipartRequest(t, tt.matrix, tt.fields)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d: %s", rec.Code, rec.Body.String())
			}

			resp := decodeResponse(t, rec, nil)
			if resp.Success {
				t.Error("Expected success=false for invalid request")
			}
			if !bytes.Contains([]byte(resp.Error), []byte(tt.wantErr)) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, resp.Error)
			}
		})
	}
}

func TestGetUnknownJob(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ordinations/no-such-job", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}

	resp := decodeResponse(t, rec, nil)
	if resp.Success {
		t.Error("Expected success=false for unknown job")
	}
}

func TestCancelEndpoint(t *testing.T) {
	svc, router := newTestRouter(t)

	// Insert a queued job directly so it cannot finish before the cancel arrives.
	job := &Job{
		ID:        "queued-job",
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
	}
	svc.mutex.Lock()
	svc.jobs[job.ID] = job
	svc.mutex.Unlock()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/ordinations/queued-job", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := svc.Get("queued-job")
	if err != nil {
		t.Fatalf("Get failed after cancel: %v", err)
	}
	if got.Status != JobStatusCancelled {
		t.Errorf("Expected status cancelled, got %s", got.Status)
	}

	// A second cancel conflicts with the terminal state.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/ordinations/queued-job", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for double cancel, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/ordinations/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown job, got %d", rec.Code)
	}
}
