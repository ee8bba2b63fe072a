package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/alenzhao/mds-approximations/pkg/algorithm"
	"github.com/alenzhao/mds-approximations/pkg/distmat"
)

// Handlers holds the HTTP handlers for the ordination API
type Handlers struct {
	jobService        *JobService
	registry          *algorithm.Registry
	maxUploadBytes    int64
	defaultDimensions int
}

func NewHandlers(jobService *JobService, registry *algorithm.Registry, cfg *Config) *Handlers {
	return &Handlers{
		jobService:        jobService,
		registry:          registry,
		maxUploadBytes:    cfg.Upload.MaxBytes,
		defaultDimensions: cfg.Jobs.DefaultDimensions,
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteSuccessResponse(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now(),
		ActiveJobs: h.jobService.ActiveJobs(),
	}, "")
}

// ListAlgorithms handles GET /api/v1/algorithms
func (h *Handlers) ListAlgorithms(w http.ResponseWriter, r *http.Request) {
	WriteSuccessResponse(w, http.StatusOK, AlgorithmsResponse{
		Algorithms: h.registry.Names(),
	}, "")
}

// SubmitOrdination handles POST /api/v1/ordinations
//
// Expects a multipart form with a "matrixFile" distance matrix, optional
// repeated "algorithm" fields, and an optional "dimensions" field.
func (h *Handlers) SubmitOrdination(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("failed to parse multipart form: %v", err))
		return
	}

	file, _, err := r.FormFile("matrixFile")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "matrixFile is required")
		return
	}
	defer file.Close()

	dm, err := distmat.Parse(file)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid distance matrix: %v", err))
		return
	}

	dimensions := h.defaultDimensions
	if raw := r.FormValue("dimensions"); raw != "" {
		dimensions, err = strconv.Atoi(raw)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid dimensions %q", raw))
			return
		}
	}

	algorithms := r.Form["algorithm"]

	job, err := h.jobService.Submit(dm, algorithms, dimensions)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteSuccessResponse(w, http.StatusAccepted, SubmitResponse{
		JobID:  job.ID,
		Status: job.Status,
	}, "ordination job submitted")
}

// GetOrdinationJob handles GET /api/v1/ordinations/{jobId}
func (h *Handlers) GetOrdinationJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	job, err := h.jobService.Get(jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			WriteErrorResponse(w, http.StatusNotFound, err.Error())
		} else {
			WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	response := JobResponse{Job: job}
	if job.Status == JobStatusCompleted {
		results, err := h.jobService.GetResults(jobID)
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		response.Results = results
	}

	WriteSuccessResponse(w, http.StatusOK, response, "")
}

// CancelOrdinationJob handles DELETE /api/v1/ordinations/{jobId}
func (h *Handlers) CancelOrdinationJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]

	if err := h.jobService.Cancel(jobID); err != nil {
		switch {
		case errors.Is(err, ErrJobNotFound):
			WriteErrorResponse(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrJobNotCancellable):
			WriteErrorResponse(w, http.StatusConflict, err.Error())
		default:
			WriteErrorResponse(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	WriteSuccessResponse(w, http.StatusOK, nil, "job cancelled")
}
