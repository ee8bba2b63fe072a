package server

import "time"

type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

type JobProgress struct {
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message"`
}

type Job struct {
	ID          string      `json:"id"`
	Status      JobStatus   `json:"status"`
	Algorithms  []string    `json:"algorithms"`
	Dimensions  int         `json:"dimensions"`
	SampleCount int         `json:"sampleCount"`
	Progress    JobProgress `json:"progress"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// OrdinationResult is the JSON-friendly projection of a pcoa.Result.
type OrdinationResult struct {
	Algorithm    string      `json:"algorithm"`
	SampleIDs    []string    `json:"sampleIds"`
	Eigenvalues  []float64   `json:"eigenvalues"`
	Proportions  []float64   `json:"proportions"`
	Coordinates  [][]float64 `json:"coordinates"`
	Stress       float64     `json:"stress"`
	ProcessingMS int64       `json:"processingTimeMs"`
}

type SubmitResponse struct {
	JobID  string    `json:"jobId"`
	Status JobStatus `json:"status"`
}

type JobResponse struct {
	Job     *Job                `json:"job"`
	Results []*OrdinationResult `json:"results,omitempty"`
}

type AlgorithmsResponse struct {
	Algorithms []string `json:"algorithms"`
}

type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	ActiveJobs int       `json:"activeJobs"`
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
