package models

import "time"

// JobStatus represents the state of a generation job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobStage identifies the pipeline stage a running job is in. The last
// stage reached is reported in job status so callers can decide whether a
// retry is worthwhile.
type JobStage string

const (
	JobStageRetrieving JobStage = "retrieving"
	JobStagePrompting  JobStage = "prompting"
	JobStageParsing    JobStage = "parsing"
	JobStageValidating JobStage = "validating"
	JobStagePersisting JobStage = "persisting"
)

// FailureReason is a machine-readable reason code for failed jobs
type FailureReason string

const (
	FailureModelUnavailable  FailureReason = "model_unavailable"
	FailureModelTimeout      FailureReason = "model_timeout"
	FailureMalformedResponse FailureReason = "malformed_response"
	FailureValidation        FailureReason = "validation_failure"
	FailureBudgetExceeded    FailureReason = "budget_exceeded"
	FailureCancelled         FailureReason = "cancelled"
	FailureInternal          FailureReason = "internal"
)

// GenerationJob tracks one course generation request through the pipeline.
// The request parameters are snapshot at creation time; the job record is
// the only thing that outlives the request.
type GenerationJob struct {
	ID    string `json:"id"` // job_{uuid}; doubles as the persistence idempotency key
	Topic string `json:"topic"`
	Level string `json:"level"`
	Goal  string `json:"goal"`

	Status JobStatus     `json:"status"`
	Stage  JobStage      `json:"stage,omitempty"` // Last stage reached
	Reason FailureReason `json:"reason,omitempty"`
	// Error contains a concise description of why the job failed.
	// Only populated when status is 'failed'.
	Error string `json:"error,omitempty"`

	// Degraded is set when retrieval failed or returned nothing and the
	// course was generated without grounding context.
	Degraded bool `json:"degraded"`

	CourseID  string     `json:"course_id,omitempty"`
	Citations []Citation `json:"citations,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the job has reached a final state
func (j *GenerationJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
