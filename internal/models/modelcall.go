package models

import "time"

// CallOutcome classifies how a model call ended
type CallOutcome string

const (
	CallOutcomeOK         CallOutcome = "ok"
	CallOutcomeTimeout    CallOutcome = "timeout"
	CallOutcomeConnection CallOutcome = "connection_error"
	CallOutcomeMalformed  CallOutcome = "malformed"
)

// ModelCallRecord is a write-once audit entry for every prompt sent to a
// model backend. Used for debugging prompt engineering and tracing which
// raw output produced which course.
type ModelCallRecord struct {
	ID          string      `json:"id"`   // call_{uuid}
	Kind        string      `json:"kind"` // "structure", "lesson_content", "repair", "embedding"
	JobID       string      `json:"job_id,omitempty"`
	Prompt      string      `json:"prompt"`
	RawResponse string      `json:"raw_response"`
	Model       string      `json:"model"`
	StartedAt   time.Time   `json:"started_at"`
	DurationMs  int64       `json:"duration_ms"`
	Outcome     CallOutcome `json:"outcome"`
	Error       string      `json:"error,omitempty"`
}
