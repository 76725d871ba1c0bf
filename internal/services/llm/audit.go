package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
)

// AuditLogger records every prompt sent through a model backend as a
// write-once ModelCallRecord. A failed audit write never fails the call
// itself; it is logged and dropped.
type AuditLogger struct {
	storage interfaces.AuditStorage
	model   string
	logger  arbor.ILogger
}

// NewAuditLogger creates an audit logger backed by the given storage.
func NewAuditLogger(storage interfaces.AuditStorage, model string, logger arbor.ILogger) *AuditLogger {
	return &AuditLogger{
		storage: storage,
		model:   model,
		logger:  logger,
	}
}

// Record persists an audit entry for one completed (or failed) call.
func (a *AuditLogger) Record(ctx context.Context, kind, jobID, prompt, rawResponse string, startedAt time.Time, callErr error) {
	record := &models.ModelCallRecord{
		ID:          common.NewCallID(),
		Kind:        kind,
		JobID:       jobID,
		Prompt:      prompt,
		RawResponse: rawResponse,
		Model:       a.model,
		StartedAt:   startedAt,
		DurationMs:  time.Since(startedAt).Milliseconds(),
		Outcome:     outcomeFor(callErr),
	}
	if callErr != nil {
		record.Error = callErr.Error()
	}

	if err := a.storage.SaveCallRecord(ctx, record); err != nil {
		a.logger.Warn().
			Err(err).
			Str("call_id", record.ID).
			Str("kind", kind).
			Msg("Failed to persist model call record")
	}
}

func outcomeFor(err error) models.CallOutcome {
	switch {
	case err == nil:
		return models.CallOutcomeOK
	case errors.Is(err, ErrModelTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.CallOutcomeTimeout
	case errors.Is(err, ErrModelUnavailable):
		return models.CallOutcomeConnection
	default:
		return models.CallOutcomeMalformed
	}
}
