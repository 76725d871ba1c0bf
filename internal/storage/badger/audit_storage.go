package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
)

// AuditStorage implements the AuditStorage interface for Badger. Records
// are write-once; there is no update or delete path.
type AuditStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAuditStorage creates a new AuditStorage instance
func NewAuditStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AuditStorage {
	return &AuditStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AuditStorage) SaveCallRecord(ctx context.Context, record *models.ModelCallRecord) error {
	if record.ID == "" {
		return fmt.Errorf("call record ID is required")
	}

	if err := s.db.Store().Insert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save call record: %w", err)
	}
	return nil
}

// ListCallRecords returns records for a job (or all records when jobID is
// empty), newest first, capped at limit.
func (s *AuditStorage) ListCallRecords(ctx context.Context, jobID string, limit int) ([]*models.ModelCallRecord, error) {
	var records []models.ModelCallRecord

	var err error
	if jobID == "" {
		err = s.db.Store().Find(&records, nil)
	} else {
		err = s.db.Store().Find(&records, badgerhold.Where("JobID").Eq(jobID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list call records: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].StartedAt.After(records[j].StartedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	result := make([]*models.ModelCallRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}
