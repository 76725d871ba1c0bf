package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/models"
)

func TestJobLifecyclePersistence(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.JobStorage()
	ctx := context.Background()

	job := &models.GenerationJob{
		ID:        common.NewJobID(),
		Topic:     "container gardening",
		Level:     "beginner",
		Status:    models.JobStatusPending,
		CreatedAt: time.Now(),
	}
	require.NoError(t, storage.SaveJob(ctx, job))

	job.Status = models.JobStatusRunning
	job.Stage = models.JobStageRetrieving
	job.StartedAt = time.Now()
	require.NoError(t, storage.SaveJob(ctx, job))

	job.Status = models.JobStatusCompleted
	job.Stage = models.JobStagePersisting
	job.CourseID = "course_abc"
	job.CompletedAt = time.Now()
	require.NoError(t, storage.SaveJob(ctx, job))

	loaded, err := storage.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, loaded.Status)
	assert.Equal(t, models.JobStagePersisting, loaded.Stage)
	assert.Equal(t, "course_abc", loaded.CourseID)
	assert.True(t, loaded.IsTerminal())
}

func TestListJobsByStatus(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.JobStorage()
	ctx := context.Background()

	for _, status := range []models.JobStatus{
		models.JobStatusPending,
		models.JobStatusRunning,
		models.JobStatusRunning,
		models.JobStatusFailed,
	} {
		require.NoError(t, storage.SaveJob(ctx, &models.GenerationJob{
			ID:        common.NewJobID(),
			Status:    status,
			CreatedAt: time.Now(),
		}))
	}

	running, err := storage.ListJobsByStatus(ctx, models.JobStatusRunning)
	require.NoError(t, err)
	assert.Len(t, running, 2)

	all, err := storage.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestGetJob_NotFound(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.JobStorage().GetJob(context.Background(), "job_missing")
	assert.Error(t, err)
}

func TestAuditRecords(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.AuditStorage()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, storage.SaveCallRecord(ctx, &models.ModelCallRecord{
			ID:        common.NewCallID(),
			Kind:      "structure",
			JobID:     "job_1",
			Model:     "phi3",
			StartedAt: base.Add(time.Duration(i) * time.Second),
			Outcome:   models.CallOutcomeOK,
		}))
	}
	require.NoError(t, storage.SaveCallRecord(ctx, &models.ModelCallRecord{
		ID:        common.NewCallID(),
		Kind:      "structure",
		JobID:     "job_2",
		StartedAt: base,
		Outcome:   models.CallOutcomeTimeout,
	}))

	records, err := storage.ListCallRecords(ctx, "job_1", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Newest first
	assert.True(t, records[0].StartedAt.After(records[1].StartedAt))

	all, err := storage.ListCallRecords(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
