package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/models"
	"github.com/ternarybob/doceo/internal/services/vectorindex"
	"github.com/ternarybob/doceo/internal/storage/badger"
)

func newTestScheduler(t *testing.T) (*Service, *badger.Manager, *vectorindex.Index, string) {
	t.Helper()

	logger := common.GetLogger()

	manager, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })

	index, err := vectorindex.New(4, logger)
	require.NoError(t, err)

	indexPath := filepath.Join(t.TempDir(), "vectors.idx")
	config := &common.SchedulerConfig{
		Enabled:          true,
		SnapshotSchedule: "*/5 * * * *",
		CleanupSchedule:  "0 * * * *",
		StaleJobAge:      "30m",
	}

	service := NewService(config, index, indexPath, manager.JobStorage(), manager.DB(), logger)
	return service, manager, index, indexPath
}

func TestSnapshotIndex_SkipsWhenUnchanged(t *testing.T) {
	service, _, index, indexPath := newTestScheduler(t)

	// Nothing changed, nothing written
	service.snapshotIndex()
	_, err := os.Stat(indexPath)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, index.Add("chunk_a", []float32{1, 0, 0, 0}))
	service.snapshotIndex()
	_, err = os.Stat(indexPath)
	require.NoError(t, err)

	// Second run with no further mutation rewrites nothing
	info1, err := os.Stat(indexPath)
	require.NoError(t, err)
	service.snapshotIndex()
	info2, err := os.Stat(indexPath)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestCleanupStaleJobs(t *testing.T) {
	service, manager, _, _ := newTestScheduler(t)
	ctx := context.Background()

	stale := &models.GenerationJob{
		ID:        common.NewJobID(),
		Status:    models.JobStatusRunning,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	fresh := &models.GenerationJob{
		ID:        common.NewJobID(),
		Status:    models.JobStatusRunning,
		CreatedAt: time.Now(),
	}
	finished := &models.GenerationJob{
		ID:          common.NewJobID(),
		Status:      models.JobStatusCompleted,
		CreatedAt:   time.Now().Add(-3 * time.Hour),
		CompletedAt: time.Now().Add(-3 * time.Hour),
	}
	for _, job := range []*models.GenerationJob{stale, fresh, finished} {
		require.NoError(t, manager.JobStorage().SaveJob(ctx, job))
	}

	service.cleanupStaleJobs()

	reloaded, err := manager.JobStorage().GetJob(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, reloaded.Status)
	assert.Equal(t, models.FailureInternal, reloaded.Reason)

	reloaded, err = manager.JobStorage().GetJob(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, reloaded.Status)

	reloaded, err = manager.JobStorage().GetJob(ctx, finished.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, reloaded.Status)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	service, _, _, _ := newTestScheduler(t)
	service.config.SnapshotSchedule = "not a schedule"

	err := service.Start()
	assert.Error(t, err)
}
