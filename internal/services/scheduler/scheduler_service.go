// Package scheduler runs the periodic maintenance tasks: index snapshots,
// stale job cleanup, and badger value log garbage collection.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
	"github.com/ternarybob/doceo/internal/services/vectorindex"
	"github.com/ternarybob/doceo/internal/storage/badger"
)

// Service owns the cron runner for background maintenance.
type Service struct {
	config      *common.SchedulerConfig
	index       *vectorindex.Index
	indexPath   string
	jobs        interfaces.JobStorage
	db          *badger.BadgerDB
	cron        *cron.Cron
	logger      arbor.ILogger
	lastVersion uint64
	running     bool
}

// NewService creates the maintenance scheduler.
func NewService(
	config *common.SchedulerConfig,
	index *vectorindex.Index,
	indexPath string,
	jobs interfaces.JobStorage,
	db *badger.BadgerDB,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:    config,
		index:     index,
		indexPath: indexPath,
		jobs:      jobs,
		db:        db,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers the maintenance jobs and begins the cron runner.
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled by configuration")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.SnapshotSchedule, s.snapshotIndex); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.config.SnapshotSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.config.CleanupSchedule, s.cleanupStaleJobs); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.config.CleanupSchedule, err)
	}
	if _, err := s.cron.AddFunc(s.config.CleanupSchedule, s.collectGarbage); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.config.CleanupSchedule, err)
	}

	s.cron.Start()
	s.running = true
	s.lastVersion = s.index.Version()

	s.logger.Info().
		Str("snapshot_schedule", s.config.SnapshotSchedule).
		Str("cleanup_schedule", s.config.CleanupSchedule).
		Msg("Scheduler started")

	return nil
}

// Stop halts the cron runner and takes a final index snapshot.
func (s *Service) Stop() error {
	if !s.running {
		return nil
	}

	<-s.cron.Stop().Done()
	s.running = false
	s.snapshotIndex()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// snapshotIndex persists the index when it changed since the last run.
func (s *Service) snapshotIndex() {
	version := s.index.Version()
	if version == s.lastVersion {
		return
	}

	if err := s.index.Save(s.indexPath); err != nil {
		s.logger.Error().Err(err).Str("path", s.indexPath).Msg("Scheduled index snapshot failed")
		return
	}
	s.lastVersion = version

	s.logger.Debug().
		Str("path", s.indexPath).
		Int("count", s.index.Len()).
		Msg("Scheduled index snapshot written")
}

// cleanupStaleJobs fails running jobs whose process died mid-pipeline. A
// job older than the stale age can no longer be making progress: the
// orchestrator holds no state across restarts.
func (s *Service) cleanupStaleJobs() {
	staleAge, err := time.ParseDuration(s.config.StaleJobAge)
	if err != nil {
		s.logger.Warn().Err(err).Str("stale_job_age", s.config.StaleJobAge).Msg("Invalid stale job age, skipping cleanup")
		return
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-staleAge)

	for _, status := range []models.JobStatus{models.JobStatusPending, models.JobStatusRunning} {
		jobs, err := s.jobs.ListJobsByStatus(ctx, status)
		if err != nil {
			s.logger.Error().Err(err).Msg("Failed to list jobs for stale cleanup")
			return
		}

		for _, job := range jobs {
			if job.CreatedAt.After(cutoff) {
				continue
			}

			job.Status = models.JobStatusFailed
			job.Reason = models.FailureInternal
			job.Error = "job abandoned: no progress within stale age"
			job.CompletedAt = time.Now()

			if err := s.jobs.SaveJob(ctx, job); err != nil {
				s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to fail stale job")
				continue
			}
			s.logger.Warn().
				Str("job_id", job.ID).
				Str("created_at", job.CreatedAt.Format(time.RFC3339)).
				Msg("Failed stale job")
		}
	}
}

// collectGarbage reclaims badger value log space.
func (s *Service) collectGarbage() {
	if err := s.db.RunValueLogGC(); err != nil {
		s.logger.Warn().Err(err).Msg("Badger value log GC failed")
	}
}
