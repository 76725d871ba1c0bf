// Package generation orchestrates asynchronous course generation: accept
// a request, retrieve grounding context, prompt the model, parse and
// validate the structure, and persist the result, reporting progress
// through the job record and the event bus.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
	"github.com/ternarybob/doceo/internal/services/extractor"
	"github.com/ternarybob/doceo/internal/services/llm"
)

// Request is one course generation request.
type Request struct {
	Topic string `json:"topic" validate:"required"`
	Level string `json:"level"`
	Goal  string `json:"goal"`
}

// Orchestrator runs generation jobs. Each accepted request gets its own
// goroutine; a semaphore bounds how many run concurrently and the rest
// queue in job order.
type Orchestrator struct {
	backend   interfaces.ModelBackend
	retriever interfaces.Retriever
	jobs      interfaces.JobStorage
	courses   interfaces.CourseStorage
	chunks    interfaces.ChunkStorage
	audit     *llm.AuditLogger
	events    interfaces.EventService
	config    *common.Config
	logger    arbor.ILogger

	semaphore chan struct{}
	mu        sync.Mutex
	cancels   map[string]context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
}

// NewOrchestrator creates the generation orchestrator.
func NewOrchestrator(
	backend interfaces.ModelBackend,
	retriever interfaces.Retriever,
	storage interfaces.StorageManager,
	audit *llm.AuditLogger,
	events interfaces.EventService,
	config *common.Config,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		backend:   backend,
		retriever: retriever,
		jobs:      storage.JobStorage(),
		courses:   storage.CourseStorage(),
		chunks:    storage.ChunkStorage(),
		audit:     audit,
		events:    events,
		config:    config,
		logger:    logger,
		semaphore: make(chan struct{}, config.Generation.Concurrency),
		cancels:   make(map[string]context.CancelFunc),
	}
}

// StartGeneration accepts a request and returns immediately with a
// pending job. The pipeline runs in the background; progress is visible
// through GetJob and the event bus.
func (o *Orchestrator) StartGeneration(ctx context.Context, req *Request) (*models.GenerationJob, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid generation request: %w", err)
	}

	job := &models.GenerationJob{
		ID:        common.NewJobID(),
		Topic:     req.Topic,
		Level:     strings.TrimSpace(req.Level),
		Goal:      strings.TrimSpace(req.Goal),
		Status:    models.JobStatusPending,
		CreatedAt: time.Now(),
	}

	// Register before the save so a shutdown never strands a pending
	// job record that no goroutine will ever pick up.
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, fmt.Errorf("orchestrator is shutting down")
	}
	// The budget clock starts when work starts, not while queued
	jobCtx, cancel := context.WithCancel(context.Background())
	o.cancels[job.ID] = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	if err := o.jobs.SaveJob(ctx, job); err != nil {
		o.mu.Lock()
		delete(o.cancels, job.ID)
		o.mu.Unlock()
		cancel()
		o.wg.Done()
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("topic", job.Topic).
		Msg("Generation job accepted")

	go o.run(jobCtx, job)

	return job, nil
}

// GetJob returns the current state of a job.
func (o *Orchestrator) GetJob(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	return o.jobs.GetJob(ctx, jobID)
}

// Cancel requests cancellation of a job. Terminal jobs are unaffected. A
// job already in its persisting stage completes; the write is never
// interrupted.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsTerminal() {
		return job, nil
	}

	o.mu.Lock()
	cancel, ok := o.cancels[jobID]
	o.mu.Unlock()
	if ok {
		cancel()
	}

	o.logger.Info().Str("job_id", jobID).Msg("Job cancellation requested")
	return job, nil
}

// Close stops accepting jobs and waits for running ones to finish.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.closed = true
	for _, cancel := range o.cancels {
		cancel()
	}
	o.mu.Unlock()

	o.wg.Wait()
	return nil
}

// run executes the pipeline for one job.
func (o *Orchestrator) run(jobCtx context.Context, job *models.GenerationJob) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		delete(o.cancels, job.ID)
		o.mu.Unlock()
	}()

	// Queue until a slot frees up; cancellation still applies while queued
	select {
	case o.semaphore <- struct{}{}:
		defer func() { <-o.semaphore }()
	case <-jobCtx.Done():
		o.fail(jobCtx, job, jobCtx.Err())
		return
	}

	ctx, cancelBudget := context.WithTimeout(jobCtx, o.config.Generation.Budget.Std())
	defer cancelBudget()

	job.Status = models.JobStatusRunning
	job.StartedAt = time.Now()

	chunks := o.retrieveStage(ctx, job)
	if err := ctx.Err(); err != nil {
		o.fail(ctx, job, err)
		return
	}

	structure, citations, err := o.generateStructure(ctx, job, chunks)
	if err != nil {
		o.fail(ctx, job, err)
		return
	}

	// Persisting is not interruptible: once the model has produced a
	// valid structure, losing it to a late cancel helps nobody.
	o.setStage(context.WithoutCancel(ctx), job, models.JobStagePersisting)

	course := &models.Course{
		Topic:     job.Topic,
		Level:     job.Level,
		Goal:      job.Goal,
		Structure: *structure,
		Citations: citations,
		Degraded:  job.Degraded,
	}

	courseID, err := o.courses.PersistCourse(context.WithoutCancel(ctx), job.ID, course)
	if err != nil {
		o.fail(context.Background(), job, fmt.Errorf("failed to persist course: %w", err))
		return
	}

	job.Status = models.JobStatusCompleted
	job.CourseID = courseID
	job.Citations = citations
	job.CompletedAt = time.Now()
	o.saveAndPublish(context.WithoutCancel(ctx), job, interfaces.EventJobCompleted)

	o.logger.Info().
		Str("job_id", job.ID).
		Str("course_id", courseID).
		Bool("degraded", job.Degraded).
		Dur("duration", time.Since(job.StartedAt)).
		Msg("Generation job completed")
}

// retrieveStage fetches grounding context. Retrieval failure degrades the
// job instead of failing it; the course is generated ungrounded.
func (o *Orchestrator) retrieveStage(ctx context.Context, job *models.GenerationJob) []*models.Chunk {
	o.setStage(ctx, job, models.JobStageRetrieving)

	query := job.Topic
	if job.Goal != "" {
		query += " " + job.Goal
	}

	chunks, err := o.retriever.Retrieve(ctx, query, o.config.Retrieval.TopK)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("job_id", job.ID).
			Msg("Retrieval failed, generating without context")
		job.Degraded = true
		return nil
	}
	if len(chunks) == 0 {
		job.Degraded = true
	}
	return chunks
}

// generateStructure prompts the model and parses the result, with one
// repair round-trip when the first response is malformed.
func (o *Orchestrator) generateStructure(ctx context.Context, job *models.GenerationJob, chunks []*models.Chunk) (*models.CourseStructure, []models.Citation, error) {
	o.setStage(ctx, job, models.JobStagePrompting)

	prompt := buildStructurePrompt(job.Topic, job.Level, job.Goal, chunks)
	raw, err := o.complete(ctx, job.ID, "structure", prompt)
	if err != nil {
		return nil, nil, err
	}

	o.setStage(ctx, job, models.JobStageParsing)

	structure, err := extractor.Extract(raw)
	if err != nil {
		var malformed *extractor.MalformedResponseError
		if !errors.As(err, &malformed) {
			return nil, nil, err
		}

		o.logger.Warn().
			Str("job_id", job.ID).
			Str("reason", malformed.Reason).
			Msg("Malformed structure response, attempting repair")

		o.setStage(ctx, job, models.JobStagePrompting)
		raw, err = o.complete(ctx, job.ID, "repair", buildRepairPrompt(malformed.Raw))
		if err != nil {
			return nil, nil, err
		}

		o.setStage(ctx, job, models.JobStageParsing)
		structure, err = extractor.Extract(raw)
		if err != nil {
			return nil, nil, err
		}
	}

	o.setStage(ctx, job, models.JobStageValidating)

	repairStructure(structure)
	if err := validateStructure(structure, job.Topic); err != nil {
		return nil, nil, err
	}

	return structure, buildCitations(structure, chunks), nil
}

// buildCitations records which retrieved chunks grounded each lesson.
// Structure generation shares one context window, so every lesson cites
// the same retrieval set; chunk IDs are never invented.
func buildCitations(structure *models.CourseStructure, chunks []*models.Chunk) []models.Citation {
	if len(chunks) == 0 {
		return nil
	}

	chunkIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
	}

	var citations []models.Citation
	for _, module := range structure.Modules {
		for _, lesson := range module.Lessons {
			citations = append(citations, models.Citation{
				LessonRef: fmt.Sprintf("%d/%d", module.Order, lesson.Order),
				ChunkIDs:  chunkIDs,
			})
		}
	}
	return citations
}

// complete runs one audited model call.
func (o *Orchestrator) complete(ctx context.Context, jobID, kind, prompt string) (string, error) {
	startTime := time.Now()

	raw, err := o.backend.Complete(ctx, &interfaces.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structureSystemPrompt,
		Temperature:  o.config.LLM.Temperature,
	})

	o.audit.Record(context.WithoutCancel(ctx), kind, jobID, prompt, raw, startTime, err)
	return raw, err
}

// fail marks a job failed (or cancelled) with a machine-readable reason.
// The job context separates a tripped budget or an explicit cancel from a
// per-call model timeout; all three surface as context errors.
func (o *Orchestrator) fail(jobCtx context.Context, job *models.GenerationJob, err error) {
	ctx := context.Background()

	reason, status := classifyFailure(err)
	switch jobCtx.Err() {
	case context.Canceled:
		reason, status = models.FailureCancelled, models.JobStatusCancelled
	case context.DeadlineExceeded:
		reason, status = models.FailureBudgetExceeded, models.JobStatusFailed
	}
	job.Status = status
	job.Reason = reason
	job.Error = err.Error()
	job.CompletedAt = time.Now()

	eventType := interfaces.EventJobFailed
	if status == models.JobStatusCancelled {
		eventType = interfaces.EventJobUpdated
	}
	o.saveAndPublish(ctx, job, eventType)

	o.logger.Warn().
		Str("job_id", job.ID).
		Str("status", string(job.Status)).
		Str("reason", string(reason)).
		Str("stage", string(job.Stage)).
		Err(err).
		Msg("Generation job did not complete")
}

func classifyFailure(err error) (models.FailureReason, models.JobStatus) {
	var validationErr *ValidationError
	var malformed *extractor.MalformedResponseError

	switch {
	case errors.Is(err, context.Canceled):
		return models.FailureCancelled, models.JobStatusCancelled
	case errors.Is(err, llm.ErrModelTimeout):
		return models.FailureModelTimeout, models.JobStatusFailed
	case errors.Is(err, context.DeadlineExceeded):
		return models.FailureBudgetExceeded, models.JobStatusFailed
	case errors.Is(err, llm.ErrModelUnavailable):
		return models.FailureModelUnavailable, models.JobStatusFailed
	case errors.As(err, &malformed):
		return models.FailureMalformedResponse, models.JobStatusFailed
	case errors.As(err, &validationErr):
		return models.FailureValidation, models.JobStatusFailed
	default:
		return models.FailureInternal, models.JobStatusFailed
	}
}

// setStage records and publishes a stage transition.
func (o *Orchestrator) setStage(ctx context.Context, job *models.GenerationJob, stage models.JobStage) {
	job.Stage = stage
	o.saveAndPublish(ctx, job, interfaces.EventJobUpdated)
}

// saveAndPublish persists the job record and emits an event. A failed
// save is logged; losing one stage update does not abort the pipeline.
func (o *Orchestrator) saveAndPublish(ctx context.Context, job *models.GenerationJob, eventType interfaces.EventType) {
	if err := o.jobs.SaveJob(ctx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to save job state")
	}
	if o.events != nil {
		if err := o.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: job}); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to publish job event")
		}
	}
}
