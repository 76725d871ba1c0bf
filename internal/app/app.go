package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/handlers"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/services/chunker"
	"github.com/ternarybob/doceo/internal/services/embeddings"
	"github.com/ternarybob/doceo/internal/services/events"
	"github.com/ternarybob/doceo/internal/services/generation"
	"github.com/ternarybob/doceo/internal/services/ingest"
	"github.com/ternarybob/doceo/internal/services/llm"
	"github.com/ternarybob/doceo/internal/services/retrieval"
	"github.com/ternarybob/doceo/internal/services/scheduler"
	"github.com/ternarybob/doceo/internal/services/vectorindex"
	"github.com/ternarybob/doceo/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager *badger.Manager

	// Core pipeline
	Backend      interfaces.ModelBackend
	Embedder     interfaces.EmbeddingService
	Index        *vectorindex.Index
	Retriever    *retrieval.Service
	Orchestrator *generation.Orchestrator
	IngestSvc    *ingest.Service

	// Supporting services
	EventService     interfaces.EventService
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	CourseHandler   *handlers.CourseHandler
	JobHandler      *handlers.JobHandler
	LessonHandler   *handlers.LessonHandler
	ResourceHandler *handlers.ResourceHandler
	SearchHandler   *handlers.SearchHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application in dependency order: storage, index,
// model backend, pipeline services, then handlers.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("provider", cfg.LLM.Provider).
		Int("index_vectors", app.Index.Len()).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initStorage() error {
	manager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.StorageManager = manager

	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

func (a *App) initServices() error {
	var err error

	a.EventService = events.NewService(a.Logger)

	// Vector index loads its last snapshot if one exists. A missing
	// snapshot file starts an empty index, not an error.
	a.Index, err = vectorindex.Load(a.Config.Index.Path, a.Config.Embeddings.Dimension, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load vector index: %w", err)
	}
	a.Logger.Debug().
		Int("vectors", a.Index.Len()).
		Str("path", a.Config.Index.Path).
		Msg("Vector index loaded")

	a.Backend, err = llm.NewModelBackend(a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create model backend: %w", err)
	}
	a.Logger.Debug().Str("provider", a.Config.LLM.Provider).Msg("Model backend initialized")

	a.Embedder = embeddings.NewService(a.Backend, &a.Config.Embeddings, a.Logger)

	a.Retriever = retrieval.NewService(a.Embedder, a.Index, a.StorageManager.ChunkStorage(), a.Logger)

	audit := llm.NewAuditLogger(a.StorageManager.AuditStorage(), a.Config.LLM.Model, a.Logger)

	a.Orchestrator = generation.NewOrchestrator(
		a.Backend,
		a.Retriever,
		a.StorageManager,
		audit,
		a.EventService,
		a.Config,
		a.Logger,
	)

	ch := chunker.New(
		chunker.WithTargetTokens(a.Config.Chunker.TargetTokens),
		chunker.WithOverlapTokens(a.Config.Chunker.OverlapTokens),
	)
	fetcher := ingest.NewFetcher(&a.Config.Research, a.Logger)
	a.IngestSvc = ingest.NewService(
		ch,
		a.Embedder,
		a.Index,
		a.Config.Index.Path,
		a.StorageManager.ChunkStorage(),
		fetcher,
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(
		&a.Config.Scheduler,
		a.Index,
		a.Config.Index.Path,
		a.StorageManager.JobStorage(),
		a.StorageManager.DB(),
		a.Logger,
	)
	if err := a.SchedulerService.Start(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to start scheduler service")
	}

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Backend)
	a.CourseHandler = handlers.NewCourseHandler(a.Orchestrator, a.StorageManager.CourseStorage())
	a.JobHandler = handlers.NewJobHandler(a.Orchestrator, a.StorageManager.JobStorage())
	a.LessonHandler = handlers.NewLessonHandler(a.Orchestrator)
	a.ResourceHandler = handlers.NewResourceHandler(a.IngestSvc, a.StorageManager.ChunkStorage())
	a.SearchHandler = handlers.NewSearchHandler(a.Retriever)
	a.WSHandler = handlers.NewWebSocketHandler(a.EventService, a.Logger)
}

// Close shuts down in reverse dependency order. The scheduler stop takes
// a final index snapshot before storage closes.
func (a *App) Close() error {
	if a.Orchestrator != nil {
		if err := a.Orchestrator.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close orchestrator")
		}
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.Backend != nil {
		if err := a.Backend.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close model backend")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
