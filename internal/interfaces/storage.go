package interfaces

import (
	"context"

	"github.com/ternarybob/doceo/internal/models"
)

// ChunkStorage - persistence for ingested chunks and their resources
type ChunkStorage interface {
	SaveResource(ctx context.Context, resource *models.Resource) error
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	ListResources(ctx context.Context) ([]*models.Resource, error)

	SaveChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error)
	CountChunks(ctx context.Context) (int, error)
}

// CourseStorage - persistence for generated course trees.
// PersistCourse is idempotent on requestID: a second call with the same
// requestID returns the first course ID and creates nothing.
type CourseStorage interface {
	PersistCourse(ctx context.Context, requestID string, course *models.Course) (string, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	GetCourseByRequestID(ctx context.Context, requestID string) (*models.Course, error)
	UpdateLessonContent(ctx context.Context, courseID, lessonID, content string, citation *models.Citation) error
	ListCourses(ctx context.Context) ([]*models.Course, error)
}

// JobStorage - persistence for generation job records
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.GenerationJob) error
	GetJob(ctx context.Context, id string) (*models.GenerationJob, error)
	ListJobs(ctx context.Context) ([]*models.GenerationJob, error)
	ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.GenerationJob, error)
}

// AuditStorage - write-once model call audit trail
type AuditStorage interface {
	SaveCallRecord(ctx context.Context, record *models.ModelCallRecord) error
	ListCallRecords(ctx context.Context, jobID string, limit int) ([]*models.ModelCallRecord, error)
}

// StorageManager provides access to all storage implementations
type StorageManager interface {
	ChunkStorage() ChunkStorage
	CourseStorage() CourseStorage
	JobStorage() JobStorage
	AuditStorage() AuditStorage
	Close() error
}
