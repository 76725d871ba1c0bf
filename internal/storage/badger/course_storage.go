package badger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
)

// CourseStorage implements the CourseStorage interface for Badger.
// Persistence is idempotent on request ID so a crash between persist and
// job update cannot produce duplicate courses on retry.
type CourseStorage struct {
	db     *BadgerDB
	mu     sync.Mutex // Serializes the check-then-insert in PersistCourse
	logger arbor.ILogger
}

// NewCourseStorage creates a new CourseStorage instance
func NewCourseStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CourseStorage {
	return &CourseStorage{
		db:     db,
		logger: logger,
	}
}

// PersistCourse saves a course tree, assigning IDs to the course and its
// lessons. When a course already exists for the request ID, its ID is
// returned and nothing is written.
func (s *CourseStorage) PersistCourse(ctx context.Context, requestID string, course *models.Course) (string, error) {
	if requestID == "" {
		return "", fmt.Errorf("request ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.getByRequestID(requestID)
	if err == nil {
		s.logger.Debug().
			Str("request_id", requestID).
			Str("course_id", existing.ID).
			Msg("Course already persisted for request, returning existing ID")
		return existing.ID, nil
	}

	now := time.Now()
	course.ID = common.NewCourseID()
	course.RequestID = requestID
	course.CreatedAt = now
	course.UpdatedAt = now

	assignLessonIDs(course)

	if err := s.db.Store().Insert(course.ID, course); err != nil {
		return "", fmt.Errorf("failed to persist course: %w", err)
	}

	s.logger.Info().
		Str("course_id", course.ID).
		Str("request_id", requestID).
		Int("module_count", len(course.Structure.Modules)).
		Msg("Course persisted")

	return course.ID, nil
}

// assignLessonIDs gives every lesson a stable ID and rewrites positional
// citation refs ("module_order/lesson_order") to lesson IDs.
func assignLessonIDs(course *models.Course) {
	refs := make(map[string]string)

	for mi := range course.Structure.Modules {
		module := &course.Structure.Modules[mi]
		for li := range module.Lessons {
			lesson := &module.Lessons[li]
			if lesson.ID == "" {
				lesson.ID = common.NewLessonID()
			}
			refs[fmt.Sprintf("%d/%d", module.Order, lesson.Order)] = lesson.ID
		}
	}

	for ci := range course.Citations {
		if id, ok := refs[course.Citations[ci].LessonRef]; ok {
			course.Citations[ci].LessonRef = id
		}
	}
}

func (s *CourseStorage) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := s.db.Store().Get(id, &course); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("course not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (s *CourseStorage) GetCourseByRequestID(ctx context.Context, requestID string) (*models.Course, error) {
	course, err := s.getByRequestID(requestID)
	if err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseStorage) getByRequestID(requestID string) (*models.Course, error) {
	var courses []models.Course
	if err := s.db.Store().Find(&courses, badgerhold.Where("RequestID").Eq(requestID)); err != nil {
		return nil, fmt.Errorf("failed to find course by request ID: %w", err)
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("course not found for request: %s", requestID)
	}
	return &courses[0], nil
}

// UpdateLessonContent stores the streamed content of a lesson and appends
// its citation to the course.
func (s *CourseStorage) UpdateLessonContent(ctx context.Context, courseID, lessonID, content string, citation *models.Citation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}

	_, lesson := course.FindLesson(lessonID)
	if lesson == nil {
		return fmt.Errorf("lesson not found: %s in course %s", lessonID, courseID)
	}

	lesson.Content = content
	if citation != nil && len(citation.ChunkIDs) > 0 {
		course.Citations = append(course.Citations, *citation)
	}
	course.UpdatedAt = time.Now()

	if err := s.db.Store().Update(course.ID, course); err != nil {
		return fmt.Errorf("failed to update lesson content: %w", err)
	}
	return nil
}

func (s *CourseStorage) ListCourses(ctx context.Context) ([]*models.Course, error) {
	var courses []models.Course
	if err := s.db.Store().Find(&courses, nil); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	result := make([]*models.Course, len(courses))
	for i := range courses {
		result[i] = &courses[i]
	}
	return result, nil
}
