package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	manager, err := NewManager(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func sampleCourse(topic string) *models.Course {
	return &models.Course{
		Topic: topic,
		Level: "beginner",
		Structure: models.CourseStructure{
			Title: "A Course on " + topic,
			Modules: []models.CourseModule{
				{
					Title: "Module One",
					Order: 0,
					Lessons: []models.Lesson{
						{Title: "Lesson One", Order: 0},
						{Title: "Lesson Two", Order: 1},
					},
				},
			},
		},
	}
}

func TestPersistCourse_AssignsIDs(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	courseID, err := manager.CourseStorage().PersistCourse(ctx, "job_req1", sampleCourse("gardening"))
	require.NoError(t, err)
	require.NotEmpty(t, courseID)

	course, err := manager.CourseStorage().GetCourse(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, "job_req1", course.RequestID)
	for _, module := range course.Structure.Modules {
		for _, lesson := range module.Lessons {
			assert.NotEmpty(t, lesson.ID)
		}
	}
}

func TestPersistCourse_IdempotentOnRequestID(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	first, err := manager.CourseStorage().PersistCourse(ctx, "job_req1", sampleCourse("gardening"))
	require.NoError(t, err)

	second, err := manager.CourseStorage().PersistCourse(ctx, "job_req1", sampleCourse("gardening"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	courses, err := manager.CourseStorage().ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 1)
}

func TestPersistCourse_RewritesCitationRefs(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	course := sampleCourse("gardening")
	course.Citations = []models.Citation{
		{LessonRef: "0/1", ChunkIDs: []string{"chunk_a", "chunk_b"}},
	}

	courseID, err := manager.CourseStorage().PersistCourse(ctx, "job_req1", course)
	require.NoError(t, err)

	saved, err := manager.CourseStorage().GetCourse(ctx, courseID)
	require.NoError(t, err)
	require.Len(t, saved.Citations, 1)

	lessonID := saved.Structure.Modules[0].Lessons[1].ID
	assert.Equal(t, lessonID, saved.Citations[0].LessonRef)
}

func TestUpdateLessonContent(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	courseID, err := manager.CourseStorage().PersistCourse(ctx, "job_req1", sampleCourse("gardening"))
	require.NoError(t, err)

	course, err := manager.CourseStorage().GetCourse(ctx, courseID)
	require.NoError(t, err)
	lessonID := course.Structure.Modules[0].Lessons[0].ID

	citation := &models.Citation{LessonRef: lessonID, ChunkIDs: []string{"chunk_x"}}
	err = manager.CourseStorage().UpdateLessonContent(ctx, courseID, lessonID, "# Lesson body", citation)
	require.NoError(t, err)

	updated, err := manager.CourseStorage().GetCourse(ctx, courseID)
	require.NoError(t, err)
	_, lesson := updated.FindLesson(lessonID)
	require.NotNil(t, lesson)
	assert.Equal(t, "# Lesson body", lesson.Content)
	require.Len(t, updated.Citations, 1)
	assert.Equal(t, []string{"chunk_x"}, updated.Citations[0].ChunkIDs)
}

func TestUpdateLessonContent_UnknownLesson(t *testing.T) {
	manager := newTestManager(t)
	ctx := context.Background()

	courseID, err := manager.CourseStorage().PersistCourse(ctx, "job_req1", sampleCourse("gardening"))
	require.NoError(t, err)

	err = manager.CourseStorage().UpdateLessonContent(ctx, courseID, "lesson_missing", "body", nil)
	assert.Error(t, err)
}
