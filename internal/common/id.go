package common

import (
	"github.com/google/uuid"
)

// NewChunkID generates a unique chunk ID with the "chunk_" prefix
func NewChunkID() string {
	return "chunk_" + uuid.New().String()
}

// NewResourceID generates a unique resource ID with the "res_" prefix
func NewResourceID() string {
	return "res_" + uuid.New().String()
}

// NewCourseID generates a unique course ID with the "course_" prefix
func NewCourseID() string {
	return "course_" + uuid.New().String()
}

// NewLessonID generates a unique lesson ID with the "lesson_" prefix
func NewLessonID() string {
	return "lesson_" + uuid.New().String()
}

// NewJobID generates a unique generation job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewCallID generates a unique model call record ID with the "call_" prefix
func NewCallID() string {
	return "call_" + uuid.New().String()
}
