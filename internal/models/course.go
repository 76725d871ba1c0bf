package models

import "time"

// CourseStructure is the transient in-memory result of parsing model
// output. It is validated (and mechanically repaired) before being handed
// to persistence.
type CourseStructure struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Modules     []CourseModule `json:"modules" validate:"required,min=1,dive"`
}

// CourseModule is one module of a generated course
type CourseModule struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Order       int      `json:"order"`
	Lessons     []Lesson `json:"lessons" validate:"required,min=1,dive"`
}

// Lesson is one lesson within a module. Content starts empty and is
// filled by the streaming lesson-content endpoint.
type Lesson struct {
	ID        string `json:"id,omitempty"` // Assigned at persistence time
	Title     string `json:"title" validate:"required"`
	Objective string `json:"objective"`
	Order     int    `json:"order"`
	Content   string `json:"content,omitempty"`
}

// Citation links a generated lesson to the chunks that were in its prompt
// context. Chunk IDs are always a subset of the retrieval result that fed
// the generation step - never invented.
type Citation struct {
	LessonRef string   `json:"lesson_ref"` // "module_order/lesson_order" until persisted, lesson ID after
	ChunkIDs  []string `json:"chunk_ids"`
}

// Course is the persisted course tree
type Course struct {
	ID        string          `json:"id"`         // course_{uuid}
	RequestID string          `json:"request_id"` // Idempotency key (generation job ID)
	Topic     string          `json:"topic"`
	Level     string          `json:"level"`
	Goal      string          `json:"goal"`
	Structure CourseStructure `json:"structure"`
	Citations []Citation      `json:"citations"`
	Degraded  bool            `json:"degraded"` // Generated without retrieval context
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FindLesson returns the lesson with the given ID, or nil
func (c *Course) FindLesson(lessonID string) (*CourseModule, *Lesson) {
	for mi := range c.Structure.Modules {
		for li := range c.Structure.Modules[mi].Lessons {
			if c.Structure.Modules[mi].Lessons[li].ID == lessonID {
				return &c.Structure.Modules[mi], &c.Structure.Modules[mi].Lessons[li]
			}
		}
	}
	return nil, nil
}
