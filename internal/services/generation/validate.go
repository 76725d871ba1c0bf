package generation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/doceo/internal/models"
)

// ValidationError wraps the reason a parsed structure was rejected after
// mechanical repair. It maps to the validation_failure job reason.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("course structure failed validation: %s", e.Reason)
}

var validate = validator.New()

// repairStructure applies mechanical fixes that don't require judgment:
// trimming whitespace, re-deriving order fields from position, dropping
// fully empty lessons. Anything beyond that is a validation failure, not
// something to paper over.
func repairStructure(structure *models.CourseStructure) {
	structure.Title = strings.TrimSpace(structure.Title)
	structure.Description = strings.TrimSpace(structure.Description)

	for mi := range structure.Modules {
		module := &structure.Modules[mi]
		module.Title = strings.TrimSpace(module.Title)
		module.Description = strings.TrimSpace(module.Description)
		module.Order = mi

		lessons := module.Lessons[:0]
		for _, lesson := range module.Lessons {
			lesson.Title = strings.TrimSpace(lesson.Title)
			lesson.Objective = strings.TrimSpace(lesson.Objective)
			if lesson.Title == "" && lesson.Objective == "" {
				continue
			}
			lesson.Order = len(lessons)
			lessons = append(lessons, lesson)
		}
		module.Lessons = lessons
	}
}

// validateStructure checks a repaired structure against the model
// constraints. A module without lessons is a hard failure; a course
// missing a title gets one derived from the topic instead.
func validateStructure(structure *models.CourseStructure, topic string) error {
	if structure.Title == "" {
		structure.Title = topic
	}

	if err := validate.Struct(structure); err != nil {
		return &ValidationError{Reason: err.Error()}
	}

	for _, module := range structure.Modules {
		if len(module.Lessons) == 0 {
			return &ValidationError{Reason: fmt.Sprintf("module %q has no lessons", module.Title)}
		}
	}
	return nil
}
