package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/doceo/internal/interfaces"
	"github.com/ternarybob/doceo/internal/models"
)

// StreamLessonContent generates the body of one lesson, forwarding tokens
// as they arrive. When the stream ends cleanly the full content, with a
// references section appended, is persisted on the course along with a
// citation of the chunks that grounded it. A disconnecting client cancels
// ctx and nothing is persisted.
func (o *Orchestrator) StreamLessonContent(ctx context.Context, courseID, lessonID string) (<-chan interfaces.StreamEvent, error) {
	course, err := o.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	module, lesson := course.FindLesson(lessonID)
	if lesson == nil {
		return nil, fmt.Errorf("lesson not found: %s in course %s", lessonID, courseID)
	}

	query := course.Topic + " " + lesson.Title
	chunks, err := o.retriever.Retrieve(ctx, query, o.config.Retrieval.TopK)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("lesson_id", lessonID).
			Msg("Retrieval failed for lesson content, generating without context")
		chunks = nil
	}

	prompt := buildLessonPrompt(course, module, lesson, chunks)
	startTime := time.Now()

	upstream, err := o.backend.Stream(ctx, &interfaces.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: lessonSystemPrompt,
		Temperature:  o.config.LLM.Temperature,
	})
	if err != nil {
		o.audit.Record(context.WithoutCancel(ctx), "lesson_content", "", prompt, "", startTime, err)
		return nil, err
	}

	events := make(chan interfaces.StreamEvent)

	go func() {
		defer close(events)

		var content strings.Builder
		for event := range upstream {
			if event.Err != nil {
				o.audit.Record(context.WithoutCancel(ctx), "lesson_content", "", prompt, content.String(), startTime, event.Err)
				o.forward(ctx, events, event)
				return
			}

			content.WriteString(event.Token)
			if event.Token != "" && !o.forward(ctx, events, interfaces.StreamEvent{Token: event.Token}) {
				return
			}
			if event.Done {
				break
			}
		}

		if err := ctx.Err(); err != nil {
			return
		}

		references := referencesSection(chunks, func(resourceID string) string {
			resource, err := o.chunks.GetResource(context.WithoutCancel(ctx), resourceID)
			if err != nil {
				return ""
			}
			return resource.Title
		})
		if references != "" {
			content.WriteString(references)
			if !o.forward(ctx, events, interfaces.StreamEvent{Token: references}) {
				return
			}
		}

		o.audit.Record(context.WithoutCancel(ctx), "lesson_content", "", prompt, content.String(), startTime, nil)

		citation := lessonCitation(lessonID, chunks)
		if err := o.courses.UpdateLessonContent(context.WithoutCancel(ctx), courseID, lessonID, content.String(), citation); err != nil {
			o.logger.Error().
				Err(err).
				Str("course_id", courseID).
				Str("lesson_id", lessonID).
				Msg("Failed to persist lesson content")
			o.forward(ctx, events, interfaces.StreamEvent{Err: err})
			return
		}

		o.forward(ctx, events, interfaces.StreamEvent{Done: true})
	}()

	return events, nil
}

func lessonCitation(lessonID string, chunks []*models.Chunk) *models.Citation {
	if len(chunks) == 0 {
		return nil
	}
	chunkIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		chunkIDs[i] = chunk.ID
	}
	return &models.Citation{LessonRef: lessonID, ChunkIDs: chunkIDs}
}

func (o *Orchestrator) forward(ctx context.Context, events chan<- interfaces.StreamEvent, event interfaces.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
