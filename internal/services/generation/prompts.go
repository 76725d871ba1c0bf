package generation

import (
	"fmt"
	"strings"

	"github.com/ternarybob/doceo/internal/models"
)

const structureSystemPrompt = `You are a curriculum designer. You design practical, well-paced courses.
Respond with a single JSON object and nothing else: no prose, no markdown fences.`

const structureFormat = `{
  "title": "...",
  "description": "...",
  "modules": [
    {
      "title": "...",
      "description": "...",
      "lessons": [
        {"title": "...", "objective": "..."}
      ]
    }
  ]
}`

// buildStructurePrompt assembles the course structure prompt. Retrieved
// chunks are tagged with their IDs so the raw response can be traced back
// to its grounding context.
func buildStructurePrompt(topic, level, goal string, chunks []*models.Chunk) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Design a course about %q for a %s learner.\n", topic, level)
	if goal != "" {
		fmt.Fprintf(&b, "The learner's goal: %s\n", goal)
	}
	b.WriteString("\n")

	if len(chunks) > 0 {
		b.WriteString("Base the course on the following source material. Do not invent facts that contradict it.\n\n")
		for _, chunk := range chunks {
			fmt.Fprintf(&b, "[chunk:%s]\n%s\n\n", chunk.ID, chunk.Text)
		}
	} else {
		b.WriteString("No source material is available. Design the course from general knowledge.\n\n")
	}

	b.WriteString("Return a JSON object with this exact shape:\n")
	b.WriteString(structureFormat)
	b.WriteString("\nEvery module needs at least one lesson. Respond with only the JSON object.")

	return b.String()
}

// buildRepairPrompt asks the model to fix its own malformed output. The
// instruction is stricter than the first attempt; small models often
// comply on the second try.
func buildRepairPrompt(raw string) string {
	var b strings.Builder

	b.WriteString("Your previous response could not be parsed as JSON. Here is what you sent:\n\n")
	b.WriteString(raw)
	b.WriteString("\n\nResend the course as a single valid JSON object with this exact shape:\n")
	b.WriteString(structureFormat)
	b.WriteString("\nDo not include markdown fences, comments, trailing commas, or any text outside the JSON object.")

	return b.String()
}

const lessonSystemPrompt = `You are a teacher writing lesson content in markdown.
Write clear, practical prose with concrete examples. Do not add a references section; that is appended separately.`

// buildLessonPrompt assembles the prompt for streaming one lesson's body.
func buildLessonPrompt(course *models.Course, module *models.CourseModule, lesson *models.Lesson, chunks []*models.Chunk) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write the full content for the lesson %q in the module %q of a course about %q.\n",
		lesson.Title, module.Title, course.Topic)
	if lesson.Objective != "" {
		fmt.Fprintf(&b, "Lesson objective: %s\n", lesson.Objective)
	}
	if course.Level != "" {
		fmt.Fprintf(&b, "Audience level: %s\n", course.Level)
	}
	b.WriteString("\n")

	if len(chunks) > 0 {
		b.WriteString("Ground the lesson in this source material:\n\n")
		for _, chunk := range chunks {
			fmt.Fprintf(&b, "[chunk:%s]\n%s\n\n", chunk.ID, chunk.Text)
		}
	}

	b.WriteString("Write the lesson in markdown, starting with a level-2 heading.")

	return b.String()
}

// referencesSection renders the appended source list for a lesson.
func referencesSection(chunks []*models.Chunk, resourceTitle func(resourceID string) string) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n## References\n")

	seen := make(map[string]bool)
	for _, chunk := range chunks {
		title := resourceTitle(chunk.ResourceID)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		fmt.Fprintf(&b, "- %s\n", title)
	}

	if len(seen) == 0 {
		return ""
	}
	return b.String()
}
