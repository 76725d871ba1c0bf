// Package extractor recovers well-formed course structures from noisy
// model output. Small local models reliably violate "return only JSON"
// instructions, so parsing is a layered sequence of fallbacks: raw JSON,
// markdown fence stripping, then the first balanced brace span.
package extractor

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/doceo/internal/models"
)

// MalformedResponseError is returned when no fallback produced a valid
// structure. The original text is attached for diagnostics.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

var (
	fenceOpenRe   = regexp.MustCompile("(?m)^\\s*```(?:json)?\\s*$")
	fenceInline   = regexp.MustCompile("```(?:json)?")
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// Extract parses raw model output into a course structure. It never
// guesses missing required fields: a structure without modules is a parse
// failure, not a best-effort partial result.
func Extract(raw string) (*models.CourseStructure, error) {
	candidates := []string{
		strings.TrimSpace(raw),
		stripFences(raw),
	}
	candidates = append(candidates, balancedSpans(raw)...)

	var lastErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		structure, err := parse(candidate)
		if err == nil {
			return structure, nil
		}
		lastErr = err
	}

	reason := "no JSON object found"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return nil, &MalformedResponseError{Raw: raw, Reason: reason}
}

// parse unmarshals a single candidate, tolerating trailing commas - the
// most common small-model JSON defect.
func parse(candidate string) (*models.CourseStructure, error) {
	var structure models.CourseStructure

	err := json.Unmarshal([]byte(candidate), &structure)
	if err != nil {
		cleaned := trailingComma.ReplaceAllString(candidate, "$1")
		if cleaned == candidate {
			return nil, err
		}
		if err = json.Unmarshal([]byte(cleaned), &structure); err != nil {
			return nil, err
		}
	}

	if len(structure.Modules) == 0 {
		return nil, fmt.Errorf("structure has no modules")
	}
	return &structure, nil
}

// stripFences removes markdown code fence markers and returns the inner
// text, or "" when the text carries no fences.
func stripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return ""
	}
	stripped := fenceOpenRe.ReplaceAllString(raw, "")
	stripped = fenceInline.ReplaceAllString(stripped, "")
	return strings.TrimSpace(stripped)
}

// balancedSpans locates every top-level balanced {...} span in the text,
// in order of appearance. Brace depth is tracked outside of JSON strings,
// and prose fragments like "{title, modules}" are simply candidates that
// fail to parse, so callers try each span in turn.
func balancedSpans(raw string) []string {
	var spans []string

	offset := 0
	for offset < len(raw) {
		rel := strings.IndexByte(raw[offset:], '{')
		if rel < 0 {
			break
		}
		start := offset + rel

		end := matchBrace(raw, start)
		if end < 0 {
			// An unclosed brace, usually prose. A balanced span may
			// still start after it, so resume at the next brace.
			offset = start + 1
			continue
		}
		spans = append(spans, raw[start:end+1])
		offset = end + 1
	}
	return spans
}

// matchBrace returns the index of the brace closing the one at start, or
// -1 when the span never closes.
func matchBrace(raw string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		ch := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
