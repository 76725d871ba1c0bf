// Package chunker splits raw text into overlapping, context-preserving
// chunks sized for embedding and retrieval.
package chunker

import (
	"strings"
	"time"

	"github.com/ternarybob/doceo/internal/common"
	"github.com/ternarybob/doceo/internal/models"
)

// DefaultTargetTokens is the default chunk size in whitespace tokens
const DefaultTargetTokens = 500

// DefaultOverlapTokens is the default overlap carried between chunks
const DefaultOverlapTokens = 50

// Chunker splits text into chunks of roughly targetTokens whitespace
// tokens, carrying overlapTokens of trailing context from each chunk into
// the start of the next. Split is a pure function of its input.
type Chunker struct {
	targetTokens  int
	overlapTokens int
}

// Option configures the chunker
type Option func(*Chunker)

// WithTargetTokens sets the chunk size in tokens
func WithTargetTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.targetTokens = n
		}
	}
}

// WithOverlapTokens sets the overlap between chunks in tokens
func WithOverlapTokens(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

// New creates a chunker with the given options
func New(opts ...Option) *Chunker {
	c := &Chunker{
		targetTokens:  DefaultTargetTokens,
		overlapTokens: DefaultOverlapTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlapTokens >= c.targetTokens {
		c.overlapTokens = c.targetTokens / 4
	}
	return c
}

// Overlap returns the configured overlap in tokens
func (c *Chunker) Overlap() int {
	return c.overlapTokens
}

// Split chunks text for the given resource. Text shorter than the target
// yields exactly one chunk; a single token longer than the target is
// emitted as its own chunk rather than dropped. No chunk is empty.
func (c *Chunker) Split(resourceID, text string) []models.Chunk {
	pieces := c.split(text)
	merged := c.merge(pieces)
	if len(merged) == 0 {
		return nil
	}

	now := time.Now()
	chunks := make([]models.Chunk, 0, len(merged))
	var prev []string

	for i, tokens := range merged {
		own := tokens
		if i > 0 && c.overlapTokens > 0 {
			carry := c.overlapTokens
			if carry > len(prev) {
				carry = len(prev)
			}
			withOverlap := make([]string, 0, carry+len(own))
			withOverlap = append(withOverlap, prev[len(prev)-carry:]...)
			withOverlap = append(withOverlap, own...)
			tokens = withOverlap
		}

		chunks = append(chunks, models.Chunk{
			ID:         common.NewChunkID(),
			ResourceID: resourceID,
			Text:       strings.Join(tokens, " "),
			TokenCount: len(tokens),
			Position:   i,
			CreatedAt:  now,
		})
		prev = own
	}

	return chunks
}

// split breaks text into pieces no larger than targetTokens, preferring
// paragraph boundaries, then sentence boundaries, then fixed-width token
// runs. Pieces are token slices; whitespace is normalized in the process.
func (c *Chunker) split(text string) [][]string {
	var pieces [][]string
	for _, para := range strings.Split(text, "\n\n") {
		tokens := strings.Fields(para)
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) <= c.targetTokens {
			pieces = append(pieces, tokens)
			continue
		}
		for _, sentence := range splitSentences(para) {
			st := strings.Fields(sentence)
			if len(st) == 0 {
				continue
			}
			if len(st) <= c.targetTokens {
				pieces = append(pieces, st)
				continue
			}
			// Fixed-width fallback for a single run without sentence breaks
			for start := 0; start < len(st); start += c.targetTokens {
				end := start + c.targetTokens
				if end > len(st) {
					end = len(st)
				}
				pieces = append(pieces, st[start:end])
			}
		}
	}
	return pieces
}

// merge greedily combines consecutive pieces until each chunk reaches the
// target size. A piece that alone exceeds the target (a single oversized
// token run) is flushed as its own chunk.
func (c *Chunker) merge(pieces [][]string) [][]string {
	var out [][]string
	var current []string

	for _, piece := range pieces {
		if len(current) > 0 && len(current)+len(piece) > c.targetTokens {
			out = append(out, current)
			current = nil
		}
		current = append(current, piece...)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// splitSentences splits text after sentence-ending punctuation followed by
// whitespace. It is deliberately simple; the token budget is approximate
// anyway.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)

	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				sentences = append(sentences, string(runes[start:i+1]))
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}
