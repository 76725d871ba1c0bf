package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := New(WithTargetTokens(100), WithOverlapTokens(10))

	chunks := c.Split("res-1", "a short piece of text")

	require.Len(t, chunks, 1)
	assert.Equal(t, "a short piece of text", chunks[0].Text)
	assert.Equal(t, 5, chunks[0].TokenCount)
	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, "res-1", chunks[0].ResourceID)
}

func TestSplit_EmptyTextNoChunks(t *testing.T) {
	c := New()

	assert.Empty(t, c.Split("res-1", ""))
	assert.Empty(t, c.Split("res-1", "  \n\n  \t "))
}

func TestSplit_NoEmptyChunks(t *testing.T) {
	c := New(WithTargetTokens(5), WithOverlapTokens(1))

	text := "one two three.\n\n\n\nfour five six seven eight nine ten.\n\n"
	for _, chunk := range c.Split("res-1", text) {
		assert.NotEmpty(t, strings.TrimSpace(chunk.Text))
		assert.Greater(t, chunk.TokenCount, 0)
	}
}

func TestSplit_OversizedSingleToken(t *testing.T) {
	c := New(WithTargetTokens(4), WithOverlapTokens(1))

	// One "token" with no whitespace, longer than any target measured in
	// characters. Must be emitted, never dropped.
	giant := strings.Repeat("x", 500)
	chunks := c.Split("res-1", giant)

	require.Len(t, chunks, 1)
	assert.Equal(t, giant, chunks[0].Text)
	assert.Equal(t, 1, chunks[0].TokenCount)
}

func TestSplit_PositionsSequential(t *testing.T) {
	c := New(WithTargetTokens(10), WithOverlapTokens(2))

	var sb strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "word%d ", i)
	}
	chunks := c.Split("res-1", sb.String())

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Position)
	}
}

func TestSplit_OverlapCarriedFromPreviousChunk(t *testing.T) {
	overlap := 3
	c := New(WithTargetTokens(10), WithOverlapTokens(overlap))

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "w%d ", i)
	}
	chunks := c.Split("res-1", sb.String())
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevOwn := ownTokens(chunks[i-1].Text, overlap, i-1 > 0)
		cur := strings.Fields(chunks[i].Text)
		carry := overlap
		if carry > len(prevOwn) {
			carry = len(prevOwn)
		}
		assert.Equal(t, prevOwn[len(prevOwn)-carry:], cur[:carry],
			"chunk %d must start with the tail of chunk %d", i, i-1)
	}
}

// Concatenating all chunks with overlaps removed must reconstruct the
// original token stream - the chunker loses no data.
func TestSplit_ReconstructsOriginal(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		overlap int
		text    string
	}{
		{"paragraphs", 8, 2, "First paragraph with a handful of words in it.\n\nSecond paragraph follows here. It has two sentences.\n\nThird one."},
		{"long run no sentences", 5, 1, strings.Repeat("token ", 57)},
		{"sentences", 6, 2, "One two three. Four five six seven! Eight nine? Ten eleven twelve thirteen fourteen."},
		{"single word", 10, 3, "lonely"},
		{"zero overlap", 7, 0, strings.Repeat("a b c d e ", 13)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithTargetTokens(tt.target), WithOverlapTokens(tt.overlap))
			chunks := c.Split("res-1", tt.text)
			require.NotEmpty(t, chunks)

			var rebuilt []string
			for i, chunk := range chunks {
				tokens := strings.Fields(chunk.Text)
				if i > 0 && c.Overlap() > 0 {
					prevOwn := ownTokens(chunks[i-1].Text, c.Overlap(), i-1 > 0)
					carry := c.Overlap()
					if carry > len(prevOwn) {
						carry = len(prevOwn)
					}
					tokens = tokens[carry:]
				}
				rebuilt = append(rebuilt, tokens...)
			}

			assert.Equal(t, strings.Fields(tt.text), rebuilt)
		})
	}
}

// ownTokens strips the leading overlap from a chunk's token list, giving
// the tokens the chunk contributed itself.
func ownTokens(text string, overlap int, hasOverlap bool) []string {
	tokens := strings.Fields(text)
	if !hasOverlap || overlap == 0 {
		return tokens
	}
	if overlap > len(tokens) {
		return nil
	}
	return tokens[overlap:]
}
