package ingest

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_Defaults(t *testing.T) {
	c := NewChunker()
	assert.Equal(t, DefaultChunkSize, c.size)
	assert.Equal(t, DefaultChunkOverlap, c.overlap)
}

func TestNewChunker_OverlapClamped(t *testing.T) {
	c := NewChunker(WithChunkSize(100), WithOverlap(100))
	assert.Equal(t, 25, c.overlap)

	c = NewChunker(WithChunkSize(-5), WithOverlap(-1))
	assert.Equal(t, DefaultChunkSize, c.size)
	assert.Equal(t, DefaultChunkOverlap, c.overlap)
}

func TestChunker_Split_Empty(t *testing.T) {
	c := NewChunker()
	assert.Nil(t, c.Split(domain.Document{Source: "a.txt"}))
}

func TestChunker_Split_ShortDocument(t *testing.T) {
	c := NewChunker()
	chunks := c.Split(domain.Document{Source: "a.txt", Page: 2, Text: "Newton's laws"})

	require.Len(t, chunks, 1)
	assert.Equal(t, "Newton's laws", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 2, chunks[0].Page)
	assert.Equal(t, "a.txt", chunks[0].Source)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestChunker_Split_OverlapInvariant(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		size    int
		overlap int
	}{
		{"defaults", 4321, 1000, 200},
		{"exact multiple", 1000 + 800*3, 1000, 200},
		{"small windows", 97, 10, 3},
		{"no overlap", 55, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			for i := 0; i < tt.length; i++ {
				b.WriteByte(byte('a' + i%26))
			}
			text := b.String()

			c := NewChunker(WithChunkSize(tt.size), WithOverlap(tt.overlap))
			chunks := c.Split(domain.Document{Source: "doc.txt", Text: text})
			require.NotEmpty(t, chunks)

			for i, ch := range chunks {
				assert.LessOrEqual(t, len([]rune(ch.Content)), tt.size)
				assert.Equal(t, i, ch.ChunkIndex)
				assert.Equal(t, text[ch.StartOffset:ch.StartOffset+len(ch.Content)], ch.Content)
			}

			for i := 0; i+1 < len(chunks); i++ {
				cur := chunks[i].Content
				next := chunks[i+1].Content
				assert.Equal(t, cur[len(cur)-tt.overlap:], next[:tt.overlap])
			}

			last := chunks[len(chunks)-1]
			assert.Equal(t, len(text), last.StartOffset+len(last.Content))
		})
	}
}

func TestChunker_Split_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("θ", 25)
	c := NewChunker(WithChunkSize(10), WithOverlap(2))

	chunks := c.Split(domain.Document{Text: text})

	require.Len(t, chunks, 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Content)), 10)
	}
	assert.Equal(t, 16, chunks[2].StartOffset)
}

func TestChunker_SplitAll(t *testing.T) {
	c := NewChunker(WithChunkSize(10), WithOverlap(2))
	docs := []domain.Document{
		{Source: "a.txt", Text: strings.Repeat("x", 15)},
		{Source: "b.txt", Text: "short"},
	}

	chunks := c.SplitAll(docs)

	require.Len(t, chunks, 3)
	assert.Equal(t, "a.txt", chunks[0].Source)
	assert.Equal(t, "a.txt", chunks[1].Source)
	assert.Equal(t, "b.txt", chunks[2].Source)
	assert.Equal(t, 0, chunks[2].ChunkIndex)
}
