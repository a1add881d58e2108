package ingest

import (
	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/google/uuid"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits documents into fixed-size, overlapping rune windows.
type Chunker struct {
	size    int
	overlap int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the number of characters shared by consecutive chunks.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Split cuts one document into chunks. The last Overlap characters of chunk i
// are the first Overlap characters of chunk i+1.
func (c *Chunker) Split(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, len(runes)/step+1)

	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, domain.Chunk{
			ID:          uuid.NewString(),
			Source:      doc.Source,
			Page:        doc.Page,
			ChunkIndex:  len(chunks),
			StartOffset: start,
			Content:     string(runes[start:end]),
		})

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// SplitAll chunks every document in order.
func (c *Chunker) SplitAll(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.Split(doc)...)
	}
	return chunks
}
