package domain

import "time"

// Document is the extracted text of one page of a source file.
type Document struct {
	Source string
	Page   int
	Text   string
}

// Chunk is an embedded slice of a document.
type Chunk struct {
	ID          string
	Source      string
	Page        int
	ChunkIndex  int
	StartOffset int
	Content     string
	Embedding   []float32
	CreatedAt   time.Time
}

// RetrievedChunk is a chunk returned by similarity search.
type RetrievedChunk struct {
	Chunk
	Distance float64
}
