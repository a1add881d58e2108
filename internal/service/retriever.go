package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/telemetry"
)

// DefaultRetrievalK is the number of chunks fed to the model as context.
const DefaultRetrievalK = 10

// QueryEmbedder embeds a retrieval query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher finds stored chunks nearest to an embedding.
type ChunkSearcher interface {
	SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedChunk, error)
}

// Retriever assembles textbook context for a subject and topic.
type Retriever struct {
	embedder QueryEmbedder
	store    ChunkSearcher
	k        int
}

func NewRetriever(embedder QueryEmbedder, store ChunkSearcher, k int) *Retriever {
	if k <= 0 {
		k = DefaultRetrievalK
	}
	return &Retriever{embedder: embedder, store: store, k: k}
}

// RetrievalQuery is the text embedded to look up context.
func RetrievalQuery(subject, topic string) string {
	return fmt.Sprintf("JEE %s problems related to %s", subject, topic)
}

// Retrieve returns the contents of the k nearest chunks, most similar first,
// separated by a blank line. An empty store yields an empty context.
func (r *Retriever) Retrieve(ctx context.Context, subject, topic string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "retriever.retrieve", telemetry.SpanAttributes{
		Subject:   subject,
		Topic:     topic,
		Operation: "retrieve",
	})
	defer span.End()

	if r.embedder == nil {
		return "", domain.ErrMissingModelCredential
	}

	vec, err := r.embedder.EmbedQuery(ctx, RetrievalQuery(subject, topic))
	if err != nil {
		span.SetError(err)
		return "", err
	}

	chunks, err := r.store.SimilaritySearch(ctx, vec, r.k)
	if err != nil {
		span.SetError(err)
		return "", fmt.Errorf("similarity search failed: %w", err)
	}

	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Content
	}
	return strings.Join(parts, "\n\n"), nil
}
