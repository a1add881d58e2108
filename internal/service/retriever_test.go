package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRetrievalQuery(t *testing.T) {
	assert.Equal(t, "JEE Physics problems related to Laws of Motion", RetrievalQuery("Physics", "Laws of Motion"))
}

func TestRetriever_JoinsChunksInOrder(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	store := new(MockChunkSearcher)
	ctx := context.Background()

	vec := []float32{0.1, 0.2}
	embedder.On("EmbedQuery", mock.Anything, "JEE Chemistry problems related to Equilibrium").Return(vec, nil)
	store.On("SimilaritySearch", mock.Anything, vec, DefaultRetrievalK).Return([]domain.RetrievedChunk{
		{Chunk: domain.Chunk{Content: "first"}, Distance: 0.1},
		{Chunk: domain.Chunk{Content: "second"}, Distance: 0.2},
		{Chunk: domain.Chunk{Content: "third"}, Distance: 0.3},
	}, nil)

	got, err := NewRetriever(embedder, store, 0).Retrieve(ctx, "Chemistry", "Equilibrium")

	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond\n\nthird", got)
	embedder.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestRetriever_EmptyStore(t *testing.T) {
	embedder := new(MockQueryEmbedder)
	store := new(MockChunkSearcher)

	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	store.On("SimilaritySearch", mock.Anything, mock.Anything, 3).Return([]domain.RetrievedChunk{}, nil)

	got, err := NewRetriever(embedder, store, 3).Retrieve(context.Background(), "Physics", "Optics")

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetriever_Errors(t *testing.T) {
	t.Run("embed failure", func(t *testing.T) {
		embedder := new(MockQueryEmbedder)
		embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return(nil, errors.New("quota"))

		_, err := NewRetriever(embedder, new(MockChunkSearcher), 10).Retrieve(context.Background(), "Physics", "Optics")
		assert.EqualError(t, err, "quota")
	})

	t.Run("search failure", func(t *testing.T) {
		embedder := new(MockQueryEmbedder)
		store := new(MockChunkSearcher)
		embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1}, nil)
		store.On("SimilaritySearch", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := NewRetriever(embedder, store, 10).Retrieve(context.Background(), "Physics", "Optics")
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("no embedder", func(t *testing.T) {
		_, err := NewRetriever(nil, new(MockChunkSearcher), 10).Retrieve(context.Background(), "Physics", "Optics")
		assert.ErrorIs(t, err, domain.ErrMissingModelCredential)
	})
}
