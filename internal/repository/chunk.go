package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository stores embedded document chunks and serves similarity search.
type ChunkRepository struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool, db: pool}
}

// InsertBatch stores a batch atomically. A failed batch leaves nothing behind,
// so it can be retried as a whole.
func (r *ChunkRepository) InsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	return r.StoreBatch(ctx, nil, chunks)
}

// StoreBatch drops every chunk stored for the sources in replace and inserts
// chunks, all in one transaction. When anything fails the old chunks are
// still there.
func (r *ChunkRepository) StoreBatch(ctx context.Context, replace []string, chunks []domain.Chunk) error {
	if len(replace) == 0 && len(chunks) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		if len(replace) > 0 {
			batch.Queue(`DELETE FROM document_chunks WHERE source = ANY($1)`, replace)
		}
		for _, c := range chunks {
			id := c.ID
			if id == "" {
				id = uuid.NewString()
			}
			createdAt := c.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			batch.Queue(
				`INSERT INTO document_chunks (id, source, page, chunk_index, start_offset, content, embedding, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				id, c.Source, c.Page, c.ChunkIndex, c.StartOffset, c.Content, pgvector.NewVector(c.Embedding), createdAt,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// SimilaritySearch returns the k chunks nearest to embedding by cosine distance.
func (r *ChunkRepository) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		k = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, source, page, chunk_index, start_offset, content, created_at, embedding <=> $1 AS distance
		 FROM document_chunks
		 ORDER BY distance ASC
		 LIMIT $2`,
		pgvector.NewVector(embedding), k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.RetrievedChunk, 0, k)
	for rows.Next() {
		var rc domain.RetrievedChunk
		if err := rows.Scan(&rc.ID, &rc.Source, &rc.Page, &rc.ChunkIndex, &rc.StartOffset, &rc.Content, &rc.CreatedAt, &rc.Distance); err != nil {
			return nil, err
		}
		results = append(results, rc)
	}
	return results, rows.Err()
}

// Count returns the number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&n)
	return n, err
}
