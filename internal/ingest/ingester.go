package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/metrics"
)

const (
	DefaultBatchSize   = 5
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 60 * time.Second
	DefaultBatchDelay  = 5 * time.Second
)

// Embedder turns chunk texts into vectors, one per input, in order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore persists embedded chunks.
type ChunkStore interface {
	// StoreBatch inserts chunks atomically, first dropping every chunk
	// previously stored for the sources in replace.
	StoreBatch(ctx context.Context, replace []string, chunks []domain.Chunk) error
}

// BatchError is returned once a batch has used up all of its attempts.
type BatchError struct {
	Batch    int
	Total    int
	Attempts int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d/%d failed after %d attempts: %v", e.Batch, e.Total, e.Attempts, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// IngesterConfig tunes batching against the embedding provider's rate limit.
type IngesterConfig struct {
	BatchSize   int
	MaxAttempts int
	// BackoffBase is multiplied by the attempt number before the next attempt.
	BackoffBase time.Duration
	// BatchDelay is slept between consecutive batches.
	BatchDelay time.Duration
}

func DefaultIngesterConfig() IngesterConfig {
	return IngesterConfig{
		BatchSize:   DefaultBatchSize,
		MaxAttempts: DefaultMaxAttempts,
		BackoffBase: DefaultBackoffBase,
		BatchDelay:  DefaultBatchDelay,
	}
}

// Report summarizes one ingestion run.
type Report struct {
	Documents int
	Chunks    int
	Batches   int
	Retries   int
}

// Ingester chunks documents and stores them in sequential batches.
type Ingester struct {
	chunker  *Chunker
	embedder Embedder
	store    ChunkStore
	cfg      IngesterConfig
	metrics  *metrics.Metrics
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewIngester(chunker *Chunker, embedder Embedder, store ChunkStore, cfg IngesterConfig, m *metrics.Metrics) *Ingester {
	if chunker == nil {
		chunker = NewChunker()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Ingester{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		metrics:  m,
		sleep:    sleepContext,
	}
}

// Ingest replaces the stored chunks of every loaded source. A source's old
// chunks are dropped in the same transaction as its first new batch, so a
// failed batch never loses data that was stored before the run. Batches
// already stored stay stored when a later batch fails.
func (i *Ingester) Ingest(ctx context.Context, docs []domain.Document) (*Report, error) {
	report := &Report{Documents: len(docs)}
	if len(docs) == 0 {
		log.Println("ingest: no documents found, nothing to do")
		return report, nil
	}

	chunks := i.chunker.SplitAll(docs)
	report.Chunks = len(chunks)
	log.Printf("ingest: loaded %d documents, %d chunks", len(docs), len(chunks))

	replaced := make(map[string]bool)
	total := (len(chunks) + i.cfg.BatchSize - 1) / i.cfg.BatchSize
	for start, n := 0, 1; start < len(chunks); start, n = start+i.cfg.BatchSize, n+1 {
		end := start + i.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		log.Printf("ingest: batch %d/%d (chunks %d to %d of %d)", n, total, start, end, len(chunks))
		batch := chunks[start:end]
		replace := pendingSources(batch, replaced)
		retries, err := i.storeWithRetry(ctx, replace, batch, n, total)
		report.Retries += retries
		if err != nil {
			return report, err
		}
		for _, source := range replace {
			replaced[source] = true
		}
		report.Batches++
		i.metrics.ChunksIngested(end - start)

		if end < len(chunks) && i.cfg.BatchDelay > 0 {
			if err := i.sleep(ctx, i.cfg.BatchDelay); err != nil {
				return report, err
			}
		}
	}

	log.Printf("ingest: stored %d chunks in %d batches", report.Chunks, report.Batches)
	return report, nil
}

// pendingSources lists, in order, the sources in batch whose old chunks have
// not been dropped yet during this run.
func pendingSources(batch []domain.Chunk, replaced map[string]bool) []string {
	var sources []string
	seen := make(map[string]bool)
	for _, c := range batch {
		if replaced[c.Source] || seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		sources = append(sources, c.Source)
	}
	return sources
}

func (i *Ingester) storeWithRetry(ctx context.Context, replace []string, batch []domain.Chunk, n, total int) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= i.cfg.MaxAttempts; attempt++ {
		lastErr = i.storeBatch(ctx, replace, batch)
		if lastErr == nil {
			i.metrics.IngestBatch(metrics.OutcomeSuccess)
			return attempt - 1, nil
		}
		if ctx.Err() != nil {
			return attempt - 1, ctx.Err()
		}

		log.Printf("ingest: batch %d attempt %d failed: %v", n, attempt, lastErr)
		if attempt == i.cfg.MaxAttempts {
			break
		}

		i.metrics.IngestBatch(metrics.OutcomeRetry)
		wait := i.cfg.BackoffBase * time.Duration(attempt)
		log.Printf("ingest: waiting %v before retrying batch %d", wait, n)
		if err := i.sleep(ctx, wait); err != nil {
			return attempt, err
		}
	}

	i.metrics.IngestBatch(metrics.OutcomeFailure)
	return i.cfg.MaxAttempts - 1, &BatchError{Batch: n, Total: total, Attempts: i.cfg.MaxAttempts, Err: lastErr}
}

func (i *Ingester) storeBatch(ctx context.Context, replace []string, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for j, c := range batch {
		texts[j] = c.Content
	}

	vectors, err := i.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
	}

	embedded := make([]domain.Chunk, len(batch))
	for j := range batch {
		embedded[j] = batch[j]
		embedded[j].Embedding = vectors[j]
	}
	return i.store.StoreBatch(ctx, replace, embedded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
