package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/contestgen/internal/config"
	"github.com/cloo-solutions/contestgen/internal/database"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/orbit"
	"github.com/cloo-solutions/contestgen/internal/service"
	"github.com/cloo-solutions/contestgen/internal/storage"
	"github.com/cloo-solutions/contestgen/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
)

// initTelemetry starts Sentry when a DSN is configured. The returned func
// flushes pending events and is always safe to call.
func initTelemetry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}

	// 10% sampling in production, everything in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}

	shutdown, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		log.Printf("telemetry init failed (continuing without tracing): %v", err)
		return func() {}
	}
	return shutdown
}

func openDatabase(ctx context.Context, cfg *config.Config, migrate bool) (*pgxpool.Pool, error) {
	if migrate {
		if _, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsSource); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("connected to database")
	return pool, nil
}

func openDocumentStore(ctx context.Context, cfg *config.Config) (*storage.S3Client, error) {
	if !cfg.HasS3() {
		return nil, fmt.Errorf("S3 is not configured: set S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY")
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	return client, nil
}

func newGenerator(cfg *config.Config, chunks service.ChunkSearcher, provider *llmProvider, m *metrics.Metrics) *service.ContestGenerator {
	var embedder service.QueryEmbedder
	if provider.Embedder != nil {
		embedder = provider.Embedder
	}
	retriever := service.NewRetriever(embedder, chunks, cfg.RetrievalK)
	return service.NewContestGenerator(retriever, provider.Model, m)
}

// newPipeline wires retrieval, generation and publishing for one provider.
func newPipeline(cfg *config.Config, chunks service.ChunkSearcher, provider *llmProvider, m *metrics.Metrics) *service.Pipeline {
	generator := newGenerator(cfg, chunks, provider, m)

	backend := orbit.NewClient(cfg.OrbitBackendURL, cfg.AdminToken)
	if !backend.HasToken() {
		log.Println("ADMIN_TOKEN not set: generated contests will not be published")
	}
	return service.NewPipeline(generator, service.NewPublisher(backend, m), m)
}
