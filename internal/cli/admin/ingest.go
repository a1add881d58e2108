package admin

import (
	"fmt"

	"github.com/cloo-solutions/contestgen/internal/config"
	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/ingest"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/repository"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load study material into the vector store",
		Long: `Split every PDF and text file into overlapping chunks, embed them in
rate-limited batches and store them. Chunks previously stored for a file are
replaced.

By default files are read from DATA_DIR. With --s3, documents are read from
the configured bucket under S3_DOCUMENTS_PREFIX.`,
		RunE: runIngest,
	}

	cmd.Flags().StringP("dir", "d", "", "Directory to ingest (overrides DATA_DIR)")
	cmd.Flags().Bool("s3", false, "Ingest documents from object storage instead of a directory")
	cmd.Flags().String("prefix", "", "Object key prefix (overrides S3_DOCUMENTS_PREFIX)")

	return cmd
}

func ingesterConfig(cfg *config.Config) ingest.IngesterConfig {
	return ingest.IngesterConfig{
		BatchSize:   cfg.BatchSize,
		MaxAttempts: cfg.BatchMaxAttempts,
		BackoffBase: cfg.BatchBackoffBase,
		BatchDelay:  cfg.BatchDelay,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	shutdownTelemetry := initTelemetry(cfg)
	defer shutdownTelemetry()

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer provider.Close()
	if provider.Embedder == nil {
		return domain.ErrMissingModelCredential
	}

	loader := ingest.NewLoader(nil)
	var docs []domain.Document

	if fromS3, _ := cmd.Flags().GetBool("s3"); fromS3 {
		store, err := openDocumentStore(ctx, cfg)
		if err != nil {
			return err
		}
		prefix, _ := cmd.Flags().GetString("prefix")
		if prefix == "" {
			prefix = cfg.S3DocumentsPrefix
		}
		docs, err = loader.LoadObjects(ctx, store, prefix)
		if err != nil {
			return err
		}
	} else {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.DataDir
		}
		docs, err = loader.LoadDir(ctx, dir)
		if err != nil {
			return err
		}
	}

	pool, err := openDatabase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer pool.Close()

	chunker := ingest.NewChunker(ingest.WithChunkSize(cfg.ChunkSize), ingest.WithOverlap(cfg.ChunkOverlap))
	ingester := ingest.NewIngester(chunker, provider.Embedder, repository.NewChunkRepository(pool), ingesterConfig(cfg), metrics.New())

	report, err := ingester.Ingest(ctx, docs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Ingested %d documents: %d chunks in %d batches (%d retries)\n",
		report.Documents, report.Chunks, report.Batches, report.Retries)
	return nil
}
