package admin

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/contestgen/internal/config"
	"github.com/cloo-solutions/contestgen/internal/database"
	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/ingest"
	"github.com/spf13/cobra"
)

const providerProbeText = "Hello world"

// CheckProviderCmd returns the check-provider command
func CheckProviderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-provider",
		Short: "Verify the model credential and the PDF text extractor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			provider, err := newProvider(ctx, cfg)
			if err != nil {
				return err
			}
			defer provider.Close()
			if !provider.Available() {
				return domain.ErrMissingModelCredential
			}

			vec, err := provider.Embedder.EmbedQuery(ctx, providerProbeText)
			if err != nil {
				return fmt.Errorf("%s embedding failed: %w", provider.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s embedding OK: %d dimensions\n", provider.Name, len(vec))

			if err := ingest.CheckAvailable(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %v; PDF ingestion will fail\n", err)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ pdftotext found")
			}
			return nil
		},
	}
}

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			version, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsSource)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Database at schema version %d\n", version)
			return nil
		},
	}
}

// UploadCmd returns the upload command
func UploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload study material to object storage",
		Long: `Upload PDF and text files to the configured bucket under
S3_DOCUMENTS_PREFIX, ready for "ingest --s3".`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().String("prefix", "", "Object key prefix (overrides S3_DOCUMENTS_PREFIX)")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	prefix, _ := cmd.Flags().GetString("prefix")
	if prefix == "" {
		prefix = cfg.S3DocumentsPrefix
	}

	store, err := openDocumentStore(ctx, cfg)
	if err != nil {
		return err
	}

	for _, file := range args {
		key := objectKey(prefix, file)
		if err := uploadFile(ctx, store, file, key); err != nil {
			return fmt.Errorf("failed to upload %s: %w", file, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s -> %s\n", file, key)
	}
	return nil
}

type objectWriter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
}

func uploadFile(ctx context.Context, store objectWriter, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(file)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return store.PutObject(ctx, key, f, contentType)
}

// objectKey joins prefix and the file's base name with exactly one slash.
func objectKey(prefix, file string) string {
	return path.Join(strings.TrimSuffix(prefix, "/"), filepath.Base(file))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
