package admin

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/contestgen/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	key         string
	contentType string
	body        []byte
}

func (w *recordingWriter) PutObject(_ context.Context, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	w.key, w.contentType, w.body = key, contentType, data
	return nil
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "documents/hc-verma.pdf", objectKey("documents/", "/tmp/books/hc-verma.pdf"))
	assert.Equal(t, "documents/notes.txt", objectKey("documents", "notes.txt"))
	assert.Equal(t, "notes.txt", objectKey("", "./notes.txt"))
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("Newton's laws"), 0o644))

	w := &recordingWriter{}
	err := uploadFile(context.Background(), w, file, "documents/notes.txt")

	require.NoError(t, err)
	assert.Equal(t, "documents/notes.txt", w.key)
	assert.Contains(t, w.contentType, "text/plain")
	assert.True(t, bytes.Equal([]byte("Newton's laws"), w.body))
}

func TestUploadFile_Missing(t *testing.T) {
	err := uploadFile(context.Background(), &recordingWriter{}, filepath.Join(t.TempDir(), "absent.pdf"), "k")

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIngesterConfig(t *testing.T) {
	got := ingesterConfig(&config.Config{
		BatchSize:        5,
		BatchMaxAttempts: 3,
		BatchBackoffBase: time.Minute,
		BatchDelay:       5 * time.Second,
	})

	assert.Equal(t, 5, got.BatchSize)
	assert.Equal(t, 3, got.MaxAttempts)
	assert.Equal(t, time.Minute, got.BackoffBase)
	assert.Equal(t, 5*time.Second, got.BatchDelay)
}

func TestCommands_Flags(t *testing.T) {
	serve := ServeCmd()
	assert.NotNil(t, serve.Flags().Lookup("port"))
	assert.NotNil(t, serve.Flags().Lookup("no-migrate"))

	ingestCmd := IngestCmd()
	assert.NotNil(t, ingestCmd.Flags().Lookup("s3"))
	assert.NotNil(t, ingestCmd.Flags().Lookup("dir"))

	gen := GenerateCmd()
	subject, err := gen.Flags().GetString("subject")
	require.NoError(t, err)
	assert.Equal(t, "Physics", subject)

	upload := UploadCmd()
	assert.Error(t, upload.Args(upload, nil))
}
