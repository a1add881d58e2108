package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloo-solutions/contestgen/internal/domain"
)

const (
	extPDF = ".pdf"
	extTXT = ".txt"
)

// ObjectSource lists and reads documents kept in object storage.
type ObjectSource interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
}

// Loader reads study material into per-page documents.
type Loader struct {
	pdf *PDFExtractor
}

func NewLoader(pdf *PDFExtractor) *Loader {
	if pdf == nil {
		pdf = NewPDFExtractor()
	}
	return &Loader{pdf: pdf}
}

// LoadDir loads every *.pdf and *.txt directly under dir. A missing directory
// or an unreadable file is logged and skipped. A missing pdftotext is an
// error as soon as a PDF is reached.
func (l *Loader) LoadDir(ctx context.Context, dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("ingest: data directory %s does not exist", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isSupported(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var docs []domain.Document
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		full := filepath.Join(dir, name)
		fileDocs, err := l.loadFile(ctx, full, full)
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, err
		}
		if err != nil {
			log.Printf("ingest: skipping %s: %v", full, err)
			continue
		}
		docs = append(docs, fileDocs...)
	}

	return docs, nil
}

// LoadObjects loads every supported object under prefix. Objects are staged
// in a temporary file so PDFs can go through pdftotext.
func (l *Loader) LoadObjects(ctx context.Context, src ObjectSource, prefix string) ([]domain.Document, error) {
	keys, err := src.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Strings(keys)

	var docs []domain.Document
	for _, key := range keys {
		if !isSupported(key) {
			continue
		}
		objDocs, err := l.loadObject(ctx, src, key)
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, err
		}
		if err != nil {
			log.Printf("ingest: skipping object %s: %v", key, err)
			continue
		}
		docs = append(docs, objDocs...)
	}
	return docs, nil
}

func (l *Loader) loadObject(ctx context.Context, src ObjectSource, key string) ([]domain.Document, error) {
	body, err := src.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "contestgen-*"+strings.ToLower(path.Ext(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to stage object: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to stage object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to stage object: %w", err)
	}

	return l.loadFile(ctx, tmp.Name(), "s3://"+key)
}

func (l *Loader) loadFile(ctx context.Context, filePath, source string) ([]domain.Document, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case extPDF:
		pages, err := l.pdf.Pages(ctx, filePath)
		if err != nil {
			return nil, err
		}
		docs := make([]domain.Document, 0, len(pages))
		for i, page := range pages {
			if strings.TrimSpace(page) == "" {
				continue
			}
			docs = append(docs, domain.Document{Source: source, Page: i, Text: page})
		}
		return docs, nil
	case extTXT:
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, nil
		}
		return []domain.Document{{Source: source, Page: 0, Text: string(data)}}, nil
	default:
		return nil, fmt.Errorf("unsupported file type %s", filepath.Ext(filePath))
	}
}

func isSupported(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case extPDF, extTXT:
		return true
	}
	return false
}
