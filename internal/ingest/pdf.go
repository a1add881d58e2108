package ingest

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrPDFToolNotFound is returned when pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler (brew install poppler / apt install poppler-utils)")

const pdfTool = "pdftotext"

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFExtractor pulls per-page text out of PDF files with pdftotext.
type PDFExtractor struct {
	runner CommandRunner
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{runner: execRunner{}}
}

func NewPDFExtractorWithRunner(runner CommandRunner) *PDFExtractor {
	return &PDFExtractor{runner: runner}
}

// Pages returns the text of each page. pdftotext separates pages with a form feed.
func (p *PDFExtractor) Pages(ctx context.Context, path string) ([]string, error) {
	out, err := p.runner.Run(ctx, pdfTool, "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if errors.Is(err, ErrPDFToolNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to extract text from %s: %w", path, err)
	}

	raw := strings.Split(string(out), "\f")
	// pdftotext terminates the final page with a form feed too
	if n := len(raw); n > 0 && strings.TrimSpace(raw[n-1]) == "" {
		raw = raw[:n-1]
	}
	return raw, nil
}

// CheckAvailable reports whether pdftotext can be found on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath(pdfTool); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}
