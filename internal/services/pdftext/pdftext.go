// Package pdftext extracts plain text from PDF agendas with poppler's
// pdftotext.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

var (
	// ErrNotPDF is returned when the payload lacks the PDF header.
	ErrNotPDF = errors.New("pdftext: payload is not a PDF document")
	// ErrNoText is returned for documents without a text layer (scans).
	ErrNoText = errors.New("pdftext: document has no text layer")
)

// Extractor runs pdftotext as a single-shot subprocess.
type Extractor struct {
	binary  string
	workDir string
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New returns an extractor using binary, writing scratch files under workDir.
func New(binary, workDir string) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = "pdftotext"
	}
	return &Extractor{binary: binary, workDir: workDir, run: runCommand}
}

// WithRunner swaps the command runner (for testing). The runner returns the
// command's stdout.
func (e *Extractor) WithRunner(run func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	e.run = run
}

// Extract returns the text layer of pdf with page layout preserved.
func (e *Extractor) Extract(ctx context.Context, pdf []byte) (string, error) {
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return "", ErrNotPDF
	}
	if e.workDir != "" {
		if err := os.MkdirAll(e.workDir, 0o755); err != nil {
			return "", fmt.Errorf("pdftext: ensure work dir: %w", err)
		}
	}
	scratch, err := os.MkdirTemp(e.workDir, "pdftext-*")
	if err != nil {
		return "", fmt.Errorf("pdftext: create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	source := filepath.Join(scratch, "agenda.pdf")
	if err := os.WriteFile(source, pdf, 0o644); err != nil {
		return "", fmt.Errorf("pdftext: write pdf: %w", err)
	}
	out, err := e.run(ctx, e.binary, "-layout", "-enc", "UTF-8", "-q", source, "-")
	if err != nil {
		return "", err
	}
	text := strings.ReplaceAll(string(out), "\f", "\n")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
