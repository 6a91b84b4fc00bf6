package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

// IngestPDF extracts plain text from a PDF file and ingests it.
func (i *Ingestor) IngestPDF(ctx context.Context, path string) (*Result, error) {
	text, err := ExtractPDFText(path)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("no text extracted from %s", path)
	}

	return i.IngestText(ctx, filepath.Base(path), text)
}

// ExtractPDFText reads a PDF file and returns its plain text content.
func ExtractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	r, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("reading text from %s: %w", path, err)
	}

	return buf.String(), nil
}
