package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Outcome mirrors what the importer needs from an extraction attempt.
type Outcome struct {
	OK       bool
	TextPath string
	Err      error
}

type Extractor interface {
	Extract(ctx context.Context, sourcePath string, docID int64) Outcome
}

// Converter produces plain text or markdown from one kind of source file.
type Converter interface {
	Convert(ctx context.Context, sourcePath string) (string, error)
}

// Chain dispatches on file extension and stores the result in a TextStore.
type Chain struct {
	store      *TextStore
	converters map[string]Converter
}

func NewChain(store *TextStore) *Chain {
	c := &Chain{store: store, converters: make(map[string]Converter)}
	text := PlainText{}
	c.Register(text, ".txt", ".md", ".markdown")
	c.Register(NewHTML(), ".html", ".htm")
	c.Register(NewPDF(""), ".pdf")
	return c
}

func (c *Chain) Register(conv Converter, exts ...string) {
	for _, ext := range exts {
		c.converters[strings.ToLower(ext)] = conv
	}
}

func (c *Chain) Supports(path string) bool {
	_, ok := c.converters[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (c *Chain) Extract(ctx context.Context, sourcePath string, docID int64) Outcome {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	conv, ok := c.converters[ext]
	if !ok {
		return Outcome{Err: fmt.Errorf("no extractor for %q files", ext)}
	}

	text, err := conv.Convert(ctx, sourcePath)
	if err != nil {
		return Outcome{Err: fmt.Errorf("failed to extract %s: %w", filepath.Base(sourcePath), err)}
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{Err: fmt.Errorf("no text extracted from %s", filepath.Base(sourcePath))}
	}

	path, err := c.store.Write(docID, text)
	if err != nil {
		return Outcome{Err: err}
	}
	slog.Debug("Extracted text", "id", docID, "path", path, "chars", len(text))
	return Outcome{OK: true, TextPath: path}
}
