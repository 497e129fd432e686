// Package importer brings files into the knowledge base: hashing, archiving,
// extraction, validation, version resolution and indexing.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/extract"
	"github.com/DjordjeVuckovic/regkb/internal/metrics"
	"github.com/DjordjeVuckovic/regkb/internal/notify"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
	"github.com/DjordjeVuckovic/regkb/internal/validator"
	"github.com/DjordjeVuckovic/regkb/internal/version"
)

type Store interface {
	storage.DocumentReader
	storage.DocumentWriter
	storage.BatchStore
}

// Indexer is satisfied by *search.Engine.
type Indexer interface {
	IndexDocument(ctx context.Context, doc domain.Document, text string) error
}

type Config struct {
	ArchiveDir    string
	ExtractText   bool
	IndexOnImport bool
}

// Outcome is what a caller gets back from a single import. The advisory
// fields never turn into an error.
type Outcome struct {
	DocumentID         int64               `json:"document_id"`
	Duplicate          bool                `json:"duplicate"`
	ArchivePath        string              `json:"archive_path,omitempty"`
	Extracted          bool                `json:"extracted"`
	ExtractionError    string              `json:"extraction_error,omitempty"`
	LastContentWarning *validator.Warning  `json:"last_content_warning,omitempty"`
	LastVersionDiff    *version.Result     `json:"last_version_diff,omitempty"`
	Diagnostic         *version.Diagnostic `json:"-"`
}

func (o *Outcome) status() domain.ItemStatus {
	if o.Duplicate {
		return domain.ItemDuplicate
	}
	return domain.ItemImported
}

type Importer struct {
	store     Store
	extractor extract.Extractor
	validator *validator.Validator
	resolver  *version.Resolver
	indexer   Indexer
	cfg       Config

	publisher notify.Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Option func(*Importer)

func WithIndexer(ix Indexer) Option {
	return func(im *Importer) {
		im.indexer = ix
	}
}

func WithPublisher(p notify.Publisher) Option {
	return func(im *Importer) {
		im.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(im *Importer) {
		im.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(im *Importer) {
		im.now = now
	}
}

func New(
	store Store,
	extractor extract.Extractor,
	validator *validator.Validator,
	resolver *version.Resolver,
	cfg Config,
	opts ...Option,
) *Importer {
	im := &Importer{
		store:     store,
		extractor: extractor,
		validator: validator,
		resolver:  resolver,
		cfg:       cfg,
		publisher: notify.Noop{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportFile imports one file. A byte-identical file already in the store is
// reported as a duplicate, not an error. meta may be nil.
func (im *Importer) ImportFile(ctx context.Context, path string, meta *Metadata) (*Outcome, error) {
	start := time.Now()
	out, err := im.importFile(ctx, path, meta)

	switch {
	case err != nil:
		im.metrics.RecordImport(string(domain.ItemError), time.Since(start))
	default:
		im.metrics.RecordImport(string(out.status()), time.Since(start))
	}
	return out, err
}

func (im *Importer) importFile(ctx context.Context, path string, meta *Metadata) (*Outcome, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	hash, err := HashFile(path)
	if err != nil {
		return nil, err
	}

	if existing, err := im.store.GetByHash(ctx, hash); err != nil {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	} else if existing != nil {
		slog.Info("Duplicate skipped", "file", filepath.Base(path), "existing_id", existing.ID)
		return &Outcome{DocumentID: existing.ID, Duplicate: true, ArchivePath: existing.FilePath}, nil
	}

	if meta == nil {
		m := DefaultMetadata(path)
		meta = &m
	}
	meta.fill(path)

	archivePath, err := im.archive(path, hash, meta.Jurisdiction)
	if err != nil {
		return nil, err
	}

	id, err := im.store.Add(ctx, meta.newDocument(hash, archivePath))
	if errors.Is(err, storage.ErrDuplicate) {
		// lost a race with a concurrent import of the same bytes
		existing, getErr := im.store.GetByHash(ctx, hash)
		if getErr != nil || existing == nil {
			return nil, fmt.Errorf("failed to load duplicate of %s: %w", path, err)
		}
		return &Outcome{DocumentID: existing.ID, Duplicate: true, ArchivePath: existing.FilePath}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add document: %w", err)
	}

	out := &Outcome{DocumentID: id, ArchivePath: archivePath}
	slog.Info("Imported document", "id", id, "file", filepath.Base(path), "title", meta.Title)

	var text string
	if im.cfg.ExtractText {
		text = im.extract(ctx, out, archivePath)
	}

	doc, err := im.store.Get(ctx, id)
	if err != nil || doc == nil {
		slog.Error("Failed to reload imported document", "id", id, "error", err)
		return out, nil
	}

	out.LastContentWarning = im.validator.Validate(ctx, doc)
	if out.LastContentWarning != nil {
		slog.Warn("Content warning", "id", id, "warning", out.LastContentWarning.Message)
	}

	out.LastVersionDiff, out.Diagnostic = im.resolver.ResolveAndApply(ctx, id)
	if out.Diagnostic != nil {
		slog.Error("Version resolution failed", "id", id, "stage", out.Diagnostic.Stage, "error", out.Diagnostic.Err)
	}

	if im.cfg.IndexOnImport && im.indexer != nil {
		if err := im.indexer.IndexDocument(ctx, *doc, text); err != nil {
			slog.Warn("Failed to index document", "id", id, "error", err)
		}
	}

	ev := notify.NewEvent(notify.DocumentImported, id)
	ev.Title = doc.Title
	if err := im.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("Failed to publish event", "type", ev.Type, "document_id", id, "error", err)
	}

	return out, nil
}

// extract returns the extracted text, or "" when extraction failed.
func (im *Importer) extract(ctx context.Context, out *Outcome, archivePath string) string {
	if im.extractor == nil {
		return ""
	}

	res := im.extractor.Extract(ctx, archivePath, out.DocumentID)
	if !res.OK {
		out.ExtractionError = res.Err.Error()
		slog.Warn("Text extraction failed", "id", out.DocumentID, "error", res.Err)
		return ""
	}

	b, err := os.ReadFile(res.TextPath)
	if err != nil {
		out.ExtractionError = err.Error()
		slog.Warn("Failed to read extracted text", "id", out.DocumentID, "error", err)
		return ""
	}
	if err := im.store.AttachText(ctx, out.DocumentID, res.TextPath, string(b)); err != nil {
		out.ExtractionError = err.Error()
		slog.Error("Failed to attach extracted text", "id", out.DocumentID, "error", err)
		return ""
	}

	out.Extracted = true
	return string(b)
}

// Reextract runs extraction again for a stored document.
func (im *Importer) Reextract(ctx context.Context, id int64) (*Outcome, error) {
	doc, err := im.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	if doc == nil {
		return nil, storage.ErrNotFound
	}
	if im.extractor == nil {
		return nil, errors.New("text extraction is not configured")
	}

	out := &Outcome{DocumentID: id, ArchivePath: doc.FilePath}
	im.extract(ctx, out, doc.FilePath)
	if out.Extracted {
		if doc, err = im.store.Get(ctx, id); err == nil && doc != nil {
			out.LastContentWarning = im.validator.Validate(ctx, doc)
		}
	}
	return out, nil
}

// HashFile is the hex SHA-256 of the file contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// archive copies src to {archive}/{jurisdiction}/{hash[:8]}_{name}, keeping
// the modification time.
func (im *Importer) archive(src, hash, jurisdiction string) (string, error) {
	dir := filepath.Join(im.cfg.ArchiveDir, filepath.Base(jurisdiction))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}
	dst := filepath.Join(dir, hash[:8]+"_"+filepath.Base(src))

	if _, err := os.Stat(dst); err == nil {
		return dst, nil
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, ".archive-*")
	if err != nil {
		return "", fmt.Errorf("failed to create archive copy: %w", err)
	}
	tmp := out.Name()
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to copy %s to archive: %w", src, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to close archive copy: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return "", fmt.Errorf("failed to move archive copy into place: %w", err)
	}
	_ = os.Chmod(dst, 0o644)

	if info, err := os.Stat(src); err == nil {
		_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	}
	return dst, nil
}
