// Package app assembles the knowledge base components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/regkb/internal/config"
	"github.com/DjordjeVuckovic/regkb/internal/embedding"
	"github.com/DjordjeVuckovic/regkb/internal/extract"
	"github.com/DjordjeVuckovic/regkb/internal/identifier"
	"github.com/DjordjeVuckovic/regkb/internal/importer"
	"github.com/DjordjeVuckovic/regkb/internal/metrics"
	"github.com/DjordjeVuckovic/regkb/internal/notify"
	"github.com/DjordjeVuckovic/regkb/internal/search"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
	"github.com/DjordjeVuckovic/regkb/internal/storage/es"
	"github.com/DjordjeVuckovic/regkb/internal/storage/factory"
	"github.com/DjordjeVuckovic/regkb/internal/storage/pg"
	"github.com/DjordjeVuckovic/regkb/internal/storage/s3"
	"github.com/DjordjeVuckovic/regkb/internal/validator"
	"github.com/DjordjeVuckovic/regkb/internal/version"
	pkgserver "github.com/DjordjeVuckovic/regkb/pkg/server"
)

// App is built once per process and passed to the CLI commands and the
// HTTP routers.
type App struct {
	Config    *config.Config
	Metrics   *metrics.Metrics
	Store     storage.DocumentStore
	Texts     *extract.TextStore
	Extractor *extract.Chain
	Validator *validator.Validator
	Resolver  *version.Resolver
	Search    *search.Engine
	Importer  *importer.Importer
	Catalog   *identifier.Catalog
	Publisher notify.Publisher
	// Uploader is nil unless an S3 bucket is configured.
	Uploader *s3.Uploader

	backends *factory.Backends
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:    cfg,
		Metrics:   metrics.New(),
		Publisher: notify.Noop{},
		Catalog:   identifier.DefaultCatalog(),
	}

	backends, err := factory.New(ctx, storageConfig(cfg))
	if err != nil {
		return nil, err
	}
	a.backends = backends
	a.Store = backends.Store

	if cfg.NATS.URL != "" {
		pub, err := notify.NewNATSPublisher(notify.NATSConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Publisher = pub
	}

	if cfg.S3.Bucket != "" {
		up, err := s3.NewUploader(s3.Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Prefix:   cfg.S3.Prefix,
			Endpoint: cfg.S3.Endpoint,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Uploader = up
	}

	a.Texts = extract.NewTextStore(cfg.ExtractedDir())
	a.Extractor = extract.NewChain(a.Texts)
	if cfg.Import.PDFToText != "" {
		a.Extractor.Register(extract.NewPDF(cfg.Import.PDFToText), ".pdf")
	}
	a.Validator = validator.New(a.Texts)

	a.Resolver = version.NewResolver(a.Store, a.Texts, version.Config{
		MinSimilarity: cfg.Versioning.MinSimilarity,
		ContextLines:  cfg.Versioning.ContextLines,
		DiffsDir:      cfg.DiffsDir(),
	}, version.WithPublisher(a.Publisher), version.WithMetrics(a.Metrics))

	searchOpts := []search.Option{
		search.WithMetrics(a.Metrics),
		search.WithBatchSize(cfg.Search.BatchSize),
	}
	embedder, err := newEmbedder(cfg.Search.Embedding)
	if err != nil {
		a.Close()
		return nil, err
	}
	if embedder != nil {
		searchOpts = append(searchOpts, search.WithSemantic(embedder, backends.Vectors))
		slog.Info("Semantic search enabled", "model", embedder.Model())
	} else {
		slog.Info("Semantic search disabled")
	}
	if backends.Indexer != nil {
		searchOpts = append(searchOpts, search.WithIndexer(backends.Indexer))
	}
	a.Search = search.NewEngine(a.Store, backends.Lexical, a.Texts, searchOpts...)

	a.Importer = importer.New(a.Store, a.Extractor, a.Validator, a.Resolver, importer.Config{
		ArchiveDir:    cfg.ArchiveDir(),
		ExtractText:   cfg.Import.ExtractText,
		IndexOnImport: cfg.Import.IndexOnImport,
	},
		importer.WithIndexer(a.Search),
		importer.WithPublisher(a.Publisher),
		importer.WithMetrics(a.Metrics),
	)

	return a, nil
}

func storageConfig(cfg *config.Config) factory.Config {
	fc := factory.Config{
		Type: storage.Type(cfg.Storage.Type),
		PG: pg.PoolConfig{
			ConnStr:  cfg.Storage.ConnStr,
			MaxConns: cfg.Storage.MaxConns,
		},
		FTSConfig: cfg.Search.FTSConfig,
	}
	if cfg.Search.Backend == config.SearchBackendES {
		fc.ES = &es.ClientConfig{
			Addresses: cfg.Search.ES.Addresses,
			IndexName: cfg.Search.ES.IndexName,
			Username:  cfg.Search.ES.Username,
			Password:  cfg.Search.ES.Password,
		}
	}
	return fc
}

func newEmbedder(cfg config.EmbeddingConfig) (*embedding.Embedder, error) {
	ec := embedding.Config{
		Enabled: cfg.Enabled,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}
	if cfg.MaxLength > 0 {
		ec.MaxLength = &cfg.MaxLength
	}
	e, err := embedding.NewFromConfig(ec)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return e, nil
}

// HealthCheckers reports every backend the API depends on.
func (a *App) HealthCheckers() []pkgserver.HealthChecker {
	return a.backends.Health
}

// Watcher watches the pending inbox configured under paths.pending.
func (a *App) Watcher() *importer.Watcher {
	return importer.NewWatcher(a.Importer, importer.WatchConfig{
		Dir:      a.Config.PendingDir(),
		Debounce: a.Config.Import.WatchDebounce,
		Metadata: a.MetadataFunc("", ""),
	})
}

// MetadataFunc titles files by name and applies one document type and
// jurisdiction, canonicalized against the configured vocabulary.
func (a *App) MetadataFunc(docType, jurisdiction string) importer.MetadataFunc {
	docType = a.Config.NormalizeDocumentType(docType)
	jurisdiction = a.Config.NormalizeJurisdiction(jurisdiction)
	return func(path string) importer.Metadata {
		m := importer.DefaultMetadata(path)
		m.DocumentType = docType
		m.Jurisdiction = jurisdiction
		return m
	}
}

func (a *App) Close() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.backends != nil {
		a.backends.Close()
	}
}
