package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

var (
	_ storage.TextIndexer     = (*Index)(nil)
	_ storage.LexicalSearcher = (*Index)(nil)
)

type Index struct {
	client    *elasticsearch.TypedClient
	indexName string
	docs      storage.DocumentReader
	now       func() time.Time
}

// NewIndex connects to Elasticsearch and creates the index when missing. docs
// hydrates search hits from the authoritative store.
func NewIndex(ctx context.Context, config ClientConfig, docs storage.DocumentReader) (*Index, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	idx := &Index{
		client:    client,
		indexName: config.IndexName,
		docs:      docs,
		now:       time.Now,
	}
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}
	return idx, nil
}

func (e *Index) EnsureIndex(ctx context.Context) error {
	exists, err := e.client.Indices.Exists(e.indexName).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	if exists {
		slog.Info("Index already exists", "index", e.indexName)
		return nil
	}

	settings := buildSettings()
	mappings := buildMapping()
	res, err := e.client.Indices.Create(e.indexName).
		Settings(&settings).
		Mappings(&mappings).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("index creation was not acknowledged")
	}

	slog.Info("Index created", "index", e.indexName)
	return nil
}

// IndexDocuments upserts documents keyed by id through the bulk API.
func (e *Index) IndexDocuments(ctx context.Context, docs []storage.IndexedDocument) error {
	if len(docs) == 0 {
		return nil
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         e.indexName,
		Client:        e.client,
		NumWorkers:    2,
		FlushBytes:    5e+6,
		FlushInterval: 30 * time.Second,
		Refresh:       "wait_for",
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var failed atomic.Int64
	now := e.now()
	for _, d := range docs {
		doc := toIndexDocument(d, now)
		body, err := json.Marshal(doc)
		if err != nil {
			failed.Add(1)
			slog.Error("Failed to marshal index document", "error", err, "id", doc.ID)
			continue
		}

		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.ID,
			Body:       bytes.NewReader(body),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					slog.Error("Bulk index error", "error", err, "id", item.DocumentID)
					return
				}
				slog.Error("Bulk index error", "status", res.Status, "type", res.Error.Type, "reason", res.Error.Reason, "id", item.DocumentID)
			},
		})
		if err != nil {
			failed.Add(1)
			slog.Error("Failed to add document to bulk indexer", "error", err, "id", doc.ID)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("failed to close bulk indexer: %w", err)
	}

	stats := bi.Stats()
	slog.Info("Bulk indexing completed", "indexed", stats.NumIndexed, "failed", failed.Load(), "index", e.indexName)
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("failed to index %d out of %d documents", n, len(docs))
	}
	return nil
}

// SearchLexical runs a weighted multi_match and returns negated BM25 scores.
// Latest-only filtering uses the store's state, not the indexed flag.
func (e *Index) SearchLexical(ctx context.Context, query string, limit int, latestOnly bool) ([]storage.LexicalHit, error) {
	size := limit
	if latestOnly {
		size = limit * 2
	}

	res, err := e.client.Search().
		Index(e.indexName).
		Query(&types.Query{
			MultiMatch: &types.MultiMatchQuery{
				Query:  query,
				Fields: []string{"title^3", "description^2", "content"},
			},
		}).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	var hits []storage.LexicalHit
	for _, h := range res.Hits.Hits {
		if h.Id_ == nil || h.Score_ == nil {
			continue
		}
		id, err := strconv.ParseInt(*h.Id_, 10, 64)
		if err != nil {
			slog.Warn("Skipping hit with foreign id", "id", *h.Id_)
			continue
		}
		doc, err := e.docs.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate hit %d: %w", id, err)
		}
		if doc == nil || (latestOnly && !doc.IsLatest) {
			continue
		}
		hits = append(hits, storage.LexicalHit{Document: *doc, Relevance: -float64(*h.Score_)})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}

func (e *Index) Name() string {
	return "elasticsearch"
}

func (e *Index) Healthy(ctx context.Context) bool {
	ok, err := e.client.Ping().Do(ctx)
	if err != nil {
		slog.Warn("Elasticsearch health check failed", "error", err)
		return false
	}
	return ok
}
