// Package search merges semantic and lexical rankings over the document store
// and keeps the vector and lexical indexes in step with it.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/embedding"
	"github.com/DjordjeVuckovic/regkb/internal/extract"
	"github.com/DjordjeVuckovic/regkb/internal/metrics"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
	"github.com/DjordjeVuckovic/regkb/pkg/utils"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	SourceSemantic = "semantic"
	SourceLexical  = "lexical"
)

var ErrAllRankersFailed = errors.New("all search rankers failed")

// Embedder is satisfied by *embedding.Embedder.
type Embedder interface {
	Model() string
	EmbedQuery(ctx context.Context, query string) (*embedding.Vec, error)
	EmbedDocuments(ctx context.Context, docs []embedding.DocumentText) ([]embedding.Vec, error)
}

type Query struct {
	Text           string
	Limit          int
	DocumentType   string
	Jurisdiction   string
	LatestOnly     bool
	IncludeExcerpt bool
}

type Result struct {
	Document domain.Document `json:"document"`
	Score    float64         `json:"score"`
	Source   string          `json:"source"`
	Excerpt  string          `json:"excerpt,omitempty"`
}

type Engine struct {
	lexical storage.LexicalSearcher
	docs    storage.DocumentReader
	texts   extract.TextReader

	embedder Embedder
	vectors  storage.VectorIndex
	indexer  storage.TextIndexer

	batchSize int
	metrics   *metrics.Metrics
}

type Option func(*Engine)

// WithSemantic enables the vector ranker.
func WithSemantic(embedder Embedder, vectors storage.VectorIndex) Option {
	return func(e *Engine) {
		e.embedder = embedder
		e.vectors = vectors
	}
}

// WithIndexer registers a lexical index that lives outside the document store.
func WithIndexer(indexer storage.TextIndexer) Option {
	return func(e *Engine) {
		e.indexer = indexer
	}
}

func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(docs storage.DocumentReader, lexical storage.LexicalSearcher, texts extract.TextReader, opts ...Option) *Engine {
	e := &Engine{
		docs:      docs,
		lexical:   lexical,
		texts:     texts,
		batchSize: 16,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) SemanticEnabled() bool {
	return e.embedder != nil && e.vectors != nil
}

func (q *Query) normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
}

func (q *Query) accepts(d *domain.Document) bool {
	return domain.ListFilter{
		DocumentType: q.DocumentType,
		Jurisdiction: q.Jurisdiction,
		LatestOnly:   q.LatestOnly,
	}.Matches(d)
}

func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	start := time.Now()
	q.normalize()
	candidates := 2 * q.Limit

	var (
		results []Result
		seen    = make(map[int64]struct{})
		failed  int
	)
	add := func(r Result) {
		if _, ok := seen[r.Document.ID]; ok {
			return
		}
		seen[r.Document.ID] = struct{}{}
		results = append(results, r)
	}

	if e.SemanticEnabled() {
		hits, err := e.semantic(ctx, q, candidates)
		if err != nil {
			failed++
			e.metrics.RecordRankerFailure(SourceSemantic)
			slog.Warn("Semantic search failed", "query", q.Text, "error", err)
		}
		for _, h := range hits {
			add(Result{Document: h.Document, Score: domain.SemanticScore(h.Distance), Source: SourceSemantic})
		}
	} else {
		failed++
	}

	hits, err := e.lexical.SearchLexical(ctx, q.Text, candidates, q.LatestOnly)
	if err != nil {
		failed++
		e.metrics.RecordRankerFailure(SourceLexical)
		slog.Warn("Lexical search failed", "query", q.Text, "error", err)
	}
	for _, h := range hits {
		add(Result{Document: h.Document, Score: domain.LexicalScore(h.Relevance), Source: SourceLexical})
	}

	if failed == 2 {
		return nil, fmt.Errorf("failed to search %q: %w", q.Text, ErrAllRankersFailed)
	}

	filtered := results[:0]
	for _, r := range results {
		if q.accepts(&r.Document) {
			filtered = append(filtered, r)
		}
	}
	results = filtered

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}

	for i := range results {
		results[i].Score = utils.RoundDecimal(results[i].Score, domain.ScoreDecimalPlaces)
		if q.IncludeExcerpt {
			results[i].Excerpt = e.excerpt(ctx, &results[i].Document, q.Text)
		}
	}

	e.metrics.RecordSearch(len(results), time.Since(start))
	slog.Debug("Search completed", "query", q.Text, "results", len(results), "took", time.Since(start))
	return results, nil
}

func (e *Engine) semantic(ctx context.Context, q Query, limit int) ([]storage.VectorHit, error) {
	vec, err := e.embedder.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	return e.vectors.QueryEmbedding(ctx, vec.Embedding, vec.Model, limit, storage.VectorFilter{
		DocumentType: q.DocumentType,
		Jurisdiction: q.Jurisdiction,
	})
}

func (e *Engine) excerpt(ctx context.Context, doc *domain.Document, query string) string {
	text, ok, err := e.texts.ReadText(ctx, doc)
	if err != nil {
		slog.Debug("Failed to read text for excerpt", "id", doc.ID, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return Excerpt(text, query)
}
