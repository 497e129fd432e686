package storage

import (
	"context"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

// VectorHit is a nearest-neighbour match with its cosine distance.
type VectorHit struct {
	Document domain.Document
	Distance float64
}

// VectorFilter narrows semantic queries. Implementations may ignore it; the
// retrieval engine re-checks every filter.
type VectorFilter struct {
	DocumentType string
	Jurisdiction string
}

type VectorIndex interface {
	// UpsertEmbedding replaces the vector stored for (docID, model).
	UpsertEmbedding(ctx context.Context, docID int64, model string, vec []float32) error
	QueryEmbedding(ctx context.Context, vec []float32, model string, limit int, filter VectorFilter) ([]VectorHit, error)
	CountEmbeddings(ctx context.Context, model string) (int, error)
}

// IndexedDocument is a document plus the text a separate lexical index
// should analyse.
type IndexedDocument struct {
	Document domain.Document
	Text     string
}

// TextIndexer is a lexical index maintained outside the document store.
type TextIndexer interface {
	IndexDocuments(ctx context.Context, docs []IndexedDocument) error
}
