package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/embedding"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

var ErrNoIndex = errors.New("semantic search is disabled and no separate lexical index is configured")

// Progress receives the number of documents indexed so far and the total.
type Progress func(done, total int)

// IndexDocument embeds one document and pushes it to the separate lexical
// index, when either is configured.
func (e *Engine) IndexDocument(ctx context.Context, doc domain.Document, text string) error {
	if !e.SemanticEnabled() && e.indexer == nil {
		return nil
	}
	n, err := e.indexBatch(ctx, []embedding.DocumentText{{Document: doc, Text: text}})
	if err != nil {
		return err
	}
	e.metrics.RecordIndexed(n)
	return nil
}

// ReindexAll rebuilds every index entry from the store. Upserts are keyed by
// document id and model, so running it twice changes nothing.
func (e *Engine) ReindexAll(ctx context.Context, progress Progress) (int, error) {
	if !e.SemanticEnabled() && e.indexer == nil {
		return 0, ErrNoIndex
	}

	docs, err := e.docs.List(ctx, domain.ListFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to list documents for reindex: %w", err)
	}

	slog.Info("Reindexing documents", "total", len(docs), "batch_size", e.batchSize)

	indexed := 0
	for start := 0; start < len(docs); start += e.batchSize {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}

		end := min(start+e.batchSize, len(docs))
		batch := make([]embedding.DocumentText, 0, end-start)
		for i := range docs[start:end] {
			doc := docs[start+i]
			batch = append(batch, embedding.DocumentText{Document: doc, Text: e.textOf(ctx, &doc)})
		}

		n, err := e.indexBatch(ctx, batch)
		if err != nil {
			slog.Error("Failed to reindex batch", "from_id", batch[0].Document.ID, "size", len(batch), "error", err)
		}
		indexed += n

		if progress != nil {
			progress(indexed, len(docs))
		}
	}

	e.metrics.RecordIndexed(indexed)
	slog.Info("Reindex finished", "indexed", indexed, "total", len(docs))
	return indexed, nil
}

// textOf falls back to title and description when no text was extracted.
func (e *Engine) textOf(ctx context.Context, doc *domain.Document) string {
	text, ok, err := e.texts.ReadText(ctx, doc)
	if err != nil {
		slog.Warn("Failed to read extracted text", "id", doc.ID, "error", err)
	}
	if !ok || err != nil {
		return doc.Title + " " + doc.DescriptionOrEmpty()
	}
	return text
}

func (e *Engine) indexBatch(ctx context.Context, batch []embedding.DocumentText) (int, error) {
	indexed := len(batch)

	if e.SemanticEnabled() {
		vecs, err := e.embedder.EmbedDocuments(ctx, batch)
		if err != nil {
			return 0, err
		}
		indexed = 0
		for _, v := range vecs {
			if err := e.vectors.UpsertEmbedding(ctx, v.ID, v.Model, v.Embedding); err != nil {
				slog.Error("Failed to store embedding", "id", v.ID, "model", v.Model, "error", err)
				continue
			}
			indexed++
		}
	}

	if e.indexer != nil {
		docs := make([]storage.IndexedDocument, len(batch))
		for i, b := range batch {
			docs[i] = storage.IndexedDocument{Document: b.Document, Text: b.Text}
		}
		if err := e.indexer.IndexDocuments(ctx, docs); err != nil {
			return indexed, fmt.Errorf("failed to push %d documents to lexical index: %w", len(docs), err)
		}
	}

	return indexed, nil
}
