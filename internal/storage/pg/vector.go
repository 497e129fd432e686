package pg

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

func (s *Store) UpsertEmbedding(ctx context.Context, docID int64, model string, vec []float32) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO document_embeddings (document_id, model, embedding, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (document_id, model) DO UPDATE
		SET embedding = EXCLUDED.embedding, updated_at = EXCLUDED.updated_at`,
		docID, model, pgvector.NewVector(vec), s.now())
	if err != nil {
		return fmt.Errorf("failed to upsert embedding for document %d: %w", docID, err)
	}
	return nil
}

// QueryEmbedding orders by cosine distance (<=>). Filters are applied in SQL.
func (s *Store) QueryEmbedding(ctx context.Context, vec []float32, model string, limit int, filter storage.VectorFilter) ([]storage.VectorHit, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+prefixed("d")+`, e.distance
		FROM (
			SELECT document_id, embedding <=> $1 AS distance
			FROM document_embeddings
			WHERE model = $2
		) e
		INNER JOIN documents d ON d.id = e.document_id
		WHERE ($3 = '' OR d.document_type = $3)
		  AND ($4 = '' OR d.jurisdiction = $4)
		ORDER BY e.distance, d.id
		LIMIT $5`,
		pgvector.NewVector(vec), model, filter.DocumentType, filter.Jurisdiction, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute semantic query: %w", err)
	}
	defer rows.Close()

	var hits []storage.VectorHit
	for rows.Next() {
		var dist float64
		d, err := scanDocument(rows, &dist)
		if err != nil {
			return nil, fmt.Errorf("failed to scan semantic hit: %w", err)
		}
		hits = append(hits, storage.VectorHit{Document: *d, Distance: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return hits, nil
}

func (s *Store) CountEmbeddings(ctx context.Context, model string) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM document_embeddings WHERE model = $1`, model).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return n, nil
}
