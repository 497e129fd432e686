package pg

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

// SearchLexical ranks documents with ts_rank_cd over the weighted search
// vector. The rank is negated so lower means more relevant.
func (s *Store) SearchLexical(ctx context.Context, query string, limit int, latestOnly bool) ([]storage.LexicalHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	q := `
		SELECT ` + documentColumns + `,
		       -ts_rank_cd(search_vector, plainto_tsquery($1::regconfig, $2)) AS relevance
		FROM documents
		WHERE search_vector @@ plainto_tsquery($1::regconfig, $2)`
	if latestOnly {
		q += ` AND is_latest`
	}
	q += ` ORDER BY relevance, id LIMIT $3`

	rows, err := s.db.Query(ctx, q, s.fts, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute lexical search: %w", err)
	}
	defer rows.Close()

	var hits []storage.LexicalHit
	for rows.Next() {
		var rel float64
		d, err := scanDocument(rows, &rel)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lexical hit: %w", err)
		}
		hits = append(hits, storage.LexicalHit{Document: *d, Relevance: rel})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	slog.Debug("PG lexical search", "query", query, "hits", len(hits), "latest_only", latestOnly)
	return hits, nil
}
