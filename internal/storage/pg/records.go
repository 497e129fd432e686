package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

func (s *Store) StartBatch(ctx context.Context, sourcePath string, startedAt time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO import_batches (source_path, started_at, status) VALUES ($1, $2, $3) RETURNING id`,
		sourcePath, startedAt, domain.BatchInProgress,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to start import batch: %w", err)
	}
	return id, nil
}

func (s *Store) RecordBatchItem(ctx context.Context, item domain.ImportBatchItem) error {
	var msg *string
	if item.ErrorMessage != "" {
		msg = &item.ErrorMessage
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO import_batch_items (batch_id, file_path, document_id, status, error_message)
		VALUES ($1, $2, $3, $4, $5)`,
		item.BatchID, item.FilePath, item.DocumentID, item.Status, msg)
	if err != nil {
		return fmt.Errorf("failed to record import batch item: %w", err)
	}
	return nil
}

func (s *Store) FinishBatch(ctx context.Context, b domain.ImportBatch) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE import_batches
		SET completed_at = $1, total_files = $2, imported = $3, duplicates = $4, errors = $5, status = $6
		WHERE id = $7`,
		b.CompletedAt, b.TotalFiles, b.Imported, b.Duplicates, b.Errors, b.Status, b.ID)
	if err != nil {
		return fmt.Errorf("failed to finish import batch %d: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("import batch", b.ID)
	}
	return nil
}

func (s *Store) ListBatches(ctx context.Context, limit int) ([]domain.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, source_path, started_at, completed_at, total_files, imported, duplicates, errors, status
		FROM import_batches ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}
	defer rows.Close()

	var out []domain.ImportBatch
	for rows.Next() {
		var b domain.ImportBatch
		if err := rows.Scan(&b.ID, &b.SourcePath, &b.StartedAt, &b.CompletedAt, &b.TotalFiles,
			&b.Imported, &b.Duplicates, &b.Errors, &b.Status); err != nil {
			return nil, fmt.Errorf("failed to scan import batch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const reviewColumns = `id, identifier, old_doc_id, new_doc_id, similarity, threshold, status, created_at, resolved_at`

func scanReview(row pgx.Row) (*domain.VersionReview, error) {
	var r domain.VersionReview
	if err := row.Scan(&r.ID, &r.Identifier, &r.OldDocID, &r.NewDocID, &r.Similarity, &r.Threshold,
		&r.Status, &r.CreatedAt, &r.ResolvedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) AddReview(ctx context.Context, r domain.VersionReview) (int64, error) {
	if r.Status == "" {
		r.Status = domain.ReviewPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO version_reviews (identifier, old_doc_id, new_doc_id, similarity, threshold, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (old_doc_id, new_doc_id) WHERE status = 'pending'
		DO UPDATE SET similarity = EXCLUDED.similarity, threshold = EXCLUDED.threshold
		RETURNING id`,
		r.Identifier, r.OldDocID, r.NewDocID, r.Similarity, r.Threshold, r.Status, r.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add version review: %w", err)
	}
	return id, nil
}

func (s *Store) GetReview(ctx context.Context, id int64) (*domain.VersionReview, error) {
	r, err := scanReview(s.db.QueryRow(ctx, `SELECT `+reviewColumns+` FROM version_reviews WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load version review %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) ListReviews(ctx context.Context, status domain.ReviewStatus) ([]domain.VersionReview, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reviewColumns+` FROM version_reviews
		WHERE $1 = '' OR status = $1
		ORDER BY id DESC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list version reviews: %w", err)
	}
	defer rows.Close()

	var out []domain.VersionReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version review: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) ResolveReview(ctx context.Context, id int64, status domain.ReviewStatus, at time.Time) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var current domain.ReviewStatus
		err := tx.QueryRow(ctx, `SELECT status FROM version_reviews WHERE id = $1 FOR UPDATE`, id).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NewNotFound("version review", id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock version review %d: %w", id, err)
		}
		if current != domain.ReviewPending {
			return storage.ErrReviewResolved
		}
		_, err = tx.Exec(ctx, `UPDATE version_reviews SET status = $1, resolved_at = $2 WHERE id = $3`, status, at, id)
		if err != nil {
			return fmt.Errorf("failed to resolve version review %d: %w", id, err)
		}
		return nil
	})
}

func (s *Store) ConfirmReview(ctx context.Context, id int64, at time.Time) (*domain.VersionReview, error) {
	var (
		review *domain.VersionReview
		stale  bool
	)
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		r, err := scanReview(tx.QueryRow(ctx, `SELECT `+reviewColumns+` FROM version_reviews WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NewNotFound("version review", id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock version review %d: %w", id, err)
		}
		if r.Status != domain.ReviewPending {
			return storage.ErrReviewResolved
		}

		r.Status = domain.ReviewConfirmed
		if err := s.supersedeTx(ctx, tx, r.OldDocID, r.NewDocID); err != nil {
			if !storage.IsStale(err) {
				return fmt.Errorf("failed to supersede document %d with %d: %w", r.OldDocID, r.NewDocID, err)
			}
			stale = true
			r.Status = domain.ReviewDismissed
		}

		_, err = tx.Exec(ctx, `UPDATE version_reviews SET status = $1, resolved_at = $2 WHERE id = $3`, r.Status, at, id)
		if err != nil {
			return fmt.Errorf("failed to resolve version review %d: %w", id, err)
		}
		r.ResolvedAt = &at
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stale {
		return review, storage.ErrStaleVersion
	}
	return review, nil
}
