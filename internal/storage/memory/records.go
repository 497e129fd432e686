package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

func (s *Store) StartBatch(_ context.Context, sourcePath string, startedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBatch++
	s.batches[s.nextBatch] = &domain.ImportBatch{
		ID:         s.nextBatch,
		SourcePath: sourcePath,
		StartedAt:  startedAt,
		Status:     domain.BatchInProgress,
	}
	return s.nextBatch, nil
}

func (s *Store) RecordBatchItem(_ context.Context, item domain.ImportBatchItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.batches[item.BatchID]; !ok {
		return apperr.NewNotFound("import batch", item.BatchID)
	}
	s.items = append(s.items, item)
	return nil
}

func (s *Store) FinishBatch(_ context.Context, batch domain.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batch.ID]
	if !ok {
		return apperr.NewNotFound("import batch", batch.ID)
	}
	b.CompletedAt = batch.CompletedAt
	b.TotalFiles = batch.TotalFiles
	b.Imported = batch.Imported
	b.Duplicates = batch.Duplicates
	b.Errors = batch.Errors
	b.Status = batch.Status
	return nil
}

func (s *Store) ListBatches(_ context.Context, limit int) ([]domain.ImportBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ImportBatch, 0, len(s.batches))
	for _, b := range s.batches {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, 0, limit), nil
}

// BatchItems returns the recorded items of one batch in insertion order.
func (s *Store) BatchItems(batchID int64) []domain.ImportBatchItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ImportBatchItem
	for _, it := range s.items {
		if it.BatchID == batchID {
			out = append(out, it)
		}
	}
	return out
}

func (s *Store) AddReview(_ context.Context, r domain.VersionReview) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Status == "" {
		r.Status = domain.ReviewPending
	}
	if r.Status == domain.ReviewPending {
		for _, existing := range s.reviews {
			if existing.Status == domain.ReviewPending &&
				existing.OldDocID == r.OldDocID && existing.NewDocID == r.NewDocID {
				existing.Similarity = r.Similarity
				existing.Threshold = r.Threshold
				return existing.ID, nil
			}
		}
	}

	s.nextReview++
	r.ID = s.nextReview
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.reviews[r.ID] = &r
	return r.ID, nil
}

func (s *Store) GetReview(_ context.Context, id int64) (*domain.VersionReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reviews[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListReviews(_ context.Context, status domain.ReviewStatus) ([]domain.VersionReview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.VersionReview
	for _, r := range s.reviews {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) ResolveReview(_ context.Context, id int64, status domain.ReviewStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviews[id]
	if !ok {
		return fmt.Errorf("failed to resolve review: %w", apperr.NewNotFound("version review", id))
	}
	if r.Status != domain.ReviewPending {
		return storage.ErrReviewResolved
	}
	r.Status = status
	r.ResolvedAt = &at
	return nil
}

func (s *Store) ConfirmReview(_ context.Context, id int64, at time.Time) (*domain.VersionReview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reviews[id]
	if !ok {
		return nil, fmt.Errorf("failed to confirm review: %w", apperr.NewNotFound("version review", id))
	}
	if r.Status != domain.ReviewPending {
		return nil, storage.ErrReviewResolved
	}

	err := s.supersedeLocked(r.OldDocID, r.NewDocID)
	switch {
	case storage.IsStale(err):
		r.Status = domain.ReviewDismissed
		r.ResolvedAt = &at
		cp := *r
		return &cp, storage.ErrStaleVersion
	case err != nil:
		return nil, err
	}

	r.Status = domain.ReviewConfirmed
	r.ResolvedAt = &at
	cp := *r
	return &cp, nil
}
