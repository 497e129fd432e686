package version

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/notify"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

// ConfirmReview links a pair that failed the similarity gate, exactly as an
// automatic supersession would. When either document has moved on since the
// review opened, the review is dismissed and storage.ErrStaleVersion returned.
func (r *Resolver) ConfirmReview(ctx context.Context, reviewID int64) (*domain.VersionReview, error) {
	review, err := r.store.ConfirmReview(ctx, reviewID, r.now())
	if errors.Is(err, storage.ErrStaleVersion) {
		slog.Warn("Version review is stale, dismissed",
			"review_id", reviewID, "old_id", review.OldDocID, "new_id", review.NewDocID)
		r.publish(ctx, reviewEvent(notify.ReviewDismissed, review))
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Version review confirmed", "review_id", reviewID, "old_id", review.OldDocID, "new_id", review.NewDocID)
	r.publish(ctx, reviewEvent(notify.ReviewConfirmed, review))
	return review, nil
}

// DismissReview closes a review and keeps both documents as they are.
func (r *Resolver) DismissReview(ctx context.Context, reviewID int64) (*domain.VersionReview, error) {
	review, err := r.pendingReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	if err := r.store.ResolveReview(ctx, reviewID, domain.ReviewDismissed, r.now()); err != nil {
		return nil, err
	}

	slog.Info("Version review dismissed", "review_id", reviewID)

	r.publish(ctx, reviewEvent(notify.ReviewDismissed, review))
	return r.store.GetReview(ctx, reviewID)
}

func reviewEvent(typ notify.EventType, review *domain.VersionReview) notify.Event {
	ev := notify.NewEvent(typ, review.NewDocID)
	ev.RelatedID = &review.OldDocID
	ev.ReviewID = &review.ID
	ev.Identifier = review.Identifier
	return ev
}

func (r *Resolver) pendingReview(ctx context.Context, reviewID int64) (*domain.VersionReview, error) {
	review, err := r.store.GetReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to load version review %d: %w", reviewID, err)
	}
	if review == nil {
		return nil, apperr.NewNotFound("version review", reviewID)
	}
	if review.Status != domain.ReviewPending {
		return nil, storage.ErrReviewResolved
	}
	return review, nil
}
