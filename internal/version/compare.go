package version

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/diff"
)

// Compare diffs two stored documents by id. A side without extracted text
// yields diff.ErrTextUnavailable.
func (r *Resolver) Compare(ctx context.Context, aID, bID int64, opts diff.Options) (*diff.Report, error) {
	a, err := r.store.Get(ctx, aID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", aID, err)
	}
	if a == nil {
		return nil, apperr.NewNotFound("document", aID)
	}
	b, err := r.store.Get(ctx, bID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", bID, err)
	}
	if b == nil {
		return nil, apperr.NewNotFound("document", bID)
	}

	ta, tb, err := r.readPair(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if ta == nil || tb == nil {
		return nil, fmt.Errorf("cannot compare documents %d and %d: %w", aID, bID, diff.ErrTextUnavailable)
	}

	return diff.CompareTexts(
		diff.Side{ID: a.ID, Title: a.Title, Text: *ta},
		diff.Side{ID: b.ID, Title: b.Title, Text: *tb},
		opts,
	)
}
