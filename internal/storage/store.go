// Package storage defines the document store contract shared by the
// Postgres and in-memory implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

type Type string

const (
	PG    Type = "pg"
	InMem Type = "memory"
)

var (
	// ErrDuplicate is returned by Add when the content hash already exists.
	ErrDuplicate = apperr.NewConflict("document with identical content already exists")
	// ErrSupersessionImmutable is returned when superseded_by would change or be cleared.
	ErrSupersessionImmutable = apperr.NewConflict("superseded_by is already set and cannot be changed")
	// ErrReviewResolved is returned when resolving a review that is no longer pending.
	ErrReviewResolved = apperr.NewConflict("version review is already resolved")
	// ErrStaleVersion is returned when the would-be successor has itself been superseded.
	ErrStaleVersion = apperr.NewConflict("document has already been superseded by a newer version")
	// ErrSupersededLatest is returned by updates that would leave a superseded document latest.
	ErrSupersededLatest = apperr.NewConflict("a superseded document cannot be marked latest")
	ErrNotFound       = apperr.NewNotFound("document", nil)
)

// LexicalHit carries a full-text relevance where lower is more relevant.
type LexicalHit struct {
	Document  domain.Document
	Relevance float64
}

type DocumentReader interface {
	Exists(ctx context.Context, hash string) (bool, error)
	// Get returns nil, nil when the id does not exist.
	Get(ctx context.Context, id int64) (*domain.Document, error)
	GetByHash(ctx context.Context, hash string) (*domain.Document, error)
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error)
	// ListLatest returns every is_latest document except excludeID, newest import first.
	ListLatest(ctx context.Context, excludeID int64) ([]domain.Document, error)
}

type DocumentWriter interface {
	// Add inserts a new document and returns its id. It is not an upsert.
	Add(ctx context.Context, doc domain.NewDocument) (int64, error)
	// Update applies a partial update. It reports false when the id does not exist.
	Update(ctx context.Context, id int64, fields domain.Fields) (bool, error)
	// Supersede marks oldID as replaced by newID and newID as latest, atomically.
	// Both rows are checked with CheckLink first.
	Supersede(ctx context.Context, oldID, newID int64) error
	AttachText(ctx context.Context, id int64, path, text string) error
}

type LexicalSearcher interface {
	SearchLexical(ctx context.Context, query string, limit int, latestOnly bool) ([]LexicalHit, error)
}

type BatchStore interface {
	StartBatch(ctx context.Context, sourcePath string, startedAt time.Time) (int64, error)
	RecordBatchItem(ctx context.Context, item domain.ImportBatchItem) error
	FinishBatch(ctx context.Context, batch domain.ImportBatch) error
	ListBatches(ctx context.Context, limit int) ([]domain.ImportBatch, error)
}

type ReviewStore interface {
	// AddReview returns the id of the pending review for the same pair when
	// one exists, refreshing its similarity and threshold.
	AddReview(ctx context.Context, review domain.VersionReview) (int64, error)
	GetReview(ctx context.Context, id int64) (*domain.VersionReview, error)
	// ListReviews filters by status; an empty status lists all reviews.
	ListReviews(ctx context.Context, status domain.ReviewStatus) ([]domain.VersionReview, error)
	ResolveReview(ctx context.Context, id int64, status domain.ReviewStatus, at time.Time) error
	// ConfirmReview supersedes the review's pair and marks it confirmed in one
	// step. A pair that went stale since the review opened is dismissed instead
	// and ErrStaleVersion is returned together with the dismissed review.
	ConfirmReview(ctx context.Context, id int64, at time.Time) (*domain.VersionReview, error)
}

type DocumentStore interface {
	DocumentReader
	DocumentWriter
	LexicalSearcher
	BatchStore
	ReviewStore
	Stats(ctx context.Context) (*domain.Stats, error)
	// Backup writes a consistent snapshot under dir and returns its path.
	Backup(ctx context.Context, dir string) (string, error)
	Close()
}

// UpdateError wraps invalid partial updates as validation failures.
func UpdateError(err error) error {
	return apperr.NewValidationWrap("invalid document update", err)
}

// CheckSupersession enforces that superseded_by, once set, never changes.
func CheckSupersession(current *int64, next *int64) error {
	if current == nil {
		return nil
	}
	if next == nil || *next != *current {
		return ErrSupersessionImmutable
	}
	return nil
}

// CheckLink validates oldID -> newID against the current links of both rows.
func CheckLink(oldID, newID int64, oldSupersededBy, newSupersededBy *int64) error {
	if oldID == newID {
		return apperr.NewValidation("a document cannot supersede itself")
	}
	if err := CheckSupersession(oldSupersededBy, &newID); err != nil {
		return err
	}
	if newSupersededBy != nil {
		return ErrStaleVersion
	}
	return nil
}

// CheckLatest rejects the state "superseded and latest"; chains never rewind.
func CheckLatest(supersededBy *int64, isLatest bool) error {
	if supersededBy != nil && isLatest {
		return ErrSupersededLatest
	}
	return nil
}

// IsStale reports whether err means a review's pair can no longer be linked.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleVersion) || errors.Is(err, ErrSupersessionImmutable)
}
