// Package version links newly imported documents to their prior versions.
//
// A prior version is the newest latest document sharing the new document's
// identifier. The pair is diffed and, when the texts are similar enough, the
// prior is superseded. A pair that fails the similarity gate is left untouched
// and recorded as a pending review.
package version

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/diff"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/extract"
	"github.com/DjordjeVuckovic/regkb/internal/identifier"
	"github.com/DjordjeVuckovic/regkb/internal/metrics"
	"github.com/DjordjeVuckovic/regkb/internal/notify"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

const (
	DefaultMinSimilarity = 0.15
	DefaultContextLines  = diff.DefaultContextLines
)

// Store is the subset of the document store the resolver mutates.
type Store interface {
	storage.DocumentReader
	storage.ReviewStore
	Supersede(ctx context.Context, oldID, newID int64) error
}

type Config struct {
	MinSimilarity float64
	ContextLines  int
	DiffsDir      string
}

// Result describes one resolution where a prior version was found.
type Result struct {
	NewDocID       int64                 `json:"new_doc_id"`
	OldDocID       int64                 `json:"old_doc_id"`
	NewTitle       string                `json:"new_title"`
	OldTitle       string                `json:"old_title"`
	Identifier     identifier.Identifier `json:"identifier"`
	Stats          *diff.Stats           `json:"stats,omitempty"`
	DiffHTMLPath   string                `json:"diff_html_path,omitempty"`
	AutoSuperseded bool                  `json:"auto_superseded"`
	Error          string                `json:"error,omitempty"`
	ReviewID       *int64                `json:"review_id,omitempty"`
}

type Resolver struct {
	store      Store
	texts      extract.TextReader
	normalizer *identifier.Normalizer
	cfg        Config

	now       func() time.Time
	publisher notify.Publisher
	metrics   *metrics.Metrics
}

type Option func(*Resolver)

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

func WithNormalizer(n *identifier.Normalizer) Option {
	return func(r *Resolver) {
		r.normalizer = n
	}
}

func WithPublisher(p notify.Publisher) Option {
	return func(r *Resolver) {
		r.publisher = p
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func NewResolver(store Store, texts extract.TextReader, cfg Config, opts ...Option) *Resolver {
	if cfg.ContextLines < 0 {
		cfg.ContextLines = DefaultContextLines
	}
	r := &Resolver{
		store:      store,
		texts:      texts,
		normalizer: identifier.NewNormalizer(identifier.DefaultRules()...),
		cfg:        cfg,
		now:        time.Now,
		publisher:  notify.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) MinSimilarity() float64 {
	return r.cfg.MinSimilarity
}

// ResolveAndApply finds the prior version of newDocID and applies the
// similarity gate. It returns (nil, nil) when the document has no identifier
// or no prior version, and for documents that are no longer the latest of
// their chain. Internal failures come back as a Diagnostic and leave the store
// and the diffs dir unmodified.
func (r *Resolver) ResolveAndApply(ctx context.Context, newDocID int64) (res *Result, diag *Diagnostic) {
	var artifact string
	defer func() {
		if p := recover(); p != nil {
			res = nil
			diag = diagnose(newDocID, StagePanic, fmt.Errorf("panic: %v", p))
		}
		if diag != nil {
			discardArtifact(artifact)
			r.metrics.RecordVersionOutcome("failed", nil)
		}
	}()

	doc, err := r.store.Get(ctx, newDocID)
	if err != nil {
		return nil, diagnose(newDocID, StageLoad, err)
	}
	if doc == nil {
		return nil, diagnose(newDocID, StageLoad, storage.ErrNotFound)
	}
	if doc.SupersededBy != nil || !doc.IsLatest {
		slog.Debug("Skipping resolution of a non-latest document", "id", newDocID, "superseded_by", doc.SupersededBy)
		r.metrics.RecordVersionOutcome("not_latest", nil)
		return nil, nil
	}

	id, ok := r.normalizer.Normalize(doc.Title)
	if !ok {
		slog.Debug("No identifier recognized", "id", newDocID, "title", doc.Title)
		r.metrics.RecordVersionOutcome("untracked", nil)
		return nil, nil
	}

	prior, err := r.findPrior(ctx, newDocID, id)
	if err != nil {
		return nil, diagnose(newDocID, StageCandidates, err)
	}
	if prior == nil {
		slog.Debug("No prior version found", "id", newDocID, "identifier", id)
		r.metrics.RecordVersionOutcome("no_prior", nil)
		return nil, nil
	}

	slog.Info("Found prior version", "id", newDocID, "prior_id", prior.ID, "identifier", id)

	res = &Result{
		NewDocID:   doc.ID,
		OldDocID:   prior.ID,
		NewTitle:   doc.Title,
		OldTitle:   prior.Title,
		Identifier: id,
	}

	oldText, newText, err := r.readPair(ctx, prior, doc)
	if err != nil {
		return nil, diagnose(newDocID, StageText, err)
	}
	if oldText == nil || newText == nil {
		res.Error = diff.ErrTextUnavailable.Error()
		slog.Warn("Cannot diff versions", "old_id", prior.ID, "new_id", doc.ID, "reason", res.Error)
		r.metrics.RecordVersionOutcome("text_unavailable", nil)
		return res, nil
	}

	report, err := diff.CompareTexts(
		diff.Side{ID: prior.ID, Title: prior.Title + " (prior)", Text: *oldText},
		diff.Side{ID: doc.ID, Title: doc.Title + " (new)", Text: *newText},
		diff.Options{Context: r.cfg.ContextLines, IncludeHTML: true},
	)
	if err != nil {
		return nil, diagnose(newDocID, StageDiff, err)
	}
	res.Stats = &report.Stats

	if r.cfg.DiffsDir != "" {
		path, err := writeArtifact(r.cfg.DiffsDir, ArtifactName(id, prior.ID, doc.ID, r.now()), report.HTML)
		if err != nil {
			return nil, diagnose(newDocID, StageArtifact, err)
		}
		artifact = path
		res.DiffHTMLPath = path
		slog.Info("Saved version diff", "path", path)
	}

	sim := report.Stats.Similarity
	if Passes(sim, r.cfg.MinSimilarity) {
		if err := r.store.Supersede(ctx, prior.ID, doc.ID); err != nil {
			return nil, diagnose(newDocID, StageSupersede, err)
		}
		res.AutoSuperseded = true
		slog.Info("Document superseded", "old_id", prior.ID, "new_id", doc.ID, "similarity", sim)
		r.metrics.RecordVersionOutcome("superseded", &sim)
		r.publish(ctx, r.supersededEvent(res))
		return res, nil
	}

	reviewID, err := r.store.AddReview(ctx, domain.VersionReview{
		Identifier: string(id),
		OldDocID:   prior.ID,
		NewDocID:   doc.ID,
		Similarity: sim,
		Threshold:  r.cfg.MinSimilarity,
		Status:     domain.ReviewPending,
		CreatedAt:  r.now(),
	})
	if err != nil {
		return nil, diagnose(newDocID, StageReview, err)
	}
	res.ReviewID = &reviewID
	res.Error = BelowThresholdMessage(sim, r.cfg.MinSimilarity)

	slog.Warn("Similarity below threshold, review required",
		"old_id", prior.ID, "new_id", doc.ID, "similarity", sim, "threshold", r.cfg.MinSimilarity, "review_id", reviewID)
	r.metrics.RecordVersionOutcome("below_threshold", &sim)

	ev := notify.NewEvent(notify.ReviewPending, doc.ID)
	ev.RelatedID = &prior.ID
	ev.ReviewID = &reviewID
	ev.Identifier = string(id)
	ev.Similarity = &sim
	r.publish(ctx, ev)

	return res, nil
}

// Passes reports whether similarity clears the supersession threshold.
func Passes(similarity, threshold float64) bool {
	return similarity >= threshold
}

func BelowThresholdMessage(similarity, threshold float64) string {
	return fmt.Sprintf(
		"similarity %.1f%% is below the %.1f%% threshold (min_similarity=%.2f); not auto-superseded, review the pair manually",
		similarity*100, threshold*100, threshold)
}

func (r *Resolver) findPrior(ctx context.Context, newDocID int64, id identifier.Identifier) (*domain.Document, error) {
	candidates, err := r.store.ListLatest(ctx, newDocID)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if cid, ok := r.normalizer.Normalize(candidates[i].Title); ok && cid == id {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// readPair returns nil for a side without extracted text.
func (r *Resolver) readPair(ctx context.Context, a, b *domain.Document) (*string, *string, error) {
	read := func(d *domain.Document) (*string, error) {
		text, ok, err := r.texts.ReadText(ctx, d)
		if err != nil || !ok {
			return nil, err
		}
		return &text, nil
	}

	ta, err := read(a)
	if err != nil {
		return nil, nil, err
	}
	tb, err := read(b)
	if err != nil {
		return nil, nil, err
	}
	return ta, tb, nil
}

func (r *Resolver) supersededEvent(res *Result) notify.Event {
	ev := notify.NewEvent(notify.DocumentSuperseded, res.NewDocID)
	old := res.OldDocID
	ev.RelatedID = &old
	ev.Identifier = string(res.Identifier)
	ev.Title = res.NewTitle
	if res.Stats != nil {
		sim := res.Stats.Similarity
		ev.Similarity = &sim
	}
	return ev
}

func (r *Resolver) publish(ctx context.Context, ev notify.Event) {
	if err := r.publisher.Publish(ctx, ev); err != nil {
		slog.Warn("Failed to publish event", "type", ev.Type, "document_id", ev.DocumentID, "error", err)
	}
}
