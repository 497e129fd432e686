package memory

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

type tickingClock struct {
	t time.Time
}

func (c *tickingClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newStore() *Store {
	clock := &tickingClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(WithClock(clock.Now))
}

func add(t *testing.T, s *Store, hash, title string) int64 {
	t.Helper()
	id, err := s.Add(context.Background(), domain.NewDocument{Hash: hash, Title: title, FilePath: "/archive/" + hash})
	require.NoError(t, err)
	return id
}

func TestStore_AddAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	id := add(t, s, "h1", "ISO 13485")
	doc, err := s.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.True(t, doc.IsLatest)
	assert.Equal(t, domain.DefaultDocumentType, doc.DocumentType)
	assert.Equal(t, domain.DefaultJurisdiction, doc.Jurisdiction)
	assert.False(t, doc.ImportDate.IsZero())

	exists, err := s.Exists(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := s.Get(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byHash, err := s.GetByHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, byHash)
}

func TestStore_HashUniqueness(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Add(ctx, domain.NewDocument{Hash: "same", Title: "Doc"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrDuplicate)
	}
	assert.Equal(t, 1, succeeded)

	docs, err := s.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	id := add(t, s, "h1", "Old title")

	ok, err := s.Update(ctx, id, domain.Fields{"title": "New title", "description": "desc"})
	require.NoError(t, err)
	assert.True(t, ok)

	doc, _ := s.Get(ctx, id)
	assert.Equal(t, "New title", doc.Title)
	assert.Equal(t, "desc", doc.DescriptionOrEmpty())

	ok, err = s.Update(ctx, 999, domain.Fields{"title": "x"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Update(ctx, id, domain.Fields{"color": "red"})
	var ve *apperr.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestStore_SupersessionImmutable(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	a := add(t, s, "a", "ISO 13485")
	b := add(t, s, "b", "ISO 13485 Rev2")
	c := add(t, s, "c", "ISO 13485 Rev3")

	require.NoError(t, s.Supersede(ctx, a, b))

	old, _ := s.Get(ctx, a)
	assert.False(t, old.IsLatest)
	require.NotNil(t, old.SupersededBy)
	assert.Equal(t, b, *old.SupersededBy)

	assert.ErrorIs(t, s.Supersede(ctx, a, c), storage.ErrSupersessionImmutable)
	_, err := s.Update(ctx, a, domain.Fields{"superseded_by": c})
	assert.ErrorIs(t, err, storage.ErrSupersessionImmutable)

	// same link again is a no-op
	require.NoError(t, s.Supersede(ctx, a, b))
	ok, err := s.Update(ctx, a, domain.Fields{"superseded_by": b, "is_latest": false})
	require.NoError(t, err)
	assert.True(t, ok)

	old, _ = s.Get(ctx, a)
	assert.Equal(t, b, *old.SupersededBy)

	assert.ErrorIs(t, s.Supersede(ctx, 999, b), storage.ErrNotFound)
}

func TestStore_SupersededNeverLatest(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	a := add(t, s, "a", "ISO 13485")
	b := add(t, s, "b", "ISO 13485 Rev2")
	c := add(t, s, "c", "ISO 13485 Rev3")
	require.NoError(t, s.Supersede(ctx, a, b))

	_, err := s.Update(ctx, a, domain.Fields{"is_latest": true})
	assert.ErrorIs(t, err, storage.ErrSupersededLatest)
	old, _ := s.Get(ctx, a)
	assert.False(t, old.IsLatest)

	// a link set by hand must also retire the document
	_, err = s.Update(ctx, c, domain.Fields{"superseded_by": b})
	assert.ErrorIs(t, err, storage.ErrSupersededLatest)
	ok, err := s.Update(ctx, c, domain.Fields{"superseded_by": b, "is_latest": false})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.Supersede(ctx, b, a), storage.ErrStaleVersion)
	newer, _ := s.Get(ctx, b)
	assert.True(t, newer.IsLatest)
	assert.Nil(t, newer.SupersededBy)
}

func TestStore_ListLatestOrdering(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	a := add(t, s, "a", "A")
	b := add(t, s, "b", "B")
	c := add(t, s, "c", "C")
	require.NoError(t, s.Supersede(ctx, a, b))

	latest, err := s.ListLatest(ctx, c)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, b, latest[0].ID)

	all, err := s.ListLatest(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, c, all[0].ID)
}

func TestStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	for i, j := range []string{"EU", "FDA", "FDA", "UK"} {
		_, err := s.Add(ctx, domain.NewDocument{Hash: j + string(rune('a'+i)), Title: j, Jurisdiction: j, DocumentType: "guidance"})
		require.NoError(t, err)
	}

	fda, err := s.List(ctx, domain.ListFilter{Jurisdiction: "FDA"})
	require.NoError(t, err)
	assert.Len(t, fda, 2)

	paged, err := s.List(ctx, domain.ListFilter{Limit: 2, Offset: 3})
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	none, err := s.List(ctx, domain.ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_SearchLexical(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	a := add(t, s, "a", "Cybersecurity in Medical Devices")
	b := add(t, s, "b", "Quality Management")
	require.NoError(t, s.AttachText(ctx, b, "/x/b.md", "a section on cybersecurity controls"))
	add(t, s, "c", "Labelling")

	hits, err := s.SearchLexical(ctx, "cybersecurity", 10, false)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a, hits[0].Document.ID, "title matches rank first")
	assert.Less(t, hits[0].Relevance, 0.0)
	assert.LessOrEqual(t, hits[0].Relevance, hits[1].Relevance)

	require.NoError(t, s.Supersede(ctx, a, b))
	hits, err = s.SearchLexical(ctx, "cybersecurity", 10, true)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, b, hits[0].Document.ID)

	hits, err = s.SearchLexical(ctx, "  ", 10, false)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStore_Embeddings(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	a := add(t, s, "a", "A")
	b := add(t, s, "b", "B")

	require.NoError(t, s.UpsertEmbedding(ctx, a, "m", []float32{1, 0}))
	require.NoError(t, s.UpsertEmbedding(ctx, b, "m", []float32{0, 1}))
	require.NoError(t, s.UpsertEmbedding(ctx, b, "m", []float32{0.9, 0.1}))
	require.Error(t, s.UpsertEmbedding(ctx, 99, "m", []float32{1, 0}))

	n, err := s.CountEmbeddings(ctx, "m")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := s.QueryEmbedding(ctx, []float32{1, 0}, "m", 5, storage.VectorFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, a, hits[0].Document.ID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)

	other, err := s.QueryEmbedding(ctx, []float32{1, 0}, "other-model", 5, storage.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_BatchesAndReviews(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	started := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	batchID, err := s.StartBatch(ctx, "/inbox", started)
	require.NoError(t, err)
	require.NoError(t, s.RecordBatchItem(ctx, domain.ImportBatchItem{BatchID: batchID, FilePath: "a.pdf", Status: domain.ItemImported}))
	assert.Error(t, s.RecordBatchItem(ctx, domain.ImportBatchItem{BatchID: 42}))

	done := started.Add(time.Minute)
	require.NoError(t, s.FinishBatch(ctx, domain.ImportBatch{ID: batchID, CompletedAt: &done, TotalFiles: 1, Imported: 1, Status: domain.BatchCompleted}))

	batches, err := s.ListBatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, domain.BatchCompleted, batches[0].Status)
	assert.Len(t, s.BatchItems(batchID), 1)

	reviewID, err := s.AddReview(ctx, domain.VersionReview{Identifier: "ISO 13485", OldDocID: 1, NewDocID: 2, Similarity: 0.05, Threshold: 0.15})
	require.NoError(t, err)

	pending, err := s.ListReviews(ctx, domain.ReviewPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, s.ResolveReview(ctx, reviewID, domain.ReviewDismissed, done))
	assert.ErrorIs(t, s.ResolveReview(ctx, reviewID, domain.ReviewConfirmed, done), storage.ErrReviewResolved)

	r, err := s.GetReview(ctx, reviewID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewDismissed, r.Status)
	require.NotNil(t, r.ResolvedAt)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalImports)
	assert.Equal(t, int64(0), st.PendingReviews)
}

func TestStore_Backup(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	add(t, s, "a", "A")

	dir, err := s.Backup(ctx, t.TempDir())
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "snapshot.json"))
	require.NoError(t, err)

	var snap snapshot
	require.NoError(t, json.Unmarshal(b, &snap))
	assert.Len(t, snap.Documents, 1)
	assert.Contains(t, filepath.Base(dir), "regkb_backup_")
}

func TestStore_OnePendingReviewPerPair(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	first, err := s.AddReview(ctx, domain.VersionReview{OldDocID: 1, NewDocID: 2, Similarity: 0.05, Threshold: 0.15})
	require.NoError(t, err)
	again, err := s.AddReview(ctx, domain.VersionReview{OldDocID: 1, NewDocID: 2, Similarity: 0.07, Threshold: 0.2})
	require.NoError(t, err)
	assert.Equal(t, first, again)

	r, _ := s.GetReview(ctx, first)
	assert.Equal(t, 0.07, r.Similarity)
	assert.Equal(t, 0.2, r.Threshold)

	require.NoError(t, s.ResolveReview(ctx, first, domain.ReviewDismissed, time.Now()))
	reopened, err := s.AddReview(ctx, domain.VersionReview{OldDocID: 1, NewDocID: 2})
	require.NoError(t, err)
	assert.NotEqual(t, first, reopened)
}

func TestStore_ConfirmReview(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("links the pair and confirms", func(t *testing.T) {
		s := newStore()
		a := add(t, s, "a", "MDCG 2020-1")
		b := add(t, s, "b", "MDCG 2020-1 Rev1")
		id, err := s.AddReview(ctx, domain.VersionReview{OldDocID: a, NewDocID: b})
		require.NoError(t, err)

		r, err := s.ConfirmReview(ctx, id, at)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewConfirmed, r.Status)
		assert.Equal(t, at, *r.ResolvedAt)

		old, _ := s.Get(ctx, a)
		assert.Equal(t, b, *old.SupersededBy)

		_, err = s.ConfirmReview(ctx, id, at)
		assert.ErrorIs(t, err, storage.ErrReviewResolved)
	})

	t.Run("stale pair is dismissed", func(t *testing.T) {
		s := newStore()
		a := add(t, s, "a", "MDCG 2020-1")
		b := add(t, s, "b", "MDCG 2020-1 Rev1")
		c := add(t, s, "c", "MDCG 2020-1 Rev2")
		id, err := s.AddReview(ctx, domain.VersionReview{OldDocID: a, NewDocID: b})
		require.NoError(t, err)
		require.NoError(t, s.Supersede(ctx, b, c))

		r, err := s.ConfirmReview(ctx, id, at)
		assert.ErrorIs(t, err, storage.ErrStaleVersion)
		require.NotNil(t, r)
		assert.Equal(t, domain.ReviewDismissed, r.Status)

		old, _ := s.Get(ctx, a)
		assert.True(t, old.IsLatest)
		assert.Nil(t, old.SupersededBy)
		mid, _ := s.Get(ctx, b)
		assert.False(t, mid.IsLatest)
	})

	t.Run("unknown review", func(t *testing.T) {
		_, err := newStore().ConfirmReview(ctx, 7, at)
		var nf *apperr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})
}
