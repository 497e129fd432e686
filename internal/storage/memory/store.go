// Package memory is a mutex-guarded DocumentStore with the same semantics as
// the Postgres store. It backs tests and STORAGE_TYPE=memory.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	docs   map[int64]*domain.Document
	byHash map[string]int64
	texts  map[int64]string
	nextID int64

	batches   map[int64]*domain.ImportBatch
	items     []domain.ImportBatchItem
	nextBatch int64

	reviews    map[int64]*domain.VersionReview
	nextReview int64

	vectors map[vectorKey]vectorEntry
}

var _ storage.DocumentStore = (*Store)(nil)

func New(opts ...Option) *Store {
	s := &Store{
		now:     time.Now,
		docs:    make(map[int64]*domain.Document),
		byHash:  make(map[string]int64),
		texts:   make(map[int64]string),
		batches: make(map[int64]*domain.ImportBatch),
		reviews: make(map[int64]*domain.VersionReview),
		vectors: make(map[vectorKey]vectorEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() {}

func (s *Store) Exists(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHash[hash]
	return ok, nil
}

func (s *Store) Add(_ context.Context, nd domain.NewDocument) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHash[nd.Hash]; ok {
		return 0, storage.ErrDuplicate
	}

	now := s.now()
	nd.ApplyDefaults(now)
	s.nextID++
	doc := &domain.Document{
		ID:           s.nextID,
		Hash:         nd.Hash,
		Title:        nd.Title,
		DocumentType: nd.DocumentType,
		Jurisdiction: nd.Jurisdiction,
		Version:      nd.Version,
		IsLatest:     true,
		SourceURL:    nd.SourceURL,
		FilePath:     nd.FilePath,
		Description:  nd.Description,
		DownloadDate: nd.DownloadDate,
		ImportDate:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.docs[doc.ID] = doc
	s.byHash[doc.Hash] = doc.ID
	return doc.ID, nil
}

func (s *Store) Get(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(id), nil
}

func (s *Store) GetByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, nil
	}
	return s.copyOf(id), nil
}

func (s *Store) copyOf(id int64) *domain.Document {
	d, ok := s.docs[id]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

func (s *Store) List(_ context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Document
	for _, d := range s.sorted() {
		if filter.Matches(d) {
			out = append(out, *d)
		}
	}
	return page(out, filter.Offset, filter.Limit), nil
}

func (s *Store) ListLatest(_ context.Context, excludeID int64) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Document
	for _, d := range s.sorted() {
		if d.IsLatest && d.ID != excludeID {
			out = append(out, *d)
		}
	}
	return out, nil
}

// sorted orders by import date then id, newest first.
func (s *Store) sorted() []*domain.Document {
	docs := make([]*domain.Document, 0, len(s.docs))
	for _, d := range s.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].ImportDate.Equal(docs[j].ImportDate) {
			return docs[i].ImportDate.After(docs[j].ImportDate)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs
}

func page[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (s *Store) Update(_ context.Context, id int64, fields domain.Fields) (bool, error) {
	valid, err := fields.Validate()
	if err != nil {
		return false, storage.UpdateError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return false, nil
	}
	next := *d
	for name, v := range valid {
		switch name {
		case domain.FieldTitle:
			next.Title = v.(string)
		case domain.FieldDocumentType:
			next.DocumentType = v.(string)
		case domain.FieldJurisdiction:
			next.Jurisdiction = v.(string)
		case domain.FieldVersion:
			next.Version = v.(*string)
		case domain.FieldIsLatest:
			next.IsLatest = v.(bool)
		case domain.FieldSourceURL:
			next.SourceURL = v.(*string)
		case domain.FieldDescription:
			next.Description = v.(*string)
		case domain.FieldExtractedPath:
			next.ExtractedPath = v.(*string)
		case domain.FieldSupersededBy:
			to := v.(int64)
			next.SupersededBy = &to
		}
	}
	if err := storage.CheckSupersession(d.SupersededBy, next.SupersededBy); err != nil {
		return false, err
	}
	if err := storage.CheckLatest(next.SupersededBy, next.IsLatest); err != nil {
		return false, err
	}
	next.UpdatedAt = s.now()
	*d = next
	return true, nil
}

func (s *Store) Supersede(_ context.Context, oldID, newID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.supersedeLocked(oldID, newID)
}

func (s *Store) supersedeLocked(oldID, newID int64) error {
	old, ok := s.docs[oldID]
	if !ok {
		return fmt.Errorf("failed to supersede document %d: %w", oldID, storage.ErrNotFound)
	}
	nd, ok := s.docs[newID]
	if !ok {
		return fmt.Errorf("failed to supersede with document %d: %w", newID, storage.ErrNotFound)
	}
	if err := storage.CheckLink(oldID, newID, old.SupersededBy, nd.SupersededBy); err != nil {
		return err
	}

	now := s.now()
	old.IsLatest = false
	old.SupersededBy = &newID
	old.UpdatedAt = now
	nd.IsLatest = true
	nd.UpdatedAt = now
	return nil
}

func (s *Store) AttachText(_ context.Context, id int64, path, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("failed to attach text to document %d: %w", id, storage.ErrNotFound)
	}
	d.ExtractedPath = &path
	d.UpdatedAt = s.now()
	s.texts[id] = text
	return nil
}

func (s *Store) Stats(_ context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &domain.Stats{
		ByType:         make(map[string]int64),
		ByJurisdiction: make(map[string]int64),
		TotalImports:   int64(len(s.batches)),
	}
	for _, d := range s.docs {
		st.TotalDocuments++
		st.ByType[d.DocumentType]++
		st.ByJurisdiction[d.Jurisdiction]++
		if d.IsLatest {
			st.LatestVersions++
		}
	}
	for _, r := range s.reviews {
		if r.Status == domain.ReviewPending {
			st.PendingReviews++
		}
	}
	return st, nil
}

type snapshot struct {
	Documents []domain.Document        `json:"documents"`
	Batches   []domain.ImportBatch     `json:"import_batches"`
	Items     []domain.ImportBatchItem `json:"import_batch_items"`
	Reviews   []domain.VersionReview   `json:"version_reviews"`
}

// Backup writes a JSON snapshot of every collection.
func (s *Store) Backup(_ context.Context, dir string) (string, error) {
	s.mu.RLock()
	snap := snapshot{Items: append([]domain.ImportBatchItem(nil), s.items...)}
	for _, d := range s.sorted() {
		snap.Documents = append(snap.Documents, *d)
	}
	for _, b := range s.batches {
		snap.Batches = append(snap.Batches, *b)
	}
	for _, r := range s.reviews {
		snap.Reviews = append(snap.Reviews, *r)
	}
	now := s.now()
	s.mu.RUnlock()

	out := filepath.Join(dir, "regkb_backup_"+now.Format("20060102_150405"))
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup dir: %w", err)
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := os.WriteFile(filepath.Join(out, "snapshot.json"), b, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return out, nil
}
