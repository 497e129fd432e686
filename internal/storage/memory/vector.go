package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

type vectorKey struct {
	docID int64
	model string
}

type vectorEntry struct {
	vec []float32
}

var _ storage.VectorIndex = (*Store)(nil)

func (s *Store) UpsertEmbedding(_ context.Context, docID int64, model string, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[docID]; !ok {
		return fmt.Errorf("failed to upsert embedding for document %d: %w", docID, storage.ErrNotFound)
	}
	s.vectors[vectorKey{docID: docID, model: model}] = vectorEntry{vec: append([]float32(nil), vec...)}
	return nil
}

func (s *Store) QueryEmbedding(_ context.Context, vec []float32, model string, limit int, filter storage.VectorFilter) ([]storage.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []storage.VectorHit
	for k, e := range s.vectors {
		if k.model != model {
			continue
		}
		d := s.docs[k.docID]
		if filter.DocumentType != "" && d.DocumentType != filter.DocumentType {
			continue
		}
		if filter.Jurisdiction != "" && d.Jurisdiction != filter.Jurisdiction {
			continue
		}
		hits = append(hits, storage.VectorHit{Document: *d, Distance: cosineDistance(vec, e.vec)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) CountEmbeddings(_ context.Context, model string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for k := range s.vectors {
		if k.model == model {
			n++
		}
	}
	return n, nil
}

// cosineDistance matches pgvector's <=> operator: 1 - cosine similarity.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
