package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
)

const (
	bm25K1      = 1.2
	bm25B       = 0.75
	titleWeight = 3
)

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// SearchLexical scores documents with BM25 over title, description and
// extracted text. Relevance is negated so that lower means more relevant.
func (s *Store) SearchLexical(_ context.Context, query string, limit int, latestOnly bool) ([]storage.LexicalHit, error) {
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type docTerms struct {
		id  int64
		tf  map[string]float64
		len float64
	}
	var corpus []docTerms
	var totalLen float64
	for _, d := range s.docs {
		if latestOnly && !d.IsLatest {
			continue
		}
		tf := make(map[string]float64)
		var n float64
		for _, tok := range tokenize(d.Title) {
			tf[tok] += titleWeight
			n++
		}
		for _, tok := range tokenize(d.DescriptionOrEmpty() + " " + s.texts[d.ID]) {
			tf[tok]++
			n++
		}
		corpus = append(corpus, docTerms{id: d.ID, tf: tf, len: n})
		totalLen += n
	}
	if len(corpus) == 0 {
		return nil, nil
	}
	avgLen := totalLen / float64(len(corpus))

	df := make(map[string]float64)
	for _, dt := range corpus {
		for _, t := range terms {
			if dt.tf[t] > 0 {
				df[t]++
			}
		}
	}

	n := float64(len(corpus))
	var hits []storage.LexicalHit
	for _, dt := range corpus {
		var score float64
		for _, t := range terms {
			f := dt.tf[t]
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-df[t]+0.5)/(df[t]+0.5))
			score += idf * f * (bm25K1 + 1) / (f + bm25K1*(1-bm25B+bm25B*dt.len/avgLen))
		}
		if score > 0 {
			hits = append(hits, storage.LexicalHit{Document: *s.docs[dt.id], Relevance: -score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Relevance != hits[j].Relevance {
			return hits[i].Relevance < hits[j].Relevance
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
