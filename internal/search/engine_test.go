package search

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
	"github.com/DjordjeVuckovic/regkb/internal/embedding"
	"github.com/DjordjeVuckovic/regkb/internal/extract"
	"github.com/DjordjeVuckovic/regkb/internal/storage"
	"github.com/DjordjeVuckovic/regkb/internal/storage/memory"
)

const fakeDims = 64

// bagOfWords embeds text as hashed term counts, so shared words mean a
// smaller cosine distance.
type bagOfWords struct {
	queryErr error
	calls    int
}

func (b *bagOfWords) Model() string { return "bag-of-words" }

func (b *bagOfWords) vector(text string) []float32 {
	v := make([]float32, fakeDims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%fakeDims]++
	}
	return v
}

func (b *bagOfWords) EmbedQuery(_ context.Context, q string) (*embedding.Vec, error) {
	if b.queryErr != nil {
		return nil, b.queryErr
	}
	return &embedding.Vec{Embedding: b.vector(q), Model: b.Model()}, nil
}

func (b *bagOfWords) EmbedDocuments(_ context.Context, docs []embedding.DocumentText) ([]embedding.Vec, error) {
	b.calls++
	out := make([]embedding.Vec, len(docs))
	for i, d := range docs {
		out[i] = embedding.Vec{
			Embedding: b.vector(embedding.DocumentPrompt(d.Document, d.Text)),
			Model:     b.Model(),
			ID:        d.Document.ID,
		}
	}
	return out, nil
}

type failingLexical struct{}

func (failingLexical) SearchLexical(context.Context, string, int, bool) ([]storage.LexicalHit, error) {
	return nil, errors.New("index unavailable")
}

type recordingIndexer struct {
	docs []storage.IndexedDocument
}

func (r *recordingIndexer) IndexDocuments(_ context.Context, docs []storage.IndexedDocument) error {
	r.docs = append(r.docs, docs...)
	return nil
}

type fixture struct {
	store *memory.Store
	texts *extract.TextStore
	ids   map[string]int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		store: memory.New(),
		texts: extract.NewTextStore(t.TempDir()),
		ids:   make(map[string]int64),
	}
}

func (f *fixture) add(t *testing.T, key, title, jurisdiction, text string) int64 {
	t.Helper()
	ctx := context.Background()

	id, err := f.store.Add(ctx, domain.NewDocument{
		Hash:         key,
		Title:        title,
		DocumentType: "guidance",
		Jurisdiction: jurisdiction,
		FilePath:     "/archive/" + key + ".pdf",
	})
	require.NoError(t, err)

	if text != "" {
		path, err := f.texts.Write(id, text)
		require.NoError(t, err)
		require.NoError(t, f.store.AttachText(ctx, id, path, text))
	}
	f.ids[key] = id
	return id
}

func (f *fixture) seed(t *testing.T) {
	f.add(t, "fda-2014", "FDA Cybersecurity Premarket Guidance 2014", "FDA",
		"Content of premarket submissions for management of cybersecurity in medical devices. 2014 edition.")
	f.add(t, "fda-2023", "FDA Cybersecurity Premarket Guidance 2023", "FDA",
		"Cybersecurity in medical devices: quality system considerations and content of premarket submissions.")
	f.add(t, "mdcg-2019-16", "MDCG 2019-16 Guidance on Cybersecurity", "EU",
		"Guidance on cybersecurity for medical devices under the MDR and IVDR.")
	f.add(t, "qmsr", "21 CFR Part 820 Quality Management System Regulation", "FDA",
		"Quality management system requirements for manufacturers.")
}

func ids(results []Result) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.Document.ID
	}
	return out
}

func TestSearch_SupersededDocumentExcluded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	engine := NewEngine(f.store, f.store, f.texts, WithSemantic(&bagOfWords{}, f.store))
	_, err := engine.ReindexAll(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, f.store.Supersede(ctx, f.ids["fda-2014"], f.ids["fda-2023"]))

	results, err := engine.Search(ctx, Query{
		Text:         "cybersecurity",
		Limit:        10,
		Jurisdiction: "FDA",
		LatestOnly:   true,
	})
	require.NoError(t, err)

	got := ids(results)
	assert.Contains(t, got, f.ids["fda-2023"])
	assert.NotContains(t, got, f.ids["fda-2014"])
	for _, r := range results {
		assert.Equal(t, "FDA", r.Document.Jurisdiction)
		assert.True(t, r.Document.IsLatest)
	}
}

func TestSearch_IncludesSupersededWhenNotLatestOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	engine := NewEngine(f.store, f.store, f.texts)
	require.NoError(t, f.store.Supersede(ctx, f.ids["fda-2014"], f.ids["fda-2023"]))

	results, err := engine.Search(ctx, Query{Text: "cybersecurity", Jurisdiction: "FDA"})
	require.NoError(t, err)

	got := ids(results)
	assert.Contains(t, got, f.ids["fda-2014"])
	assert.Contains(t, got, f.ids["fda-2023"])
}

func TestSearch_MergeSemanticFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	engine := NewEngine(f.store, f.store, f.texts, WithSemantic(&bagOfWords{}, f.store))
	_, err := engine.ReindexAll(ctx, nil)
	require.NoError(t, err)

	results, err := engine.Search(ctx, Query{Text: "cybersecurity guidance", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	seen := make(map[int64]bool)
	for i, r := range results {
		assert.False(t, seen[r.Document.ID], "duplicate document %d", r.Document.ID)
		seen[r.Document.ID] = true
		// every stored document has an embedding, so the vector ranker sees them first
		assert.Equal(t, SourceSemantic, r.Source)
		if i > 0 {
			assert.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
		assert.Greater(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestSearch_Limit(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	engine := NewEngine(f.store, f.store, f.texts)
	results, err := engine.Search(context.Background(), Query{Text: "cybersecurity", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_FailingRankerSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	t.Run("lexical fails", func(t *testing.T) {
		engine := NewEngine(f.store, failingLexical{}, f.texts, WithSemantic(&bagOfWords{}, f.store))
		_, err := engine.ReindexAll(ctx, nil)
		require.NoError(t, err)

		results, err := engine.Search(ctx, Query{Text: "cybersecurity"})
		require.NoError(t, err)
		assert.NotEmpty(t, results)
	})

	t.Run("semantic fails", func(t *testing.T) {
		emb := &bagOfWords{queryErr: errors.New("ollama down")}
		engine := NewEngine(f.store, f.store, f.texts, WithSemantic(emb, f.store))

		results, err := engine.Search(ctx, Query{Text: "cybersecurity"})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, SourceLexical, results[0].Source)
	})

	t.Run("both fail", func(t *testing.T) {
		emb := &bagOfWords{queryErr: errors.New("ollama down")}
		engine := NewEngine(f.store, failingLexical{}, f.texts, WithSemantic(emb, f.store))

		_, err := engine.Search(ctx, Query{Text: "cybersecurity"})
		assert.ErrorIs(t, err, ErrAllRankersFailed)
	})
}

func TestSearch_Excerpt(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	engine := NewEngine(f.store, f.store, f.texts)
	results, err := engine.Search(context.Background(), Query{
		Text:           "quality management",
		Limit:          1,
		IncludeExcerpt: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, strings.ToLower(results[0].Excerpt), "quality management")
}

func TestExcerpt(t *testing.T) {
	t.Run("short text returned whole", func(t *testing.T) {
		assert.Equal(t, "Cybersecurity guidance.", Excerpt("  Cybersecurity guidance.  ", "cybersecurity"))
	})

	t.Run("window around best match", func(t *testing.T) {
		text := strings.Repeat("filler text ", 50) + "the cybersecurity premarket section " + strings.Repeat("more filler ", 50)

		got := Excerpt(text, "cybersecurity premarket")

		assert.True(t, strings.HasPrefix(got, "..."))
		assert.True(t, strings.HasSuffix(got, "..."))
		assert.Contains(t, got, "cybersecurity premarket")
		assert.LessOrEqual(t, len([]rune(got)), excerptWindow+excerptLead+6)
	})

	t.Run("no match starts at beginning", func(t *testing.T) {
		text := strings.Repeat("abcdefghij", 40)

		got := Excerpt(text, "zzz")

		assert.False(t, strings.HasPrefix(got, "..."))
		assert.True(t, strings.HasSuffix(got, "..."))
		assert.Len(t, got, excerptWindow+3)
	})
}

func TestReindexAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	f.add(t, "no-text", "IMDRF SaMD Key Definitions", "International", "")

	emb := &bagOfWords{}
	idx := &recordingIndexer{}
	engine := NewEngine(f.store, f.store, f.texts,
		WithSemantic(emb, f.store),
		WithIndexer(idx),
		WithBatchSize(2),
	)

	var progress [][2]int
	n, err := engine.ReindexAll(ctx, func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, 3, emb.calls)
	assert.Equal(t, [][2]int{{2, 5}, {4, 5}, {5, 5}}, progress)
	assert.Len(t, idx.docs, 5)

	count, err := f.store.CountEmbeddings(ctx, emb.Model())
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	for _, d := range idx.docs {
		if d.Document.ID == f.ids["no-text"] {
			assert.Equal(t, "IMDRF SaMD Key Definitions ", d.Text)
		}
	}

	n, err = engine.ReindexAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	count, err = f.store.CountEmbeddings(ctx, emb.Model())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestReindexAll_NoIndexConfigured(t *testing.T) {
	f := newFixture(t)
	engine := NewEngine(f.store, f.store, f.texts)

	_, err := engine.ReindexAll(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoIndex)
}
