package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

func TestDocumentPrompt(t *testing.T) {
	desc := "Guidance on software qualification"
	doc := domain.Document{ID: 1, Title: "MDCG 2019-11", Description: &desc}

	assert.Equal(t, "MDCG 2019-11\nGuidance on software qualification", DocumentPrompt(doc, "   "))
	assert.Equal(t, "body", DocumentPrompt(doc, "  body\n"))

	long := strings.Repeat("é", MaxTextChars+50)
	assert.Len(t, []rune(DocumentPrompt(doc, long)), MaxTextChars)
}

func newOllama(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := embedResponse{Model: req.Model}
		for _, in := range req.Input {
			out.Embeddings = append(out.Embeddings, []float32{float32(len(in)), 1, 2, 3})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_WithOllama(t *testing.T) {
	srv := newOllama(t)
	client, err := NewOllamaClient(srv.URL)
	require.NoError(t, err)

	e := NewEmbedder(client, WithModel("test-model"), WithMaxLength(2))
	assert.Equal(t, "test-model", e.Model())

	v, err := e.EmbedDocument(context.Background(), domain.Document{ID: 9, Title: "t"}, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.ID)
	assert.Equal(t, []float32{3, 1}, v.Embedding)

	q, err := e.EmbedQuery(context.Background(), "cybersecurity")
	require.NoError(t, err)
	assert.Len(t, q.Embedding, 2)

	vecs, err := e.EmbedDocuments(context.Background(), []DocumentText{
		{Document: domain.Document{ID: 1, Title: "a"}},
		{Document: domain.Document{ID: 2, Title: "b"}, Text: "text"},
	})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, int64(2), vecs[1].ID)
}

func TestOllamaClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewOllamaClient(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Embed(ctx, "m", []string{"p"})
	assert.ErrorContains(t, err, "404")

	_, err = client.Embed(ctx, "m", nil)
	assert.ErrorContains(t, err, "missing text")

	_, err = client.Embed(ctx, "m", []string{"ok", " "})
	assert.ErrorContains(t, err, "input 1 is empty")

	_, err = client.Embed(ctx, "", []string{"p"})
	assert.ErrorContains(t, err, "missing model")

	_, err = NewOllamaClient("localhost")
	assert.Error(t, err)
}

func TestOllamaClient_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1}}})
	}))
	defer srv.Close()

	client, err := NewOllamaClient(srv.URL, WithKeepAlive("5m"))
	require.NoError(t, err)

	_, err = client.Embed(context.Background(), "m", []string{"a", "b"})
	assert.ErrorContains(t, err, "expected 2 embeddings, got 1")
}

func TestNewFromConfig_Disabled(t *testing.T) {
	e, err := NewFromConfig(Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, e)
}
