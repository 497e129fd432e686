package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DjordjeVuckovic/regkb/internal/domain"
)

// MaxTextChars caps how much document text is sent to the model.
const MaxTextChars = 10000

type Embedder struct {
	maxLength *int
	model     string

	client Client
}

type Vec struct {
	Embedding []float32
	Model     string
	ID        int64
}

type EmbedderOption func(executor *Embedder)

func NewEmbedder(client Client, opts ...EmbedderOption) *Embedder {
	base := &Embedder{
		model:  DefaultModel,
		client: client,
	}

	for _, opt := range opts {
		opt(base)
	}

	return base
}

func WithModel(model string) EmbedderOption {
	return func(executor *Embedder) {
		if model != "" {
			executor.model = model
		}
	}
}

func WithMaxLength(length int) EmbedderOption {
	return func(executor *Embedder) {
		executor.maxLength = &length
	}
}

func (e *Embedder) Model() string {
	return e.model
}

// EmbedDocument embeds the extracted text, or title and description when the
// document has none.
func (e *Embedder) EmbedDocument(ctx context.Context, doc domain.Document, text string) (*Vec, error) {
	prompt := DocumentPrompt(doc, text)

	slog.Debug("Embedding document", "id", doc.ID, "prompt_length", len(prompt))

	embeds, err := e.client.Embed(ctx, e.model, []string{prompt})
	if err != nil {
		return nil, fmt.Errorf("failed to embed document %d: %w", doc.ID, err)
	}

	return &Vec{
		Embedding: e.truncate(embeds[0]),
		Model:     e.model,
		ID:        doc.ID,
	}, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, query string) (*Vec, error) {
	task := "Given a question about medical device regulation, retrieve relevant regulatory documents"
	instruct := wrapWithInstruct(
		task,
		strings.TrimSpace(query),
	)

	slog.Debug("Embedding query with instruct", "task", task, "query", query)

	embeds, err := e.client.Embed(ctx, e.model, []string{instruct})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return &Vec{
		Embedding: e.truncate(embeds[0]),
		Model:     e.model,
	}, nil
}

func (e *Embedder) truncate(v []float32) []float32 {
	if e.maxLength != nil && len(v) > *e.maxLength {
		return v[:*e.maxLength]
	}
	return v
}

// DocumentPrompt is the text a document is embedded from, capped at MaxTextChars.
func DocumentPrompt(doc domain.Document, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		text = strings.TrimSpace(doc.Title + "\n" + doc.DescriptionOrEmpty())
	}
	if r := []rune(text); len(r) > MaxTextChars {
		text = string(r[:MaxTextChars])
	}
	return text
}

func wrapWithInstruct(task, query string) string {
	return fmt.Sprintf("Instruct: %s\nQuery:%s", task, query)
}

// DocumentText pairs a document with its extracted text for batch embedding.
type DocumentText struct {
	Document domain.Document
	Text     string
}

func (e *Embedder) EmbedDocuments(ctx context.Context, docs []DocumentText) ([]Vec, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	prompts := make([]string, len(docs))
	for i, d := range docs {
		prompts[i] = DocumentPrompt(d.Document, d.Text)
	}

	slog.Debug("Bulk embedding documents", "count", len(docs))

	embeds, err := e.client.Embed(ctx, e.model, prompts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d documents: %w", len(docs), err)
	}

	vecs := make([]Vec, len(docs))
	for i, emb := range embeds {
		vecs[i] = Vec{
			Embedding: e.truncate(emb),
			Model:     e.model,
			ID:        docs[i].Document.ID,
		}
	}

	slog.Debug("Generated bulk embeddings", "count", len(vecs), "model", e.model)
	return vecs, nil
}
