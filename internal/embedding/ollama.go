// Package embedding turns document text and search queries into vectors via
// an Ollama-compatible embedding service.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/regkb/internal/apperr"
)

const (
	DefaultModel = "nomic-embed-text"

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 512
)

// Client returns one vector per input, in input order.
type Client interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

type OllamaOption func(*OllamaClient)

type OllamaClient struct {
	endpoint  string
	keepAlive string
	http      *http.Client
}

func NewOllamaClient(baseURL string, opts ...OllamaOption) (*OllamaClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, apperr.NewValidation(fmt.Sprintf("invalid ollama url %q", baseURL))
	}

	c := &OllamaClient{
		endpoint: base.JoinPath("/api/embed").String(),
		http:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func WithHTTPClient(hc *http.Client) OllamaOption {
	return func(c *OllamaClient) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) OllamaOption {
	return func(c *OllamaClient) {
		c.http.Timeout = d
	}
}

// WithKeepAlive controls how long the model stays loaded after a request, e.g. "10m".
func WithKeepAlive(d string) OllamaOption {
	return func(c *OllamaClient) {
		c.keepAlive = d
	}
}

type embedRequest struct {
	Model     string   `json:"model"`
	Input     []string `json:"input"`
	KeepAlive string   `json:"keep_alive,omitempty"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

func (c *OllamaClient) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if model == "" {
		return nil, apperr.NewValidation("missing model name")
	}
	if len(inputs) == 0 {
		return nil, apperr.NewValidation("missing text to embed")
	}
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			return nil, apperr.NewValidation(fmt.Sprintf("input %d is empty", i))
		}
	}

	body, err := json.Marshal(embedRequest{Model: model, Input: inputs, KeepAlive: c.keepAlive})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("ollama embed returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if len(out.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(out.Embeddings))
	}
	return out.Embeddings, nil
}
