// Package llm is a minimal client for an Ollama-compatible model server:
// embeddings, single-shot generation, and a readiness probe.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrGenerationFailure wraps model-server errors so callers can map them
// to a stable error code without inspecting message text.
var ErrGenerationFailure = errors.New("generation failed")

type Client struct {
	generateBase  string
	embedBase     string
	embedModel    string
	generateModel string
	httpClient    *http.Client

	embedTimeout    time.Duration
	generateTimeout time.Duration
}

type Option func(*Client)

// WithTimeouts sets independent deadlines for embedding and generation
// calls. Generation runs on CPU-bound local models and needs far more
// headroom than embedding.
func WithTimeouts(embed, generate time.Duration) Option {
	return func(c *Client) {
		c.embedTimeout = embed
		c.generateTimeout = generate
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a client for the given server URLs. embedBase may equal
// generateBase; they are split so embedding can run on a separate server.
func NewClient(generateBase, embedBase, embedModel, generateModel string, opts ...Option) *Client {
	c := &Client{
		generateBase:    strings.TrimSuffix(generateBase, "/"),
		embedBase:       strings.TrimSuffix(embedBase, "/"),
		embedModel:      embedModel,
		generateModel:   generateModel,
		httpClient:      &http.Client{},
		embedTimeout:    30 * time.Second,
		generateTimeout: 120 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the embedding vector for text. Both the singular and
// plural response keys are accepted; servers differ on which they send.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	payload := map[string]any{
		"model":  c.embedModel,
		"prompt": text,
	}
	var out struct {
		Embedding  []float32   `json:"embedding"`
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.postJSON(ctx, c.embedBase+"/api/embeddings", payload, &out); err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	embedding := out.Embedding
	if len(embedding) == 0 && len(out.Embeddings) > 0 {
		embedding = out.Embeddings[0]
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding request: empty embedding returned")
	}
	return embedding, nil
}

// Generate runs single-shot completion for prompt. Streaming is disabled;
// the whole response arrives in one body.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.generateTimeout)
	defer cancel()

	payload := map[string]any{
		"model":  c.generateModel,
		"prompt": prompt,
		"stream": false,
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, c.generateBase+"/api/generate", payload, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailure, err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailure)
	}
	return out.Response, nil
}

// Ping checks server reachability via the tags listing.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.generateBase+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server not ready (%d)", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 240 {
			msg = msg[:240]
		}
		return fmt.Errorf("model server request failed (%d): %s", resp.StatusCode, msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("model server response parse error: %w", err)
	}
	return nil
}
