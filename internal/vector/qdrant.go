// Package vector is a REST client for a Qdrant-compatible vector store.
// Only the surface this service needs is covered: collection bootstrap,
// point upsert, and similarity search.
package vector

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

	"github.com/google/uuid"

	"github.com/kuberag/kuberag-agent/internal/models"
)

// ErrRetrievalFailure wraps vector-store errors so callers can map them to
// a stable error code without inspecting message text.
var ErrRetrievalFailure = errors.New("retrieval failed")

type Client struct {
	baseURL    string
	collection string
	vectorSize int
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL, collection string, vectorSize int, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		collection: collection,
		vectorSize: vectorSize,
		httpClient: &http.Client{},
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready checks store reachability via the collections listing.
func (c *Client) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/collections", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vector store not ready (%d)", resp.StatusCode)
	}
	return nil
}

// EnsureCollection creates the collection if absent (cosine distance,
// configured vector size). Returns true when it was newly created, so
// bootstrap seeding runs exactly once per store.
func (c *Client) EnsureCollection(ctx context.Context) (created bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.collectionURL(), nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: checking collection: %v", ErrRetrievalFailure, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return false, nil
	}

	payload := map[string]any{
		"vectors": map[string]any{
			"size":     c.vectorSize,
			"distance": "Cosine",
		},
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodPut, c.collectionURL(), payload, &out); err != nil {
		return false, fmt.Errorf("%w: creating collection: %v", ErrRetrievalFailure, err)
	}
	return true, nil
}

// Upsert embeds one document's vector and payload under a fresh UUID point
// ID and returns that ID. The payload carries the raw text plus flattened
// metadata so search results are self-describing.
func (c *Client) Upsert(ctx context.Context, vectorData []float32, doc models.Document) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pointID := uuid.New().String()
	payload := map[string]any{"text": doc.Text}
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	body := map[string]any{
		"points": []map[string]any{
			{
				"id":      pointID,
				"vector":  vectorData,
				"payload": payload,
			},
		},
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodPut, c.collectionURL()+"/points", body, &out); err != nil {
		return "", fmt.Errorf("%w: upserting point: %v", ErrRetrievalFailure, err)
	}
	return pointID, nil
}

// Search returns the topK nearest documents for the query vector, with
// payloads, ordered by descending score.
func (c *Client) Search(ctx context.Context, vectorData []float32, topK int) ([]models.RetrievedDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := map[string]any{
		"vector":       vectorData,
		"limit":        topK,
		"with_payload": true,
	}
	var out struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.collectionURL()+"/points/search", body, &out); err != nil {
		return nil, fmt.Errorf("%w: searching points: %v", ErrRetrievalFailure, err)
	}

	docs := make([]models.RetrievedDocument, 0, len(out.Result))
	for _, hit := range out.Result {
		doc := models.RetrievedDocument{Score: hit.Score, Metadata: map[string]string{}}
		for k, v := range hit.Payload {
			if k == "text" {
				if s, ok := v.(string); ok {
					doc.Text = s
				}
				continue
			}
			doc.Metadata[k] = fmt.Sprint(v)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *Client) collectionURL() string {
	return c.baseURL + "/collections/" + c.collection
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
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
		return fmt.Errorf("vector store request failed (%d): %s", resp.StatusCode, msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("vector store response parse error: %w", err)
	}
	return nil
}
