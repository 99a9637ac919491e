// Package embedding is a stateless client for the remote embedding
// service. It sends batches of texts and returns one vector per text,
// in input order.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/GallTech/rag-lab/internal/domain"
	"github.com/GallTech/rag-lab/internal/retry"
)

// Client talks to an embedding endpoint accepting {"texts": [...]}.
// Services that only embed one string at a time answer with the
// single-item shape; the client replays each text as its own call so
// callers always get one vector per text regardless.
type Client struct {
	endpoint string
	client   *http.Client
	policy   retry.Policy
}

// Config configures the embedding client.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// NewClient creates an embedding client with the given retry policy.
// A nil policy classifier defaults to retrying transient errors only.
func NewClient(cfg Config, policy retry.Policy) *Client {
	t := cfg.Timeout
	if t == 0 {
		t = 600 * time.Second
	}
	if policy.Classify == nil {
		policy.Classify = domain.Transient
	}
	return &Client{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: t},
		policy:   policy,
	}
}

// EmbedBatch returns an embedding vector per input text, preserving
// order. Transient failures are retried under the client's policy;
// exhausting the ceiling surfaces as EmbeddingFailedError. Malformed
// responses are ProtocolError and are not retried.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var vectors [][]float64
	err := c.policy.Do(ctx, func() error {
		v, err := c.post(ctx, texts)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		if !domain.Transient(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &domain.EmbeddingFailedError{Attempts: c.policy.MaxAttempts, Err: err}
	}
	return vectors, nil
}

// post embeds texts in one request. A single-item service answers a
// batch request with one vector; in that case each text is replayed as
// its own sequential call so the adaptation stays invisible upstream.
func (c *Client) post(ctx context.Context, texts []string) ([][]float64, error) {
	vectors, err := c.postOnce(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 1 && len(texts) > 1 {
		return c.postEach(ctx, texts)
	}
	return vectors, nil
}

func (c *Client) postEach(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		v, err := c.postOnce(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(v) != 1 {
			return nil, &domain.ProtocolError{Detail: fmt.Sprintf("got %d vectors for a single text", len(v))}
		}
		out = append(out, v[0])
	}
	return out, nil
}

func (c *Client) postOnce(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(map[string]any{"texts": texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, &domain.StatusError{Service: "embedding service", Code: resp.StatusCode, Body: trim(payload)}
	}
	return parseResponse(payload)
}

// parseResponse tries each known response shape in order: the batch
// shapes {"vectors": [[...], ...]} and {"embeddings": [[...], ...]},
// then the single-item shape {"embedding": [...]}. Anything else is a
// ProtocolError.
func parseResponse(payload []byte) ([][]float64, error) {
	var batch struct {
		Vectors    [][]float64 `json:"vectors"`
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(payload, &batch); err == nil {
		if batch.Vectors != nil {
			return batch.Vectors, nil
		}
		if batch.Embeddings != nil {
			return batch.Embeddings, nil
		}
	}
	var single struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &single); err == nil && single.Embedding != nil {
		return [][]float64{single.Embedding}, nil
	}
	return nil, &domain.ProtocolError{Detail: fmt.Sprintf("unexpected embed response shape: %s", trim(payload))}
}

func trim(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
