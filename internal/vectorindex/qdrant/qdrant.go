// Package qdrant is a minimal REST client for a Qdrant collection.
// Collections use cosine distance and every point write waits for
// durability before returning.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/GallTech/rag-lab/internal/domain"
	"github.com/GallTech/rag-lab/internal/retry"
)

// Client manages a single named collection over Qdrant's HTTP API.
type Client struct {
	url        string
	apiKey     string
	collection string
	recreate   bool
	client     *http.Client
	policy     retry.Policy
}

// Config configures the Qdrant client.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	// RecreateOnMismatch drops and recreates the collection when its
	// vector size differs from the embedder's. Data-destructive.
	RecreateOnMismatch bool
}

// NewClient creates a Qdrant REST client with the given retry policy.
func NewClient(cfg Config, policy retry.Policy) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	if policy.Classify == nil {
		policy.Classify = domain.Transient
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		recreate:   cfg.RecreateOnMismatch,
		client:     &http.Client{Timeout: timeout},
		policy:     policy,
	}
}

// Collection returns the collection name the client operates on.
func (c *Client) Collection() string { return c.collection }

// collectionInfo mirrors the part of the GET response we care about.
// The vectors param is either a single config {size, distance} or a
// map of named vector configs.
type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors json.RawMessage `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

// EnsureCollection guarantees the collection exists with the given
// vector size. A size conflict returns DimensionMismatchError unless
// recreation was opted into, in which case the collection is dropped
// and recreated empty.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	base := fmt.Sprintf("%s/collections/%s", c.url, c.collection)

	return c.policy.Do(ctx, func() error {
		status, payload, err := c.do(ctx, http.MethodGet, base, nil)
		if err != nil {
			return err
		}
		switch {
		case status == http.StatusNotFound:
			return c.createCollection(ctx, base, dimension)
		case status >= 300:
			return &domain.StatusError{Service: "qdrant", Code: status, Body: trim(payload)}
		}

		var info collectionInfo
		if err := json.Unmarshal(payload, &info); err != nil {
			return &domain.ProtocolError{Detail: "unreadable collection info: " + trim(payload)}
		}
		current, ok := vectorSize(info.Result.Config.Params.Vectors)
		if !ok || current == dimension {
			return nil
		}
		if !c.recreate {
			return &domain.DimensionMismatchError{Collection: c.collection, Have: current, Want: dimension}
		}
		if status, payload, err := c.do(ctx, http.MethodDelete, base, nil); err != nil {
			return err
		} else if status >= 300 {
			return &domain.StatusError{Service: "qdrant", Code: status, Body: trim(payload)}
		}
		return c.createCollection(ctx, base, dimension)
	})
}

func (c *Client) createCollection(ctx context.Context, base string, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	status, payload, err := c.do(ctx, http.MethodPut, base, body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return &domain.StatusError{Service: "qdrant", Code: status, Body: trim(payload)}
	}
	return nil
}

// vectorSize extracts the size from either vectors-param variant.
func vectorSize(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var single struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.Size > 0 {
		return single.Size, true
	}
	var named map[string]struct {
		Size int `json:"size"`
	}
	if err := json.Unmarshal(raw, &named); err == nil {
		for _, v := range named {
			if v.Size > 0 {
				return v.Size, true
			}
		}
	}
	return 0, false
}

// Upsert writes points with wait=true so the write is flushed before
// the caller may mark chunks embedded. Idempotent by point ID. A 404
// here means the collection vanished after EnsureCollection, which is
// external interference and is not retried.
func (c *Client) Upsert(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.url, c.collection)
	body := map[string]any{"points": points}
	return c.policy.Do(ctx, func() error {
		status, payload, err := c.do(ctx, http.MethodPut, url, body)
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return &domain.ConsistencyViolationError{Collection: c.collection, Detail: "collection disappeared during upsert"}
		}
		if status >= 300 {
			return &domain.StatusError{Service: "qdrant", Code: status, Body: trim(payload)}
		}
		return nil
	})
}

// DeleteByWorkID removes every point whose payload work_id matches.
// Used by recovery tooling to clear partially embedded works.
func (c *Client) DeleteByWorkID(ctx context.Context, workID string) error {
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.url, c.collection)
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "work_id", "match": map[string]any{"value": workID}},
			},
		},
	}
	return c.policy.Do(ctx, func() error {
		status, payload, err := c.do(ctx, http.MethodPost, url, body)
		if err != nil {
			return err
		}
		if status >= 300 {
			return &domain.StatusError{Service: "qdrant", Code: status, Body: trim(payload)}
		}
		return nil
	})
}

// DeleteCollection drops the whole collection. Recovery tooling only.
func (c *Client) DeleteCollection(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.url, c.collection)
	return c.policy.Do(ctx, func() error {
		status, payload, err := c.do(ctx, http.MethodDelete, url, nil)
		if err != nil {
			return err
		}
		if status >= 300 && status != http.StatusNotFound {
			return &domain.StatusError{Service: "qdrant", Code: status, Body: trim(payload)}
		}
		return nil
	})
}

// CountPoints returns the exact number of points in the collection.
func (c *Client) CountPoints(ctx context.Context) (int64, error) {
	url := fmt.Sprintf("%s/collections/%s/points/count", c.url, c.collection)
	var count int64
	err := c.policy.Do(ctx, func() error {
		status, payload, err := c.do(ctx, http.MethodPost, url, map[string]any{"exact": true})
		if err != nil {
			return err
		}
		if status >= 300 {
			return &domain.StatusError{Service: "qdrant", Code: status, Body: trim(payload)}
		}
		var out struct {
			Result struct {
				Count int64 `json:"count"`
			} `json:"result"`
		}
		if err := json.Unmarshal(payload, &out); err != nil {
			return &domain.ProtocolError{Detail: "unreadable count response: " + trim(payload)}
		}
		count = out.Result.Count
		return nil
	})
	return count, err
}

func (c *Client) do(ctx context.Context, method, url string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, payload, nil
}

func trim(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
