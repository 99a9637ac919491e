package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GallTech/rag-lab/internal/domain"
	"github.com/GallTech/rag-lab/internal/retry"
)

func fastPolicy() retry.Policy {
	p := retry.Default()
	p.BaseDelay = time.Millisecond
	p.MaxDelay = 2 * time.Millisecond
	return p
}

func newTestClient(url string) *Client {
	return NewClient(Config{Endpoint: url, Timeout: 5 * time.Second}, fastPolicy())
}

func TestEmbedBatch_BatchShape(t *testing.T) {
	var gotTexts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotTexts = req.Texts
		json.NewEncoder(w).Encode(map[string]any{
			"vectors": [][]float64{{1, 2}, {3, 4}, {5, 6}},
		})
	}))
	defer srv.Close()

	vectors, err := newTestClient(srv.URL).EmbedBatch(context.Background(), []string{"a", "b", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", ""}, gotTexts, "empty strings must be sent, not dropped")
	require.Len(t, vectors, 3)
	assert.Equal(t, []float64{1, 2}, vectors[0])
	assert.Equal(t, []float64{5, 6}, vectors[2])
}

func TestEmbedBatch_SingleItemShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.5, 0.25}})
	}))
	defer srv.Close()

	vectors, err := newTestClient(srv.URL).EmbedBatch(context.Background(), []string{"probe"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, []float64{0.5, 0.25}, vectors[0])
}

func TestEmbedBatch_SingleItemServiceReplayedPerText(t *testing.T) {
	// The server ignores batching and always embeds the first text
	// alone, answering in the single-item shape. The client must fall
	// back to one call per text and still return one vector per input,
	// in input order.
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Texts)
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{float64(len(req.Texts[0]))},
		})
	}))
	defer srv.Close()

	vectors, err := newTestClient(srv.URL).EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float64{1}, vectors[0])
	assert.Equal(t, []float64{2}, vectors[1])
	assert.Equal(t, []float64{3}, vectors[2])
	assert.Equal(t, 4, calls, "one batch attempt plus one call per text")
}

func TestEmbedBatch_MalformedShapeIsProtocolErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"result": "nope"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EmbedBatch(context.Background(), []string{"a"})
	var proto *domain.ProtocolError
	require.ErrorAs(t, err, &proto)
	assert.Equal(t, 1, calls)
}

func TestEmbedBatch_ServerErrorRetriedThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"vectors": [][]float64{{1}}})
	}))
	defer srv.Close()

	vectors, err := newTestClient(srv.URL).EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, vectors, 1)
}

func TestEmbedBatch_CeilingExhaustionSurfacesEmbeddingFailed(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).EmbedBatch(context.Background(), []string{"a"})
	var failed *domain.EmbeddingFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, failed.Attempts)
	var status *domain.StatusError
	assert.ErrorAs(t, err, &status)
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	vectors, err := newTestClient("http://unused.invalid").EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestParseResponse_DecisionTable(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    [][]float64
		wantErr bool
	}{
		{"batch", `{"vectors": [[1,2],[3,4]]}`, [][]float64{{1, 2}, {3, 4}}, false},
		{"batch alias", `{"embeddings": [[1,2],[3,4]]}`, [][]float64{{1, 2}, {3, 4}}, false},
		{"single", `{"embedding": [1,2,3]}`, [][]float64{{1, 2, 3}}, false},
		{"empty batch", `{"vectors": []}`, [][]float64{}, false},
		{"unknown keys", `{"data": [[1]]}`, nil, true},
		{"not json", `<html>`, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseResponse([]byte(tc.payload))
			if tc.wantErr {
				var proto *domain.ProtocolError
				require.ErrorAs(t, err, &proto)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
