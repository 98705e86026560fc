package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
		delta    float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0, 0.001},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0, 0.001},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707, 0.01},
		{"empty", Vector{}, Vector{}, 0.0, 0.001},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"both zero", Vector{0, 0}, Vector{0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func TestCosineSimilarity_Bounds(t *testing.T) {
	vecs := []Vector{{3, -4, 0.5}, {1e-3, 2, 7}, {-9, -9, -9}, {1, 1, 1}, {0.1, 0, -0.2}}
	for _, a := range vecs {
		for _, b := range vecs {
			got := CosineSimilarity(a, b)
			if got < -1 || got > 1 || math.IsNaN(got) {
				t.Errorf("CosineSimilarity(%v, %v) = %f out of [-1, 1]", a, b, got)
			}
		}
	}
}

// fakeEmbedder returns one-hot vectors and fails on the configured call.
type fakeEmbedder struct {
	calls  int
	failOn int
	sizes  []int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([]Vector, error) {
	f.calls++
	f.sizes = append(f.sizes, len(texts))
	if f.calls == f.failOn {
		return nil, fmt.Errorf("%w: boom", ErrProvider)
	}
	out := make([]Vector, len(texts))
	for i := range texts {
		out[i] = Vector{1, 0}
	}
	return out, nil
}

func (f *fakeEmbedder) Dims() int     { return 2 }
func (f *fakeEmbedder) Model() string { return "fake" }

func TestEmbedBatched(t *testing.T) {
	texts := make([]string, 300)
	f := &fakeEmbedder{}

	vecs, err := EmbedBatched(context.Background(), f, texts, DefaultBatchSize)
	require.NoError(t, err)
	assert.Len(t, vecs, 300)
	assert.Equal(t, []int{128, 128, 44}, f.sizes)
}

func TestEmbedBatched_AbortsOnFailure(t *testing.T) {
	f := &fakeEmbedder{failOn: 2}

	vecs, err := EmbedBatched(context.Background(), f, make([]string, 300), DefaultBatchSize)
	assert.ErrorIs(t, err, ErrProvider)
	assert.Nil(t, vecs, "no partial result")
	assert.Equal(t, 2, f.calls, "later batches are not attempted")
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		resp := ollamaResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.5, 0.5})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "", 0)
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 768, e.Dims())
}

func TestOllamaEmbedder_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder(srv.URL, "missing", 0).Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "model not found")
}

func TestVoyageEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		// Out of order on purpose; index decides placement.
		w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	vecs, err := NewVoyageEmbedder(srv.URL, "k", "", 0).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []Vector{{1, 0}, {0, 1}}, vecs)
}

func TestVoyageEmbedder_MissingVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	_, err := NewVoyageEmbedder(srv.URL, "", "", 0).Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrProvider)
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, int64(2), gjson.GetBytes(body, "dimensions").Int())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":0,"embedding":[0.25,0.75]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL+"/v1/", "test-key", "", 2)
	vecs, err := e.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []Vector{{0.25, 0.75}}, vecs)
}

func TestOpenAIEmbedder_DimensionsOnlyWhenConfigured(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"text-embedding-ada-002","data":[
			{"object":"embedding","index":0,"embedding":[0.5,0.5]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(srv.URL+"/v1/", "test-key", "text-embedding-ada-002", 0)
	_, err := e.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dims())

	require.Len(t, bodies, 1)
	assert.False(t, gjson.Get(bodies[0], "dimensions").Exists(), "body: %s", bodies[0])
	assert.Equal(t, "text-embedding-ada-002", gjson.Get(bodies[0], "model").String())
}

func TestOpenAIEmbedder_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIEmbedder(srv.URL+"/v1/", "bad", "", 2).Embed(context.Background(), []string{"a"})
	assert.True(t, errors.Is(err, ErrProvider))
}

func TestNewFromConfig(t *testing.T) {
	e, err := NewFromConfig(Config{})
	require.NoError(t, err)
	assert.Nil(t, e, "empty provider disables embeddings")

	e, err = NewFromConfig(Config{Provider: "voyage"})
	require.NoError(t, err)
	assert.Equal(t, 1024, e.Dims())
	assert.Equal(t, "voyage-3", e.Model())

	_, err = NewFromConfig(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}
