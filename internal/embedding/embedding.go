// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// ErrProvider marks a failed or malformed embedding provider response.
var ErrProvider = errors.New("embedding provider error")

// DefaultBatchSize is how many texts are sent per provider call.
const DefaultBatchSize = 128

// Embedder generates embedding vectors from texts, one vector per text in
// input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]Vector, error)
	Dims() int
	Model() string
}

// EmbedBatched embeds texts in batches of size. The first failing batch
// aborts the whole call; no partial result is returned.
func EmbedBatched(ctx context.Context, e Embedder, texts []string, size int) ([]Vector, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([]Vector, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vecs, err := e.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: batch %d-%d returned %d vectors", ErrProvider, start, end, len(vecs))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) (Vector, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", ErrProvider, len(vecs))
	}
	return vecs[0], nil
}

// CosineSimilarity computes cosine similarity between two vectors.
// Mismatched lengths and zero-norm vectors score 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}

// Config selects and configures a provider.
type Config struct {
	Provider string `yaml:"provider"` // "ollama" | "openai" | "voyage" | "" (disabled)
	Model    string `yaml:"model"`
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	Dims     int    `yaml:"dims"`
}

// NewFromConfig creates the configured embedder. An empty provider
// disables embeddings and returns nil.
func NewFromConfig(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "ollama":
		return NewOllamaEmbedder(cfg.URL, cfg.Model, cfg.Dims), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.URL, cfg.APIKey, cfg.Model, cfg.Dims), nil
	case "voyage":
		return NewVoyageEmbedder(cfg.URL, cfg.APIKey, cfg.Model, cfg.Dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
