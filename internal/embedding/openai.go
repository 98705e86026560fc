package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEmbedder uses any OpenAI-compatible embedding API through the
// official SDK.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
	dims   int
	sized  bool // dims was configured and is sent with each request
}

// NewOpenAIEmbedder creates an embedder using an OpenAI-compatible API.
// SDK retries are disabled so a failed batch surfaces immediately. A zero
// dims leaves the width to the model and reports 1536.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dims int) *OpenAIEmbedder {
	if model == "" {
		model = "text-embedding-3-small"
	}
	sized := dims > 0
	if !sized {
		dims = 1536
	}
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  model,
		dims:   dims,
		sized:  sized,
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.sized {
		params.Dimensions = openai.Int(int64(e.dims))
	}
	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", ErrProvider, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", ErrProvider, len(resp.Data), len(texts))
	}
	vecs := make([]Vector, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vecs) {
			return nil, fmt.Errorf("%w: openai embedding index %d out of range", ErrProvider, d.Index)
		}
		v := make(Vector, len(d.Embedding))
		for i, f := range d.Embedding {
			v[i] = float32(f)
		}
		vecs[d.Index] = v
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) Dims() int     { return e.dims }
func (e *OpenAIEmbedder) Model() string { return e.model }
