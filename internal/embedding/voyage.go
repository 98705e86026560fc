package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// VoyageEmbedder calls a Voyage-style embeddings endpoint.
type VoyageEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	dims    int
	client  *http.Client
}

type voyageRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

// NewVoyageEmbedder creates an embedder for the Voyage API.
// Default model: voyage-3 (1024 dims).
func NewVoyageEmbedder(baseURL, apiKey, model string, dims int) *VoyageEmbedder {
	if baseURL == "" {
		baseURL = "https://api.voyageai.com/v1"
	}
	if model == "" {
		model = "voyage-3"
	}
	if dims == 0 {
		dims = 1024
	}
	return &VoyageEmbedder{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *VoyageEmbedder) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	body, err := json.Marshal(voyageRequest{Input: texts, Model: e.model, InputType: "document"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: voyage request failed: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: voyage response: %v", ErrProvider, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(b, "detail").String()
		if msg == "" {
			msg = string(b)
		}
		return nil, fmt.Errorf("%w: voyage error %d: %s", ErrProvider, resp.StatusCode, msg)
	}
	if !gjson.ValidBytes(b) {
		return nil, fmt.Errorf("%w: voyage returned invalid JSON", ErrProvider)
	}

	vecs := make([]Vector, len(texts))
	for _, d := range gjson.GetBytes(b, "data").Array() {
		idx := int(d.Get("index").Int())
		if idx < 0 || idx >= len(vecs) {
			return nil, fmt.Errorf("%w: voyage embedding index %d out of range", ErrProvider, idx)
		}
		raw := d.Get("embedding").Array()
		v := make(Vector, len(raw))
		for i, f := range raw {
			v[i] = float32(f.Float())
		}
		vecs[idx] = v
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("%w: voyage returned no embedding for input %d", ErrProvider, i)
		}
	}
	return vecs, nil
}

func (e *VoyageEmbedder) Dims() int     { return e.dims }
func (e *VoyageEmbedder) Model() string { return e.model }
