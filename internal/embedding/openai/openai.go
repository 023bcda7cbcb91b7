// Package openai embeds text through an OpenAI-compatible embeddings
// endpoint.
package openai

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "text-embedding-3-small"

// modelDimensions maps known embedding models to their vector length. The
// dimension fixes the index dimension for the lifetime of the store, so an
// unknown model is a configuration error rather than a guess.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the remote embedder.
type Config struct {
	Model     string
	BaseURL   string
	APIKeyEnv string
}

// Embedder calls the embeddings API once per batch.
type Embedder struct {
	client *openai.Client
	model  string
	dim    int
}

// New creates the embedder. The API key is read from the configured
// environment variable (default OPENAI_API_KEY).
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("openai: missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	dim, ok := modelDimensions[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("openai: unknown embedding model %q", cfg.Model)
	}
	cc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	return &Embedder{client: openai.NewClientWithConfig(cc), model: cfg.Model, dim: dim}, nil
}

// EmbedBatch embeds all texts in one request, returning vectors in input
// order. A vector of unexpected dimension fails the whole call; it is never
// truncated or padded.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embeddings request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dim {
			return nil, fmt.Errorf("openai: model %s returned a %d-dimensional vector, expected %d",
				e.model, len(d.Embedding), e.dim)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimension returns the model's fixed vector length.
func (e *Embedder) Dimension() int { return e.dim }

// ModelID identifies the remote model.
func (e *Embedder) ModelID() string { return "openai-" + e.model }
