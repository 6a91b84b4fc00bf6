// Package openai implements pkg/embeddings' Embedder client using the
// OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/foliohq/shelf/pkg/embeddings"
	"github.com/foliohq/shelf/pkg/store"
)

// DefaultEmbeddingModel is the default model used for embeddings.
const DefaultEmbeddingModel = openai.EmbeddingModelTextEmbedding3Small

// Embedder wraps the OpenAI embeddings API.
type Embedder struct {
	client     openai.Client
	model      openai.EmbeddingModel
	dimensions uint
}

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// APIKey is the OpenAI API key. Falls back to the OPENAI_API_KEY
	// environment variable when empty.
	APIKey string

	// Model is the embedding model to use.
	// Defaults to DefaultEmbeddingModel if empty.
	Model string

	// Dimensions optionally truncates returned embeddings to this many
	// dimensions (supported by the text-embedding-3 models). Zero means
	// the model's native dimension.
	Dimensions uint
}

// NewEmbedder creates a new embedder using the OpenAI embeddings API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	model := openai.EmbeddingModel(cfg.Model)
	if model == "" {
		model = DefaultEmbeddingModel
	}

	return &Embedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: e.model,
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings request: %v", store.ErrEmbedding, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", store.ErrEmbedding)
	}

	raw := resp.Data[0].Embedding
	embedding := make([]float32, len(raw))
	for i, v := range raw {
		embedding[i] = float32(v)
	}

	return embedding, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

// Ensure Embedder implements embeddings.Embedder
var _ embeddings.Embedder = (*Embedder)(nil)
