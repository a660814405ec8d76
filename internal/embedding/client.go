package embedding

import (
	"context"
	"fmt"

	"docchat/internal/domain"
)

// DefaultBatchSize bounds how many texts are sent per provider request.
const DefaultBatchSize = 32

// Client batches texts across EmbeddingProvider calls. A call either
// returns one vector per input text, in input order and with a uniform
// dimension, or fails as a whole.
type Client struct {
	provider  domain.EmbeddingProvider
	batchSize int
}

// NewClient creates a batching client around the provider. A non-positive
// batch size falls back to DefaultBatchSize.
func NewClient(provider domain.EmbeddingProvider, batchSize int) *Client {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Client{provider: provider, batchSize: batchSize}
}

// Embed returns one embedding vector per input text. Results from earlier
// batches are discarded if any later batch fails.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float64, 0, len(texts))
	dimension := 0
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		out, err := c.provider.Embed(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %v", domain.ErrEmbeddingProvider, start, end, err)
		}
		if len(out) != len(batch) {
			return nil, fmt.Errorf("%w: batch %d-%d: got %d vectors for %d texts",
				domain.ErrEmbeddingProvider, start, end, len(out), len(batch))
		}
		for i, v := range out {
			if len(v) == 0 {
				return nil, fmt.Errorf("%w: empty vector for text %d", domain.ErrEmbeddingProvider, start+i)
			}
			if dimension == 0 {
				dimension = len(v)
			} else if len(v) != dimension {
				return nil, fmt.Errorf("%w: dimension mismatch: got %d, want %d",
					domain.ErrEmbeddingProvider, len(v), dimension)
			}
		}
		vectors = append(vectors, out...)
	}
	return vectors, nil
}
