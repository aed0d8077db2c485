package domain

import "fmt"

// Embedding is a fixed-dimension vector produced by the embedding provider,
// associated 1:1 with a chunk.
type Embedding struct {
	Vector     []float32
	Model      string
	Dimensions int
}

// NewEmbedding creates an Embedding, validating the vector length against
// the declared dimension count.
func NewEmbedding(vector []float32, model string, dimensions int) (*Embedding, error) {
	if len(vector) != dimensions {
		return nil, fmt.Errorf("%w: got %d values, declared %d", ErrInvalidEmbedding, len(vector), dimensions)
	}
	if model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	return &Embedding{
		Vector:     vector,
		Model:      model,
		Dimensions: dimensions,
	}, nil
}
