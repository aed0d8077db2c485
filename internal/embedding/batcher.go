// Package embedding batches calls to the embedding provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/corpusworks/docindex/internal/domain"
)

// DefaultBatchSize bounds how many texts go to the provider per request.
const DefaultBatchSize = 20

// Client is the provider-side contract: vectors come back aligned 1:1 with
// the input texts.
type Client interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
	Dimensions() int
}

// Batcher partitions inputs into fixed-size batches and calls the provider
// sequentially, keeping memory and request rate bounded.
type Batcher struct {
	client    Client
	batchSize int
}

// NewBatcher creates a Batcher. A non-positive batch size falls back to the
// default.
func NewBatcher(client Client, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Batcher{
		client:    client,
		batchSize: batchSize,
	}
}

// BatchSize returns the configured batch size.
func (b *Batcher) BatchSize() int {
	return b.batchSize
}

// Model returns the provider's embedding model identifier.
func (b *Batcher) Model() string {
	return b.client.Model()
}

// Dimensions returns the provider's embedding dimension count.
func (b *Batcher) Dimensions() int {
	return b.client.Dimensions()
}

// EmbedAll embeds every text, returning one vector per input in input
// order. onBatch, when non-nil, is invoked after each batch with that
// batch's vectors and the number of texts embedded so far; batches run
// strictly one after another so the counter is monotonic.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string, onBatch func(batch [][]float32, done int) error) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, domain.ErrEmptyChunkSet
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := b.client.GenerateEmbeddings(ctx, texts[start:end])
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailed, "embedding provider call failed", err)
		}
		if len(batch) != end-start {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailed,
				fmt.Sprintf("provider returned %d vectors for %d texts", len(batch), end-start), nil)
		}

		vectors = append(vectors, batch...)
		if onBatch != nil {
			if err := onBatch(batch, len(vectors)); err != nil {
				return nil, err
			}
		}
	}

	return vectors, nil
}
