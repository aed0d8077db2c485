package cache

import (
	"context"
	"time"
)

// Cache stores query embeddings so repeated searches skip the embedding
// provider round trip.
type Cache interface {
	// GetEmbedding retrieves a cached query embedding by key.
	// Returns nil on a cache miss.
	GetEmbedding(ctx context.Context, key string) ([]float32, error)

	// SetEmbedding stores a query embedding with TTL.
	SetEmbedding(ctx context.Context, key string, vector []float32, ttl time.Duration) error

	// Close closes the cache connection
	Close() error
}

// NoOpCache is a cache implementation that does nothing.
// Used as a fallback when Redis is unavailable - all operations succeed
// but no actual caching occurs (always cache miss).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache instance
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// GetEmbedding always returns nil (cache miss)
func (c *NoOpCache) GetEmbedding(ctx context.Context, key string) ([]float32, error) {
	return nil, nil
}

// SetEmbedding does nothing and always succeeds
func (c *NoOpCache) SetEmbedding(ctx context.Context, key string, vector []float32, ttl time.Duration) error {
	return nil
}

// Close does nothing and always succeeds
func (c *NoOpCache) Close() error {
	return nil
}
