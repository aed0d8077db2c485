package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/corpusworks/docindex/internal/cache"
	"github.com/corpusworks/docindex/internal/domain"
	"github.com/corpusworks/docindex/internal/telemetry"
)

// EmbeddingClient defines the interface for generating a single embedding
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// How long a query embedding stays cached. Embeddings for a fixed model are
// deterministic, so the TTL only bounds cache growth.
const queryEmbeddingTTL = 24 * time.Hour

// SearchService embeds search queries and runs similarity search over the
// chunk index.
type SearchService struct {
	client  EmbeddingClient
	vectors VectorIndexInterface
	cache   cache.Cache
}

func NewSearchService(client EmbeddingClient, vectors VectorIndexInterface, c cache.Cache) *SearchService {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &SearchService{
		client:  client,
		vectors: vectors,
		cache:   c,
	}
}

type SearchInput struct {
	Query     string
	Limit     int
	Threshold float64
	Metadata  map[string]string
}

// SearchResultItem is one query-time result row, joined to chunk content
// and document metadata.
type SearchResultItem struct {
	ChunkID             string            `json:"chunk_id"`
	DocumentID          string            `json:"document_id"`
	Content             string            `json:"content"`
	SimilarityScore     float64           `json:"similarity_score"`
	ChunkIndex          int               `json:"chunk_index"`
	SourceDocumentTitle string            `json:"source_document_title"`
	Metadata            map[string]string `json:"metadata"`
}

// Search embeds the query text and returns the most similar chunks, best
// first. Query embeddings are cached; cache failures degrade to a miss.
func (s *SearchService) Search(ctx context.Context, input SearchInput) ([]SearchResultItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if input.Query == "" {
		return nil, fmt.Errorf("%w: query", domain.ErrMissingRequiredField)
	}

	vector, err := s.queryEmbedding(ctx, input.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.vectors.Search(ctx, vector, input.Limit, input.Threshold, input.Metadata)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, SearchResultItem{
			ChunkID:             r.Chunk.ID,
			DocumentID:          r.Chunk.DocumentID,
			Content:             r.Chunk.OriginalContent,
			SimilarityScore:     r.Similarity,
			ChunkIndex:          r.Chunk.ChunkIndex,
			SourceDocumentTitle: r.DocumentTitle,
			Metadata:            r.Metadata,
		})
	}
	return items, nil
}

func (s *SearchService) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := embeddingCacheKey(s.client.Model(), query)

	if vector, err := s.cache.GetEmbedding(ctx, key); err != nil {
		log.Printf("embedding cache read failed, treating as miss: %v", err)
	} else if vector != nil {
		return vector, nil
	}

	vector, err := s.client.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEmbedding(ctx, key, vector, queryEmbeddingTTL); err != nil {
		log.Printf("embedding cache write failed: %v", err)
	}
	return vector, nil
}

func embeddingCacheKey(model, query string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + query))
	return hex.EncodeToString(sum[:])
}
