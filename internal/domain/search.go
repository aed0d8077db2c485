package domain

// SearchResult is one hit from a similarity query: a chunk, its cosine
// similarity to the query (higher = more similar, in [-1, 1]) and the
// corresponding distance (1 - similarity). Produced per query, never
// persisted.
type SearchResult struct {
	Chunk         Chunk
	Similarity    float64
	Distance      float64
	DocumentTitle string
	Metadata      map[string]string
}
