package domain

import (
	"fmt"
	"time"
)

// Chunk represents a bounded slice of a document's text, the unit of
// embedding and retrieval. Content carries the contextual prefix that gets
// embedded; OriginalContent is the raw segment kept for display and citation.
type Chunk struct {
	ID              string
	DocumentID      string
	ChunkIndex      int
	Content         string
	OriginalContent string
	StartChar       int
	EndChar         int
	CreatedAt       time.Time
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex cannot be negative")
	}

	if c.StartChar > c.EndChar {
		return fmt.Errorf("chunk StartChar %d exceeds EndChar %d", c.StartChar, c.EndChar)
	}

	if c.Content == "" {
		return fmt.Errorf("chunk Content is required")
	}

	return nil
}
