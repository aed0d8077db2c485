package domain

import (
	"fmt"
	"time"
)

// Document represents an ingested document in the corpus. At most one
// Document exists per content fingerprint; duplicate uploads link to the
// original instead of creating a second row.
type Document struct {
	ID          string
	Title       string
	Content     string
	SourcePath  string
	Fingerprint ContentFingerprint
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDocument creates a new Document instance
func NewDocument(id, title, content, sourcePath string, fingerprint ContentFingerprint, metadata map[string]string, createdAt time.Time) *Document {
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &Document{
		ID:          id,
		Title:       title,
		Content:     content,
		SourcePath:  sourcePath,
		Fingerprint: fingerprint,
		Metadata:    metadata,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}

	if d.Content == "" {
		return fmt.Errorf("document Content is required")
	}

	if d.Fingerprint.Value == "" {
		return fmt.Errorf("document Fingerprint is required")
	}

	return nil
}
