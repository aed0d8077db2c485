package domain

import (
	"fmt"
	"time"
)

// UploadedFile describes a transient object living in the object store
// between the moment an upload slot is granted and the terminal outcome of
// the ingestion pipeline. Read-only once bytes exist in storage; the
// processor deletes it exactly once after the job goes terminal.
type UploadedFile struct {
	ID          string
	Filename    string
	Size        int64
	ContentType string
	Bucket      string
	Key         string
	Region      string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
}

// NewUploadedFile creates a new UploadedFile instance
func NewUploadedFile(id, filename string, size int64, contentType, bucket, key, region string, createdAt time.Time) *UploadedFile {
	return &UploadedFile{
		ID:          id,
		Filename:    filename,
		Size:        size,
		ContentType: contentType,
		Bucket:      bucket,
		Key:         key,
		Region:      region,
		CreatedAt:   createdAt,
	}
}

// ValidateUploadedFile validates an UploadedFile instance
func ValidateUploadedFile(u *UploadedFile) error {
	if u == nil {
		return fmt.Errorf("uploaded file cannot be nil")
	}

	if u.ID == "" {
		return fmt.Errorf("uploaded file ID is required")
	}

	if u.Filename == "" {
		return fmt.Errorf("uploaded file Filename is required")
	}

	if u.Key == "" {
		return fmt.Errorf("uploaded file Key is required")
	}

	if u.Size < 0 {
		return fmt.Errorf("uploaded file Size cannot be negative")
	}

	return nil
}
