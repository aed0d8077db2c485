package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskType enumerates supported task categories.
type TaskType string

const (
	// TaskTypeIngest runs the document ingestion pipeline for one job.
	TaskTypeIngest TaskType = "ingest"
)

// Task represents a unit of work dispatched through the queue.
type Task struct {
	ID          uuid.UUID
	Type        TaskType
	Payload     []byte
	Attempts    int
	MaxAttempts int
	NotBefore   time.Time
}

type Handler func(context.Context, Task) error

// Queue exposes a minimal contract to enqueue and consume tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Worker(ctx context.Context, taskType TaskType, handler Handler) error
}

// IngestPayload is the trigger message for one ingestion dispatch.
type IngestPayload struct {
	UploadID string `json:"upload_id"`
	JobID    string `json:"job_id"`
}

// NewIngestTask builds an ingestion task for the given upload and job.
func NewIngestTask(uploadID, jobID string) (Task, error) {
	payload, err := json.Marshal(IngestPayload{UploadID: uploadID, JobID: jobID})
	if err != nil {
		return Task{}, err
	}
	return Task{
		ID:      uuid.New(),
		Type:    TaskTypeIngest,
		Payload: payload,
	}, nil
}

// exponentialBackoff doubles the base delay per attempt, capped at one minute.
func exponentialBackoff(attempt int, base time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt && d < time.Minute; i++ {
		d *= 2
	}
	if d > time.Minute {
		d = time.Minute
	}
	return d
}
