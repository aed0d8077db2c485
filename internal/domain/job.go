package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the status of a processing job
type JobStatus string

const (
	JobStatusUploaded           JobStatus = "UPLOADED"
	JobStatusExtracting         JobStatus = "EXTRACTING"
	JobStatusCheckingDuplicates JobStatus = "CHECKING_DUPLICATES"
	JobStatusChunking           JobStatus = "CHUNKING"
	JobStatusEmbedding          JobStatus = "EMBEDDING"
	JobStatusCompleted          JobStatus = "COMPLETED"
	JobStatusDuplicate          JobStatus = "DUPLICATE"
	JobStatusFailed             JobStatus = "FAILED"
)

// ProcessingJob tracks one ingestion attempt for one uploaded file.
// Transitions are strictly forward along the happy path; FAILED is reachable
// from any non-terminal state and DUPLICATE only from CHECKING_DUPLICATES.
// Once terminal, a job never changes status again.
type ProcessingJob struct {
	ID                    string
	UploadID              string
	DocumentID            *string
	Status                JobStatus
	CurrentStep           string
	Progress              int
	ChunksProcessed       int
	TotalChunks           int
	ProcessingTimeSeconds float64
	ObjectDeleted         bool
	DuplicateOf           *string
	Fingerprint           *ContentFingerprint
	ErrorMessage          string
	CreatedAt             time.Time
	StartedAt             *time.Time
	CompletedAt           *time.Time
}

// NewProcessingJob creates a job in the initial UPLOADED state.
func NewProcessingJob(id, uploadID string, createdAt time.Time) *ProcessingJob {
	return &ProcessingJob{
		ID:          id,
		UploadID:    uploadID,
		Status:      JobStatusUploaded,
		CurrentStep: "queued",
		Progress:    0,
		CreatedAt:   createdAt,
	}
}

// happyPathRank orders the forward pipeline states. Terminal states are not ranked.
var happyPathRank = map[JobStatus]int{
	JobStatusUploaded:           0,
	JobStatusExtracting:         1,
	JobStatusCheckingDuplicates: 2,
	JobStatusChunking:           3,
	JobStatusEmbedding:          4,
}

// StageReached reports whether the job already advanced to or past the given
// pipeline status. A re-dispatched job uses this to skip transitions its
// interrupted run recorded. Terminal jobs report true for every stage.
func (j *ProcessingJob) StageReached(status JobStatus) bool {
	if j.IsTerminal() {
		return true
	}
	from, okFrom := happyPathRank[j.Status]
	to, okTo := happyPathRank[status]
	return okFrom && okTo && from >= to
}

// IsTerminal reports whether the job has reached a final state.
func (j *ProcessingJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusDuplicate, JobStatusFailed:
		return true
	}
	return false
}

// Advance moves the job forward to the next pipeline stage.
func (j *ProcessingJob) Advance(status JobStatus, step string, progress int) error {
	if j.IsTerminal() {
		return ErrTerminalJob
	}
	from, okFrom := happyPathRank[j.Status]
	to, okTo := happyPathRank[status]
	if !okFrom || !okTo || to <= from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, status)
	}
	if progress < j.Progress {
		return ErrProgressRegression
	}

	if j.StartedAt == nil {
		now := time.Now().UTC()
		j.StartedAt = &now
	}
	j.Status = status
	j.CurrentStep = step
	j.Progress = progress
	return nil
}

// SetProgress updates progress within the current stage.
func (j *ProcessingJob) SetProgress(progress int) error {
	if j.IsTerminal() {
		return ErrTerminalJob
	}
	if progress < j.Progress {
		return ErrProgressRegression
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	return nil
}

// MarkDuplicate ends the job as a duplicate of an existing document.
// Only legal while the duplicate check is in flight.
func (j *ProcessingJob) MarkDuplicate(documentID string) error {
	if j.Status != JobStatusCheckingDuplicates {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusDuplicate)
	}
	j.Status = JobStatusDuplicate
	j.CurrentStep = "duplicate detected"
	j.Progress = 100
	j.DuplicateOf = &documentID
	j.finish()
	return nil
}

// MarkCompleted ends the job successfully.
func (j *ProcessingJob) MarkCompleted() error {
	if j.IsTerminal() {
		return ErrTerminalJob
	}
	j.Status = JobStatusCompleted
	j.CurrentStep = "completed"
	j.Progress = 100
	j.finish()
	return nil
}

// FailWithError ends the job in the FAILED state, recording the cause.
// Reachable from any non-terminal state.
func (j *ProcessingJob) FailWithError(message string) error {
	if j.IsTerminal() {
		return ErrTerminalJob
	}
	j.Status = JobStatusFailed
	j.CurrentStep = "failed"
	j.ErrorMessage = message
	j.finish()
	return nil
}

// MarkObjectDeleted records that the transient uploaded object was removed
// from storage. Legal at most once, and only after a terminal status.
func (j *ProcessingJob) MarkObjectDeleted() error {
	if !j.IsTerminal() {
		return ErrObjectNotDeletable
	}
	if j.ObjectDeleted {
		return ErrObjectAlreadyFreed
	}
	j.ObjectDeleted = true
	return nil
}

// SetChunkCounts records embedding progress counters. Unlike percent
// progress, counters may restart from zero: a resumed job re-embeds every
// chunk and the upserting index makes that safe.
func (j *ProcessingJob) SetChunkCounts(processed, total int) error {
	if processed > total {
		return fmt.Errorf("%w: chunks processed %d exceeds total %d", ErrInvalidTransition, processed, total)
	}
	if processed < 0 {
		return fmt.Errorf("%w: chunks processed cannot be negative", ErrInvalidTransition)
	}
	j.ChunksProcessed = processed
	j.TotalChunks = total
	return nil
}

func (j *ProcessingJob) finish() {
	now := time.Now().UTC()
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.ProcessingTimeSeconds = now.Sub(*j.StartedAt).Seconds()
	}
}

// ValidateProcessingJob validates a ProcessingJob instance
func ValidateProcessingJob(j *ProcessingJob) error {
	if j == nil {
		return fmt.Errorf("processing job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("processing job ID is required")
	}

	if j.UploadID == "" {
		return fmt.Errorf("processing job UploadID is required")
	}

	if !isValidJobStatus(j.Status) {
		return fmt.Errorf("processing job Status is invalid: %s", j.Status)
	}

	if j.Progress < 0 || j.Progress > 100 {
		return fmt.Errorf("processing job Progress must be within 0-100: %d", j.Progress)
	}

	if j.ChunksProcessed > j.TotalChunks {
		return fmt.Errorf("processing job ChunksProcessed cannot exceed TotalChunks")
	}

	if j.ObjectDeleted && !j.IsTerminal() {
		return fmt.Errorf("processing job ObjectDeleted requires a terminal status")
	}

	return nil
}

// isValidJobStatus checks if a JobStatus is valid
func isValidJobStatus(s JobStatus) bool {
	switch s {
	case JobStatusUploaded, JobStatusExtracting, JobStatusCheckingDuplicates,
		JobStatusChunking, JobStatusEmbedding, JobStatusCompleted,
		JobStatusDuplicate, JobStatusFailed:
		return true
	}
	return false
}
