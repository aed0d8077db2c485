package service

import (
	"context"

	"github.com/corpusworks/docindex/internal/domain"
)

// JobStatusReadout is the API-facing view of a processing job.
type JobStatusReadout struct {
	JobID                 string  `json:"job_id"`
	DocumentID            *string `json:"document_id,omitempty"`
	Status                string  `json:"status"`
	Progress              int     `json:"progress"`
	CurrentStep           string  `json:"current_step"`
	ChunksProcessed       int     `json:"chunks_processed"`
	TotalChunks           int     `json:"total_chunks"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
	ObjectDeleted         bool    `json:"object_deleted"`
	DuplicateOf           *string `json:"duplicate_of,omitempty"`
	Error                 string  `json:"error,omitempty"`
}

// JobStatusService exposes job state to the API layer.
type JobStatusService struct {
	jobRepo JobRepositoryInterface
}

func NewJobStatusService(jobRepo JobRepositoryInterface) *JobStatusService {
	return &JobStatusService{jobRepo: jobRepo}
}

func (s *JobStatusService) GetStatus(ctx context.Context, jobID string) (*JobStatusReadout, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return readoutFromJob(job), nil
}

func readoutFromJob(j *domain.ProcessingJob) *JobStatusReadout {
	return &JobStatusReadout{
		JobID:                 j.ID,
		DocumentID:            j.DocumentID,
		Status:                string(j.Status),
		Progress:              j.Progress,
		CurrentStep:           j.CurrentStep,
		ChunksProcessed:       j.ChunksProcessed,
		TotalChunks:           j.TotalChunks,
		ProcessingTimeSeconds: j.ProcessingTimeSeconds,
		ObjectDeleted:         j.ObjectDeleted,
		DuplicateOf:           j.DuplicateOf,
		Error:                 j.ErrorMessage,
	}
}
