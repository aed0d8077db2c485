package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
)

// StalledJobRepository lists jobs whose trigger message was apparently lost
// or whose processing run was interrupted before reaching a terminal state.
type StalledJobRepository interface {
	ListStalled(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ProcessingJob, error)
}

// IngestDispatcher re-enqueues a job for processing.
type IngestDispatcher interface {
	PublishIngest(ctx context.Context, uploadID, jobID string) error
}

// StalledJobSweeper re-dispatches jobs stuck in a non-terminal state longer
// than maxAge. The consumer skips jobs it already has in flight and resumes
// interrupted ones, so sweeping a job whose message is merely slow, or whose
// run is still active elsewhere, causes no harm.
type StalledJobSweeper struct {
	repo      StalledJobRepository
	publisher IngestDispatcher
	maxAge    time.Duration
	batchSize int
}

// NewStalledJobSweeper creates a new StalledJobSweeper instance
func NewStalledJobSweeper(repo StalledJobRepository, publisher IngestDispatcher, maxAge time.Duration, batchSize int) *StalledJobSweeper {
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &StalledJobSweeper{
		repo:      repo,
		publisher: publisher,
		maxAge:    maxAge,
		batchSize: batchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (s *StalledJobSweeper) ProcessJobs(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	stalled, err := s.repo.ListStalled(ctx, cutoff, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list stalled jobs: %w", err)
	}

	if len(stalled) == 0 {
		return nil
	}

	log.Printf("Re-dispatching %d stalled jobs", len(stalled))
	for _, job := range stalled {
		if err := s.publisher.PublishIngest(ctx, job.UploadID, job.ID); err != nil {
			log.Printf("Error re-dispatching job %s: %v", job.ID, err)
		}
	}
	return nil
}
