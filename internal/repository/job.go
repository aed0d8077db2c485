package repository

import (
	"context"
	"errors"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository persists ProcessingJob records. The state machine lives in
// the domain type; this repository only writes the current snapshot.
type JobRepository struct {
	db dbtx
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: pool}
}

func NewJobRepositoryWithTx(tx pgx.Tx) *JobRepository {
	return &JobRepository{db: tx}
}

func (r *JobRepository) Create(ctx context.Context, j *domain.ProcessingJob) error {
	if err := domain.ValidateProcessingJob(j); err != nil {
		return err
	}
	var fpAlgorithm, fpValue *string
	if j.Fingerprint != nil {
		fpAlgorithm = &j.Fingerprint.Algorithm
		fpValue = &j.Fingerprint.Value
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO processing_jobs
			(id, upload_id, document_id, status, current_step, progress, chunks_processed, total_chunks,
			 processing_time_seconds, object_deleted, duplicate_of, fingerprint_algorithm, fingerprint_value,
			 error_message, created_at, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		j.ID, j.UploadID, j.DocumentID, j.Status, j.CurrentStep, j.Progress, j.ChunksProcessed, j.TotalChunks,
		j.ProcessingTimeSeconds, j.ObjectDeleted, j.DuplicateOf, fpAlgorithm, fpValue,
		nullableString(j.ErrorMessage), j.CreatedAt, j.StartedAt, j.CompletedAt,
	)
	return err
}

// Update persists the full mutable state of a job. Called after every state
// transition so progress is durably recorded before the next stage begins.
func (r *JobRepository) Update(ctx context.Context, j *domain.ProcessingJob) error {
	var fpAlgorithm, fpValue *string
	if j.Fingerprint != nil {
		fpAlgorithm = &j.Fingerprint.Algorithm
		fpValue = &j.Fingerprint.Value
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE processing_jobs
		 SET document_id = $1, status = $2, current_step = $3, progress = $4, chunks_processed = $5,
		     total_chunks = $6, processing_time_seconds = $7, object_deleted = $8, duplicate_of = $9,
		     fingerprint_algorithm = $10, fingerprint_value = $11, error_message = $12,
		     started_at = $13, completed_at = $14
		 WHERE id = $15`,
		j.DocumentID, j.Status, j.CurrentStep, j.Progress, j.ChunksProcessed,
		j.TotalChunks, j.ProcessingTimeSeconds, j.ObjectDeleted, j.DuplicateOf,
		fpAlgorithm, fpValue, nullableString(j.ErrorMessage),
		j.StartedAt, j.CompletedAt, j.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, upload_id, document_id, status, current_step, progress, chunks_processed, total_chunks,
		        processing_time_seconds, object_deleted, duplicate_of, fingerprint_algorithm, fingerprint_value,
		        error_message, created_at, started_at, completed_at
		 FROM processing_jobs WHERE id = $1`,
		id,
	)
	return scanJob(row)
}

// ListStalled returns non-terminal jobs created before the cutoff, oldest
// first. Used to re-dispatch jobs whose trigger message was lost or whose
// host was interrupted mid-pipeline; the processor resumes the latter.
func (r *JobRepository) ListStalled(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ProcessingJob, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, upload_id, document_id, status, current_step, progress, chunks_processed, total_chunks,
		        processing_time_seconds, object_deleted, duplicate_of, fingerprint_algorithm, fingerprint_value,
		        error_message, created_at, started_at, completed_at
		 FROM processing_jobs
		 WHERE status NOT IN ($1, $2, $3) AND created_at < $4
		 ORDER BY created_at ASC
		 LIMIT $5`,
		domain.JobStatusCompleted, domain.JobStatusDuplicate, domain.JobStatusFailed, cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.ProcessingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.ProcessingJob, error) {
	var j domain.ProcessingJob
	var fpAlgorithm, fpValue, errMsg pgtype.Text
	err := row.Scan(
		&j.ID, &j.UploadID, &j.DocumentID, &j.Status, &j.CurrentStep, &j.Progress, &j.ChunksProcessed,
		&j.TotalChunks, &j.ProcessingTimeSeconds, &j.ObjectDeleted, &j.DuplicateOf,
		&fpAlgorithm, &fpValue, &errMsg, &j.CreatedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	if fpAlgorithm.Valid && fpValue.Valid {
		j.Fingerprint = &domain.ContentFingerprint{
			Algorithm: fpAlgorithm.String,
			Value:     fpValue.String,
		}
	}
	if errMsg.Valid {
		j.ErrorMessage = errMsg.String
	}
	return &j, nil
}
