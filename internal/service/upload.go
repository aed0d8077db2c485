package service

import (
	"context"
	"fmt"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/corpusworks/docindex/internal/extract"
)

type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	DownloadObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	HeadObject(ctx context.Context, key string) (*ObjectMetadata, error)
}

type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}

type UploadRepositoryInterface interface {
	Create(ctx context.Context, u *domain.UploadedFile) error
	GetByID(ctx context.Context, id string) (*domain.UploadedFile, error)
	Delete(ctx context.Context, id string) error
}

// IngestPublisher hands a job to the ingestion queue.
type IngestPublisher interface {
	PublishIngest(ctx context.Context, uploadID, jobID string) error
}

// UploadService grants upload slots and dispatches uploaded files into the
// processing pipeline.
type UploadService struct {
	uploadRepo UploadRepositoryInterface
	jobRepo    JobRepositoryInterface
	storage    StorageClientInterface
	publisher  IngestPublisher
	bucket     string
	region     string
	uuidGen    UUIDGenerator
}

func NewUploadService(
	uploadRepo UploadRepositoryInterface,
	jobRepo JobRepositoryInterface,
	storage StorageClientInterface,
	publisher IngestPublisher,
	bucket, region string,
) *UploadService {
	return &UploadService{
		uploadRepo: uploadRepo,
		jobRepo:    jobRepo,
		storage:    storage,
		publisher:  publisher,
		bucket:     bucket,
		region:     region,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewUploadServiceWithUUIDGen is NewUploadService with a custom UUID
// generator (for testing).
func NewUploadServiceWithUUIDGen(
	uploadRepo UploadRepositoryInterface,
	jobRepo JobRepositoryInterface,
	storage StorageClientInterface,
	publisher IngestPublisher,
	bucket, region string,
	uuidGen UUIDGenerator,
) *UploadService {
	s := NewUploadService(uploadRepo, jobRepo, storage, publisher, bucket, region)
	s.uuidGen = uuidGen
	return s
}

type InitUploadInput struct {
	Filename    string
	Size        int64
	ContentType string
}

type InitUploadResult struct {
	UploadID   string
	JobID      string
	StorageKey string
	UploadURL  string
}

// InitUpload registers an upload slot: a presigned PUT URL, the upload
// record and a processing job in its initial state. Formats the pipeline
// cannot decode are rejected up front.
func (s *UploadService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	if input.Filename == "" {
		return nil, fmt.Errorf("%w: filename", domain.ErrMissingRequiredField)
	}
	if !extract.IsSupported(input.ContentType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, input.ContentType)
	}

	now := time.Now().UTC()
	uploadID := s.uuidGen.NewString()
	jobID := s.uuidGen.NewString()
	storageKey := buildStorageKey(uploadID, input.Filename)

	uploadURL, err := s.storage.GenerateUploadURL(ctx, storageKey, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	upload := domain.NewUploadedFile(uploadID, input.Filename, input.Size, input.ContentType, s.bucket, storageKey, s.region, now)
	if err := domain.ValidateUploadedFile(upload); err != nil {
		return nil, err
	}
	if err := s.uploadRepo.Create(ctx, upload); err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	job := domain.NewProcessingJob(jobID, uploadID, now)
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create processing job: %w", err)
	}

	return &InitUploadResult{
		UploadID:   uploadID,
		JobID:      jobID,
		StorageKey: storageKey,
		UploadURL:  uploadURL,
	}, nil
}

// TriggerIngest verifies the object landed in storage and hands the
// upload's job to the ingestion queue.
func (s *UploadService) TriggerIngest(ctx context.Context, uploadID, jobID string) error {
	upload, err := s.uploadRepo.GetByID(ctx, uploadID)
	if err != nil {
		return err
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.UploadID != upload.ID {
		return fmt.Errorf("%w: job %s does not belong to upload %s", domain.ErrJobNotFound, jobID, uploadID)
	}
	if job.IsTerminal() {
		return domain.ErrTerminalJob
	}

	if _, err := s.storage.HeadObject(ctx, upload.Key); err != nil {
		return fmt.Errorf("failed to verify uploaded file: %w", err)
	}

	if err := s.publisher.PublishIngest(ctx, uploadID, jobID); err != nil {
		return fmt.Errorf("failed to enqueue ingestion: %w", err)
	}
	return nil
}

func buildStorageKey(uploadID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s", uploadID, filename)
}
