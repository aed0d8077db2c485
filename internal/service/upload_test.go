package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corpusworks/docindex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUploadService(uploadRepo *MockUploadRepository, jobRepo *MockJobRepository, storage *MockStorageClient, publisher *MockIngestPublisher) *UploadService {
	return NewUploadServiceWithUUIDGen(uploadRepo, jobRepo, storage, publisher,
		"docindex-uploads", "us-east-1", &seqUUIDGen{prefix: "id"})
}

func TestInitUpload(t *testing.T) {
	uploadRepo := new(MockUploadRepository)
	jobRepo := new(MockJobRepository)
	storage := new(MockStorageClient)
	svc := newUploadService(uploadRepo, jobRepo, storage, new(MockIngestPublisher))

	storage.On("GenerateUploadURL", mock.Anything, "uploads/id-1/report.pdf", "application/pdf").
		Return("http://localhost:9000/presigned", nil)
	uploadRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.UploadedFile) bool {
		return u.ID == "id-1" && u.Filename == "report.pdf" && u.Key == "uploads/id-1/report.pdf" &&
			u.Bucket == "docindex-uploads" && u.Size == 2048
	})).Return(nil)
	jobRepo.On("Create", mock.Anything, mock.MatchedBy(func(j *domain.ProcessingJob) bool {
		return j.ID == "id-2" && j.UploadID == "id-1" && j.Status == domain.JobStatusUploaded
	})).Return(nil)

	result, err := svc.InitUpload(context.Background(), InitUploadInput{
		Filename:    "report.pdf",
		Size:        2048,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", result.UploadID)
	assert.Equal(t, "id-2", result.JobID)
	assert.Equal(t, "uploads/id-1/report.pdf", result.StorageKey)
	assert.Equal(t, "http://localhost:9000/presigned", result.UploadURL)
	uploadRepo.AssertExpectations(t)
	jobRepo.AssertExpectations(t)
}

func TestInitUpload_MissingFilename(t *testing.T) {
	svc := newUploadService(new(MockUploadRepository), new(MockJobRepository), new(MockStorageClient), new(MockIngestPublisher))

	_, err := svc.InitUpload(context.Background(), InitUploadInput{ContentType: "application/pdf"})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
}

func TestInitUpload_UnsupportedFormat(t *testing.T) {
	svc := newUploadService(new(MockUploadRepository), new(MockJobRepository), new(MockStorageClient), new(MockIngestPublisher))

	_, err := svc.InitUpload(context.Background(), InitUploadInput{
		Filename:    "photo.png",
		ContentType: "image/png",
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestInitUpload_PresignFailure(t *testing.T) {
	uploadRepo := new(MockUploadRepository)
	storage := new(MockStorageClient)
	svc := newUploadService(uploadRepo, new(MockJobRepository), storage, new(MockIngestPublisher))

	storage.On("GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("endpoint unreachable"))

	_, err := svc.InitUpload(context.Background(), InitUploadInput{
		Filename:    "report.pdf",
		ContentType: "application/pdf",
	})
	require.Error(t, err)
	uploadRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestTriggerIngest(t *testing.T) {
	uploadRepo := new(MockUploadRepository)
	jobRepo := new(MockJobRepository)
	storage := new(MockStorageClient)
	publisher := new(MockIngestPublisher)
	svc := newUploadService(uploadRepo, jobRepo, storage, publisher)

	upload := domain.NewUploadedFile("up-1", "report.pdf", 2048, "application/pdf",
		"docindex-uploads", "uploads/up-1/report.pdf", "us-east-1", time.Now().UTC())
	job := domain.NewProcessingJob("job-1", "up-1", time.Now().UTC())

	uploadRepo.On("GetByID", mock.Anything, "up-1").Return(upload, nil)
	jobRepo.On("GetByID", mock.Anything, "job-1").Return(job, nil)
	storage.On("HeadObject", mock.Anything, upload.Key).Return(&ObjectMetadata{ContentLength: 2048}, nil)
	publisher.On("PublishIngest", mock.Anything, "up-1", "job-1").Return(nil)

	require.NoError(t, svc.TriggerIngest(context.Background(), "up-1", "job-1"))
	publisher.AssertExpectations(t)
}

func TestTriggerIngest_JobUploadMismatch(t *testing.T) {
	uploadRepo := new(MockUploadRepository)
	jobRepo := new(MockJobRepository)
	publisher := new(MockIngestPublisher)
	svc := newUploadService(uploadRepo, jobRepo, new(MockStorageClient), publisher)

	upload := domain.NewUploadedFile("up-1", "report.pdf", 2048, "application/pdf",
		"docindex-uploads", "uploads/up-1/report.pdf", "us-east-1", time.Now().UTC())
	job := domain.NewProcessingJob("job-1", "some-other-upload", time.Now().UTC())

	uploadRepo.On("GetByID", mock.Anything, "up-1").Return(upload, nil)
	jobRepo.On("GetByID", mock.Anything, "job-1").Return(job, nil)

	err := svc.TriggerIngest(context.Background(), "up-1", "job-1")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	publisher.AssertNotCalled(t, "PublishIngest", mock.Anything, mock.Anything, mock.Anything)
}

func TestTriggerIngest_TerminalJob(t *testing.T) {
	uploadRepo := new(MockUploadRepository)
	jobRepo := new(MockJobRepository)
	svc := newUploadService(uploadRepo, jobRepo, new(MockStorageClient), new(MockIngestPublisher))

	upload := domain.NewUploadedFile("up-1", "report.pdf", 2048, "application/pdf",
		"docindex-uploads", "uploads/up-1/report.pdf", "us-east-1", time.Now().UTC())
	job := domain.NewProcessingJob("job-1", "up-1", time.Now().UTC())
	require.NoError(t, job.MarkCompleted())

	uploadRepo.On("GetByID", mock.Anything, "up-1").Return(upload, nil)
	jobRepo.On("GetByID", mock.Anything, "job-1").Return(job, nil)

	err := svc.TriggerIngest(context.Background(), "up-1", "job-1")
	assert.ErrorIs(t, err, domain.ErrTerminalJob)
}

func TestTriggerIngest_ObjectMissing(t *testing.T) {
	uploadRepo := new(MockUploadRepository)
	jobRepo := new(MockJobRepository)
	storage := new(MockStorageClient)
	publisher := new(MockIngestPublisher)
	svc := newUploadService(uploadRepo, jobRepo, storage, publisher)

	upload := domain.NewUploadedFile("up-1", "report.pdf", 2048, "application/pdf",
		"docindex-uploads", "uploads/up-1/report.pdf", "us-east-1", time.Now().UTC())
	job := domain.NewProcessingJob("job-1", "up-1", time.Now().UTC())

	uploadRepo.On("GetByID", mock.Anything, "up-1").Return(upload, nil)
	jobRepo.On("GetByID", mock.Anything, "job-1").Return(job, nil)
	storage.On("HeadObject", mock.Anything, upload.Key).Return(nil, errors.New("not found"))

	err := svc.TriggerIngest(context.Background(), "up-1", "job-1")
	require.Error(t, err)
	publisher.AssertNotCalled(t, "PublishIngest", mock.Anything, mock.Anything, mock.Anything)
}
