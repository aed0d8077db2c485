package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/corpusworks/docindex/internal/api/handlers"
	"github.com/corpusworks/docindex/internal/domain"
	"github.com/corpusworks/docindex/internal/pagination"
	"github.com/corpusworks/docindex/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InitUploadResult), args.Error(1)
}

func (m *MockUploadService) TriggerIngest(ctx context.Context, uploadID, jobID string) error {
	args := m.Called(ctx, uploadID, jobID)
	return args.Error(0)
}

type MockJobStatusService struct {
	mock.Mock
}

func (m *MockJobStatusService) GetStatus(ctx context.Context, jobID string) (*service.JobStatusReadout, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.JobStatusReadout), args.Error(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, input service.SearchInput) ([]service.SearchResultItem, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.SearchResultItem), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, input service.ListDocumentsInput) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func setupRouter() (http.Handler, *MockUploadService, *MockJobStatusService, *MockSearchService, *MockDocumentService) {
	uploadSvc := new(MockUploadService)
	jobSvc := new(MockJobStatusService)
	searchSvc := new(MockSearchService)
	documentSvc := new(MockDocumentService)

	cfg := RouterConfig{
		UploadHandler:   handlers.NewUploadHandler(uploadSvc),
		JobHandler:      handlers.NewJobHandler(jobSvc),
		SearchHandler:   handlers.NewSearchHandler(searchSvc),
		DocumentHandler: handlers.NewDocumentHandler(documentSvc),
	}

	router := NewRouter(cfg)
	return router, uploadSvc, jobSvc, searchSvc, documentSvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_InitUpload(t *testing.T) {
	router, uploadSvc, _, _, _ := setupRouter()

	uploadSvc.On("InitUpload", mock.Anything, service.InitUploadInput{
		Filename:    "report.pdf",
		Size:        2048,
		ContentType: "application/pdf",
	}).Return(&service.InitUploadResult{
		UploadID:   "up-1",
		JobID:      "job-1",
		StorageKey: "uploads/up-1/report.pdf",
		UploadURL:  "http://localhost:9000/presigned",
	}, nil)

	body := `{"filename":"report.pdf","size":2048,"content_type":"application/pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	uploadSvc.AssertExpectations(t)
}

func TestRouter_TriggerIngest(t *testing.T) {
	router, uploadSvc, _, _, _ := setupRouter()

	uploadSvc.On("TriggerIngest", mock.Anything, "up-1", "job-1").Return(nil)

	body := `{"job_id":"job-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/up-1/ingest", strings.NewReader(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	uploadSvc.AssertExpectations(t)
}

func TestRouter_JobStatus(t *testing.T) {
	router, _, jobSvc, _, _ := setupRouter()

	jobSvc.On("GetStatus", mock.Anything, "job-1").Return(&service.JobStatusReadout{
		JobID:    "job-1",
		Status:   string(domain.JobStatusCompleted),
		Progress: 100,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	jobSvc.AssertExpectations(t)
}

func TestRouter_JobStatus_NotFound(t *testing.T) {
	router, _, jobSvc, _, _ := setupRouter()

	jobSvc.On("GetStatus", mock.Anything, "missing").Return(nil, domain.ErrJobNotFound)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	jobSvc.AssertExpectations(t)
}

func TestRouter_Search(t *testing.T) {
	router, _, _, searchSvc, _ := setupRouter()

	searchSvc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.Query == "invoices" && input.Limit == 5
	})).Return([]service.SearchResultItem{
		{ChunkID: "c-1", DocumentID: "d-1", Content: "invoice totals", SimilarityScore: 0.91},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=invoices&limit=5", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	searchSvc.AssertExpectations(t)
}

func TestRouter_ListDocuments(t *testing.T) {
	router, _, _, _, documentSvc := setupRouter()

	doc := &domain.Document{
		ID:        "d-1",
		Title:     "report",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	documentSvc.On("List", mock.Anything, service.ListDocumentsInput{Limit: 20}).Return(&pagination.PageResult[*domain.Document]{
		Items:   []*domain.Document{doc},
		HasMore: false,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	documentSvc.AssertExpectations(t)
}

func TestRouter_DeleteDocument(t *testing.T) {
	router, _, _, _, documentSvc := setupRouter()

	documentSvc.On("Delete", mock.Anything, "d-1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/documents/d-1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	documentSvc.AssertExpectations(t)
}
