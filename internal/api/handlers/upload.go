package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corpusworks/docindex/internal/api"
	"github.com/corpusworks/docindex/internal/service"
	"github.com/go-chi/chi/v5"
)

type UploadService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	TriggerIngest(ctx context.Context, uploadID, jobID string) error
}

type UploadHandler struct {
	svc UploadService
}

func NewUploadHandler(svc UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

type InitUploadRequest struct {
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type InitUploadResponse struct {
	UploadID   string `json:"upload_id"`
	JobID      string `json:"job_id"`
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

func (h *UploadHandler) Init(w http.ResponseWriter, r *http.Request) {
	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.ContentType == "" {
		api.Error(w, http.StatusBadRequest, "content_type is required")
		return
	}
	if req.Size < 0 {
		api.Error(w, http.StatusBadRequest, "size cannot be negative")
		return
	}

	result, err := h.svc.InitUpload(r.Context(), service.InitUploadInput{
		Filename:    req.Filename,
		Size:        req.Size,
		ContentType: req.ContentType,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, InitUploadResponse{
		UploadID:   result.UploadID,
		JobID:      result.JobID,
		StorageKey: result.StorageKey,
		UploadURL:  result.UploadURL,
	})
}

type TriggerIngestRequest struct {
	JobID string `json:"job_id"`
}

func (h *UploadHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "id")
	if uploadID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req TriggerIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.JobID == "" {
		api.Error(w, http.StatusBadRequest, "job_id is required")
		return
	}

	if err := h.svc.TriggerIngest(r.Context(), uploadID, req.JobID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{
		"upload_id": uploadID,
		"job_id":    req.JobID,
		"state":     "queued",
	})
}
