package handlers

import (
	"context"
	"net/http"

	"github.com/corpusworks/docindex/internal/api"
	"github.com/corpusworks/docindex/internal/service"
	"github.com/go-chi/chi/v5"
)

type JobStatusService interface {
	GetStatus(ctx context.Context, jobID string) (*service.JobStatusReadout, error)
}

type JobHandler struct {
	svc JobStatusService
}

func NewJobHandler(svc JobStatusService) *JobHandler {
	return &JobHandler{svc: svc}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	readout, err := h.svc.GetStatus(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, readout)
}
