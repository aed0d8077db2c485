package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/corpusworks/docindex/internal/api"
	"github.com/corpusworks/docindex/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) ([]service.SearchResultItem, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchResponse struct {
	Query   string                     `json:"query"`
	Results []service.SearchResultItem `json:"results"`
	Count   int                        `json:"count"`
}

// Search handles GET /v1/search?q=...&limit=...&threshold=...&filter=key:value
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		api.Error(w, http.StatusBadRequest, "q is required")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < -1 || parsed > 1 {
			api.Error(w, http.StatusBadRequest, "threshold must be within [-1, 1]")
			return
		}
		threshold = parsed
	}

	metadata := map[string]string{}
	for _, raw := range r.URL.Query()["filter"] {
		key, value, ok := strings.Cut(raw, ":")
		if !ok || key == "" {
			api.Error(w, http.StatusBadRequest, "filter must be key:value")
			return
		}
		metadata[key] = value
	}

	results, err := h.svc.Search(r.Context(), service.SearchInput{
		Query:     query,
		Limit:     limit,
		Threshold: threshold,
		Metadata:  metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if results == nil {
		results = []service.SearchResultItem{}
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Query:   query,
		Results: results,
		Count:   len(results),
	})
}
