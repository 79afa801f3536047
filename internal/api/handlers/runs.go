package handlers

import (
	"net/http"
	"strconv"

	"github.com/wonny/tripsniper/internal/api/response"
	"github.com/wonny/tripsniper/internal/domain/offer"
)

// RunsHandler exposes the pipeline run log
type RunsHandler struct {
	repo offer.RunLogRepository
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(repo offer.RunLogRepository) *RunsHandler {
	return &RunsHandler{repo: repo}
}

// Recent returns the latest pipeline runs, newest first
// GET /api/v1/runs?limit=
func (h *RunsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			response.ValidationError(w, r, []response.FieldError{
				{Field: "limit", Message: "must be an integer between 1 and 100"},
			})
			return
		}
		limit = n
	}

	runs, err := h.repo.GetRecent(r.Context(), limit)
	if err != nil {
		response.DatabaseError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*offer.RunLog{}
	}
	response.SuccessList(w, r, runs, len(runs))
}
