package rest

import (
	"net/http"
	"strconv"

	"github.com/casepulse/casepulse-backend/internal/models"
)

const (
	defaultTrendingLimit = 20
	maxTrendingLimit     = 100
)

// GetTrending handles GET /trending. It returns the latest computed
// batch for the window, ranked by trend score.
func (h *Handler) GetTrending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	window := models.WindowDaily
	if v := q.Get("window"); v != "" {
		parsed, err := models.ParseTimeWindow(v)
		if err != nil {
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
			return
		}
		window = parsed
	}

	limit := defaultTrendingLimit
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "limit must be a positive integer")
			return
		}
		if parsed > maxTrendingLimit {
			parsed = maxTrendingLimit
		}
		limit = parsed
	}

	topics, err := h.trending.ListTrendingTopics(r.Context(), window, limit)
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, topics)
}
