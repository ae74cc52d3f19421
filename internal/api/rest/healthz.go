package rest

import (
	"context"
	"net/http"
	"time"
)

// Pinger is the connectivity check both database drivers provide.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthzHandler handles health check endpoints
type HealthzHandler struct {
	db Pinger
}

// NewHealthzHandler creates a new healthz handler
func NewHealthzHandler(db Pinger) *HealthzHandler {
	return &HealthzHandler{db: db}
}

// Live handles GET /healthz/live, the liveness probe (process is alive)
func (h *HealthzHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles GET /healthz/ready, the readiness probe (dependencies are healthy)
func (h *HealthzHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"reason": "database_unavailable",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
