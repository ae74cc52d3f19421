package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/repository"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
)

// ListAlerts handles GET /alerts with optional status, severity, type,
// business_unit, and limit query parameters.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.AlertFilter{
		BusinessUnit: q.Get("business_unit"),
		Limit:        defaultAlertLimit,
	}

	if v := q.Get("status"); v != "" {
		status := models.AlertStatus(v)
		if !models.ValidAlertStatus(status) {
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "unknown status "+v)
			return
		}
		filter.Status = status
	}
	if v := q.Get("severity"); v != "" {
		switch sev := models.AlertSeverity(v); sev {
		case models.AlertSeverityLow, models.AlertSeverityMedium, models.AlertSeverityHigh, models.AlertSeverityCritical:
			filter.Severity = sev
		default:
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "unknown severity "+v)
			return
		}
	}
	if v := q.Get("type"); v != "" {
		switch at := models.AlertType(v); at {
		case models.AlertTypeSpike, models.AlertTypeThreshold, models.AlertTypeUrgency, models.AlertTypeMisclassification:
			filter.Type = at
		default:
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "unknown alert type "+v)
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "limit must be a positive integer")
			return
		}
		if limit > maxAlertLimit {
			limit = maxAlertLimit
		}
		filter.Limit = limit
	}

	alerts, err := h.alerts.ListAlerts(r.Context(), filter)
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// GetAlert handles GET /alerts/{alertId}
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["alertId"]

	alert, err := h.alerts.GetAlert(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		respondErrorWithRequestID(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

// UpdateAlertStatus handles PATCH /alerts/{alertId}/status
func (h *Handler) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["alertId"]

	var body struct {
		Status models.AlertStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if !models.ValidAlertStatus(body.Status) {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "unknown status "+string(body.Status))
		return
	}

	alert, err := h.alerts.UpdateAlertStatus(r.Context(), id, body.Status)
	if errors.Is(err, repository.ErrNotFound) {
		respondErrorWithRequestID(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	h.log.Info("alert status updated", "alert_id", id, "status", body.Status)
	respondJSON(w, http.StatusOK, alert)
}
