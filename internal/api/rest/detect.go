package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/casepulse/casepulse-backend/internal/detect"
	"github.com/casepulse/casepulse-backend/internal/models"
)

// detectRunBody is the JSON body for POST /detect/run and /detect/preview.
type detectRunBody struct {
	Window    string   `json:"window"`    // hourly | daily | weekly
	Detectors []string `json:"detectors"` // empty means all
}

func (h *Handler) decodeDetectBody(w http.ResponseWriter, r *http.Request) (models.TimeWindow, []string, bool) {
	var body detectRunBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return "", nil, false
	}
	if body.Window == "" {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "window is required")
		return "", nil, false
	}
	window, err := models.ParseTimeWindow(body.Window)
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return "", nil, false
	}
	return window, body.Detectors, true
}

// RunDetection handles POST /detect/run. The run executes inline and
// the summary comes back in the response; alerts land in storage and on
// the WebSocket feed as part of the run.
func (h *Handler) RunDetection(w http.ResponseWriter, r *http.Request) {
	window, detectors, ok := h.decodeDetectBody(w, r)
	if !ok {
		return
	}

	summary, err := h.detection.Run(r.Context(), window, detectors...)
	if err != nil {
		var cfgErr *detect.ConfigurationError
		if errors.As(err, &cfgErr) {
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, cfgErr.Error())
			return
		}
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// PreviewDetection handles POST /detect/preview: a dry run that
// returns the alerts a run would create without saving them.
func (h *Handler) PreviewDetection(w http.ResponseWriter, r *http.Request) {
	window, detectors, ok := h.decodeDetectBody(w, r)
	if !ok {
		return
	}

	preview, err := h.detection.Preview(r.Context(), window, detectors...)
	if err != nil {
		var cfgErr *detect.ConfigurationError
		if errors.As(err, &cfgErr) {
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, cfgErr.Error())
			return
		}
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// ListDetectors handles GET /detect/detectors
func (h *Handler) ListDetectors(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{
		"detectors": h.detection.DetectorNames(),
	})
}
