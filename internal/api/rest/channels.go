package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/repository"
)

// notificationChannelBody is the JSON body for POST and PATCH /notification-channels
type notificationChannelBody struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"` // "slack" | "webhook"
	URL     string   `json:"url"`
	Events  []string `json:"events"`  // alert types, e.g. ["spike","urgency"]; empty means all
	Enabled *bool    `json:"enabled"` // nil means keep existing on PATCH
}

func validChannelType(t models.NotificationChannelType) bool {
	return t == models.NotificationChannelSlack || t == models.NotificationChannelWebhook
}

// ListNotificationChannels handles GET /notification-channels
func (h *Handler) ListNotificationChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.channels.ListNotificationChannels(r.Context())
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, channels)
}

// GetNotificationChannel handles GET /notification-channels/{channelId}
func (h *Handler) GetNotificationChannel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["channelId"]

	ch, err := h.channels.GetNotificationChannel(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		respondErrorWithRequestID(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

// CreateNotificationChannel handles POST /notification-channels
func (h *Handler) CreateNotificationChannel(w http.ResponseWriter, r *http.Request) {
	var body notificationChannelBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if body.Name == "" || body.URL == "" {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "name and url required")
		return
	}
	chanType := models.NotificationChannelType(body.Type)
	if chanType == "" {
		chanType = models.NotificationChannelWebhook
	}
	if !validChannelType(chanType) {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "type must be slack or webhook")
		return
	}
	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}
	ch := &models.NotificationChannel{
		Name:    body.Name,
		Type:    chanType,
		URL:     body.URL,
		Events:  body.Events,
		Enabled: enabled,
	}
	if err := h.channels.CreateNotificationChannel(r.Context(), ch); err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	h.log.Info("notification channel created", "channel_id", ch.ID, "type", ch.Type)
	respondJSON(w, http.StatusCreated, ch)
}

// UpdateNotificationChannel handles PATCH /notification-channels/{channelId}
func (h *Handler) UpdateNotificationChannel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["channelId"]

	existing, err := h.channels.GetNotificationChannel(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		respondErrorWithRequestID(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	var body notificationChannelBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if body.Name != "" {
		existing.Name = body.Name
	}
	if body.URL != "" {
		existing.URL = body.URL
	}
	if body.Type != "" {
		chanType := models.NotificationChannelType(body.Type)
		if !validChannelType(chanType) {
			respondErrorWithRequestID(w, r, http.StatusBadRequest, ErrCodeValidationFailed, "type must be slack or webhook")
			return
		}
		existing.Type = chanType
	}
	if body.Events != nil {
		existing.Events = body.Events
	}
	if body.Enabled != nil {
		existing.Enabled = *body.Enabled
	}

	if err := h.channels.UpdateNotificationChannel(r.Context(), existing); err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, existing)
}

// DeleteNotificationChannel handles DELETE /notification-channels/{channelId}
func (h *Handler) DeleteNotificationChannel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["channelId"]

	err := h.channels.DeleteNotificationChannel(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		respondErrorWithRequestID(w, r, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return
	}
	if err != nil {
		respondErrorWithRequestID(w, r, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
