package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/repository"
	"github.com/casepulse/casepulse-backend/internal/service"
)

// DetectionRunner is the slice of the detection service the API needs.
type DetectionRunner interface {
	Run(ctx context.Context, window models.TimeWindow, detectors ...string) (*service.RunSummary, error)
	Preview(ctx context.Context, window models.TimeWindow, detectors ...string) (*service.PreviewResult, error)
	DetectorNames() []string
}

// Handler manages HTTP request handlers
type Handler struct {
	detection DetectionRunner
	alerts    repository.AlertRepository
	trending  repository.TrendingRepository
	channels  repository.NotificationChannelRepository
	log       *slog.Logger
}

// NewHandler creates a new HTTP handler. In the server all three
// repository arguments are the same Store; tests pass narrow fakes.
func NewHandler(
	detection DetectionRunner,
	alerts repository.AlertRepository,
	trending repository.TrendingRepository,
	channels repository.NotificationChannelRepository,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		detection: detection,
		alerts:    alerts,
		trending:  trending,
		channels:  channels,
		log:       log,
	}
}

// SetupRoutes configures API routes
func SetupRoutes(router *mux.Router, h *Handler) {
	// Alert routes
	router.HandleFunc("/alerts", h.ListAlerts).Methods("GET")
	router.HandleFunc("/alerts/{alertId}", h.GetAlert).Methods("GET")
	router.HandleFunc("/alerts/{alertId}/status", h.UpdateAlertStatus).Methods("PATCH")

	// Trending routes
	router.HandleFunc("/trending", h.GetTrending).Methods("GET")

	// Detection routes
	router.HandleFunc("/detect/run", h.RunDetection).Methods("POST")
	router.HandleFunc("/detect/preview", h.PreviewDetection).Methods("POST")
	router.HandleFunc("/detect/detectors", h.ListDetectors).Methods("GET")

	// Notification channel routes
	router.HandleFunc("/notification-channels", h.ListNotificationChannels).Methods("GET")
	router.HandleFunc("/notification-channels", h.CreateNotificationChannel).Methods("POST")
	router.HandleFunc("/notification-channels/{channelId}", h.GetNotificationChannel).Methods("GET")
	router.HandleFunc("/notification-channels/{channelId}", h.UpdateNotificationChannel).Methods("PATCH")
	router.HandleFunc("/notification-channels/{channelId}", h.DeleteNotificationChannel).Methods("DELETE")
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
