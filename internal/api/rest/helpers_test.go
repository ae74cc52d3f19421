package rest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/repository"
	"github.com/casepulse/casepulse-backend/internal/service"
)

var errOffline = errors.New("database offline")

func newTestRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	SetupRoutes(api, h)
	return router
}

// stubDetection records how the handlers call the detection service.
type stubDetection struct {
	summary      *service.RunSummary
	preview      *service.PreviewResult
	err          error
	gotWindow    models.TimeWindow
	gotDetectors []string
	runCalls     int
	previewCalls int
}

func (s *stubDetection) Run(ctx context.Context, window models.TimeWindow, detectors ...string) (*service.RunSummary, error) {
	s.runCalls++
	s.gotWindow = window
	s.gotDetectors = detectors
	return s.summary, s.err
}

func (s *stubDetection) Preview(ctx context.Context, window models.TimeWindow, detectors ...string) (*service.PreviewResult, error) {
	s.previewCalls++
	s.gotWindow = window
	s.gotDetectors = detectors
	return s.preview, s.err
}

func (s *stubDetection) DetectorNames() []string {
	return []string{"spike", "threshold", "urgency", "misclassification"}
}

type stubAlertRepo struct {
	alerts    []*models.Alert
	byID      map[string]*models.Alert
	listErr   error
	gotFilter models.AlertFilter
}

func (s *stubAlertRepo) CreateAlerts(ctx context.Context, alerts []*models.Alert) error {
	return nil
}

func (s *stubAlertRepo) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	if a, ok := s.byID[id]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("alert %s: %w", id, repository.ErrNotFound)
}

func (s *stubAlertRepo) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	s.gotFilter = filter
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.alerts, nil
}

func (s *stubAlertRepo) UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus) (*models.Alert, error) {
	a, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, repository.ErrNotFound)
	}
	a.Status = status
	return a, nil
}

type stubTrendingRepo struct {
	topics    []*models.TrendingTopic
	err       error
	gotWindow models.TimeWindow
	gotLimit  int
}

func (s *stubTrendingRepo) CreateTrendingTopics(ctx context.Context, topics []*models.TrendingTopic) error {
	return nil
}

func (s *stubTrendingRepo) ListTrendingTopics(ctx context.Context, window models.TimeWindow, limit int) ([]*models.TrendingTopic, error) {
	s.gotWindow = window
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.topics, nil
}

type stubChannelRepo struct {
	byID    map[string]*models.NotificationChannel
	deleted []string
}

func newStubChannelRepo() *stubChannelRepo {
	return &stubChannelRepo{byID: map[string]*models.NotificationChannel{}}
}

func (s *stubChannelRepo) CreateNotificationChannel(ctx context.Context, ch *models.NotificationChannel) error {
	if ch.ID == "" {
		ch.ID = "ch-" + strconv.Itoa(len(s.byID)+1)
	}
	s.byID[ch.ID] = ch
	return nil
}

func (s *stubChannelRepo) GetNotificationChannel(ctx context.Context, id string) (*models.NotificationChannel, error) {
	if ch, ok := s.byID[id]; ok {
		return ch, nil
	}
	return nil, fmt.Errorf("notification channel %s: %w", id, repository.ErrNotFound)
}

func (s *stubChannelRepo) ListNotificationChannels(ctx context.Context) ([]models.NotificationChannel, error) {
	out := make([]models.NotificationChannel, 0, len(s.byID))
	for _, ch := range s.byID {
		out = append(out, *ch)
	}
	return out, nil
}

func (s *stubChannelRepo) UpdateNotificationChannel(ctx context.Context, ch *models.NotificationChannel) error {
	if _, ok := s.byID[ch.ID]; !ok {
		return fmt.Errorf("notification channel %s: %w", ch.ID, repository.ErrNotFound)
	}
	s.byID[ch.ID] = ch
	return nil
}

func (s *stubChannelRepo) DeleteNotificationChannel(ctx context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("notification channel %s: %w", id, repository.ErrNotFound)
	}
	delete(s.byID, id)
	s.deleted = append(s.deleted, id)
	return nil
}
