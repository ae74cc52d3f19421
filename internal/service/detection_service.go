package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/casepulse/casepulse-backend/internal/api/websocket"
	"github.com/casepulse/casepulse-backend/internal/detect"
	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/notifications"
	"github.com/casepulse/casepulse-backend/internal/pkg/metrics"
	"github.com/casepulse/casepulse-backend/internal/repository"
	"github.com/casepulse/casepulse-backend/internal/trending"
)

// DetectionService runs the detection engine and owns everything that
// happens to its findings: persistence, metrics, WebSocket fan-out,
// notifications, and the trending refresh that rides along with each
// run. The REST API, the scheduler, and the Kafka trigger all come
// through here.
type DetectionService struct {
	engine   *detect.Engine
	alerts   repository.AlertRepository
	trending *trending.Analyzer
	hub      *websocket.Hub
	notifier *notifications.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewDetectionService creates the detection orchestrator. The analyzer,
// hub, and notifier are optional; nil skips the corresponding step.
func NewDetectionService(
	engine *detect.Engine,
	alerts repository.AlertRepository,
	analyzer *trending.Analyzer,
	hub *websocket.Hub,
	notifier *notifications.Notifier,
	logger *slog.Logger,
) *DetectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectionService{
		engine:   engine,
		alerts:   alerts,
		trending: analyzer,
		hub:      hub,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// DetectorRun is one detector's outcome inside a run summary.
type DetectorRun struct {
	Detector   string `json:"detector"`
	Alerts     int    `json:"alerts"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunSummary describes one completed detection run.
type RunSummary struct {
	Window          models.TimeWindow `json:"window"`
	StartedAt       time.Time         `json:"started_at"`
	DurationMS      int64             `json:"duration_ms"`
	AlertsCreated   int               `json:"alerts_created"`
	Detectors       []DetectorRun     `json:"detectors"`
	FailedDetectors []string          `json:"failed_detectors,omitempty"`
	TrendingTopics  int               `json:"trending_topics"`
}

// PreviewResult carries the alerts a run would create, unsaved.
type PreviewResult struct {
	Window    models.TimeWindow `json:"window"`
	Alerts    []*models.Alert   `json:"alerts"`
	Detectors []DetectorRun     `json:"detectors"`
}

// DetectorNames lists the detectors available to Run and Preview.
func (s *DetectionService) DetectorNames() []string {
	return s.engine.DetectorNames()
}

// Run executes detection over the window, persists the resulting
// alerts, and fans them out. With detector names it runs only those
// detectors. Individual detector failures are reported in the summary;
// only configuration problems and a failed persist return an error.
func (s *DetectionService) Run(ctx context.Context, window models.TimeWindow, detectors ...string) (*RunSummary, error) {
	started := s.now().UTC()

	report, err := s.engine.Run(ctx, window, started, detectors...)
	if err != nil {
		return nil, err
	}

	alerts := report.Alerts()
	if len(alerts) > 0 {
		if err := s.alerts.CreateAlerts(ctx, alerts); err != nil {
			return nil, fmt.Errorf("persist alerts: %w", err)
		}
		for _, a := range alerts {
			metrics.AlertsGeneratedTotal.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
		}
		if s.hub != nil {
			if err := s.hub.BroadcastAlertsCreated(window, alerts); err != nil {
				s.logger.Warn("alert broadcast dropped", "window", window, "error", err)
			}
		}
		if s.notifier != nil {
			s.notifier.NotifyAlerts(window, alerts)
		}
	}

	topics := s.refreshTrending(ctx, window, started)

	runs, failed := summarize(report)
	if s.hub != nil {
		if err := s.hub.BroadcastDetectionCompleted(window, len(alerts), failed); err != nil {
			s.logger.Warn("completion broadcast dropped", "window", window, "error", err)
		}
	}

	summary := &RunSummary{
		Window:          window,
		StartedAt:       started,
		DurationMS:      time.Since(started).Milliseconds(),
		AlertsCreated:   len(alerts),
		Detectors:       runs,
		FailedDetectors: failed,
		TrendingTopics:  topics,
	}
	s.logger.Info("detection run completed",
		"window", window,
		"alerts_created", summary.AlertsCreated,
		"failed_detectors", len(failed),
		"trending_topics", topics,
		"duration_ms", summary.DurationMS)
	return summary, nil
}

// Preview executes detection without persisting, notifying, or touching
// trending. It is the dry-run behind POST /api/v1/detect/preview.
func (s *DetectionService) Preview(ctx context.Context, window models.TimeWindow, detectors ...string) (*PreviewResult, error) {
	report, err := s.engine.Run(ctx, window, s.now().UTC(), detectors...)
	if err != nil {
		return nil, err
	}
	runs, _ := summarize(report)
	return &PreviewResult{
		Window:    window,
		Alerts:    report.Alerts(),
		Detectors: runs,
	}, nil
}

// refreshTrending recomputes trending topics for the window the run
// just covered. Trending failures never fail the run.
func (s *DetectionService) refreshTrending(ctx context.Context, window models.TimeWindow, now time.Time) int {
	if s.trending == nil {
		return 0
	}
	topics, err := s.trending.Run(ctx, window, now)
	if err != nil {
		s.logger.Error("trending refresh failed", "window", window, "error", err)
		return 0
	}
	if s.hub != nil && len(topics) > 0 {
		if err := s.hub.BroadcastTrendingUpdated(window, len(topics)); err != nil {
			s.logger.Warn("trending broadcast dropped", "window", window, "error", err)
		}
	}
	return len(topics)
}

func summarize(report *detect.RunReport) ([]DetectorRun, []string) {
	runs := make([]DetectorRun, 0, len(report.Outcomes))
	var failed []string
	for _, o := range report.Outcomes {
		run := DetectorRun{
			Detector:   o.Detector,
			Alerts:     len(o.Alerts),
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			run.Error = o.Err.Error()
			failed = append(failed, o.Detector)
		}
		runs = append(runs, run)
	}
	return runs, failed
}
