package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/casepulse/casepulse-backend/internal/config"
	"github.com/casepulse/casepulse-backend/internal/models"
)

// Scheduler runs detection on a fixed cadence, one ticker per window.
// Hourly runs cover the freshest data; daily and weekly runs catch the
// slower-building patterns the short windows miss.
type Scheduler struct {
	detection *DetectionService
	cfg       config.SchedulerConfig
	log       *slog.Logger
	stopCh    chan struct{}
}

// NewScheduler creates the periodic detection scheduler.
func NewScheduler(detection *DetectionService, cfg config.SchedulerConfig, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		detection: detection,
		cfg:       cfg,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

// Start launches one background loop per time window. It is a no-op
// when the scheduler is disabled in config.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("Detection scheduler disabled")
		return
	}

	hourly := intervalOrDefault(s.cfg.HourlyIntervalMin, time.Hour)
	daily := intervalOrDefault(s.cfg.DailyIntervalMin, 24*time.Hour)
	weekly := intervalOrDefault(s.cfg.WeeklyIntervalMin, 7*24*time.Hour)

	s.log.Info("Starting detection scheduler",
		"hourly_interval", hourly,
		"daily_interval", daily,
		"weekly_interval", weekly,
		"run_on_start", s.cfg.RunOnStart)

	go s.loop(ctx, models.WindowHourly, hourly)
	go s.loop(ctx, models.WindowDaily, daily)
	go s.loop(ctx, models.WindowWeekly, weekly)
}

// Stop stops all scheduler loops.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) loop(ctx context.Context, window models.TimeWindow, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if s.cfg.RunOnStart {
		s.runWindow(ctx, window)
	}

	for {
		select {
		case <-ticker.C:
			s.runWindow(ctx, window)
		case <-s.stopCh:
			s.log.Info("Detection scheduler stopped", "window", window)
			return
		case <-ctx.Done():
			s.log.Info("Detection scheduler context cancelled", "window", window)
			return
		}
	}
}

func (s *Scheduler) runWindow(ctx context.Context, window models.TimeWindow) {
	s.log.Debug("Running scheduled detection", "window", window)

	summary, err := s.detection.Run(ctx, window)
	if err != nil {
		s.log.Error("Scheduled detection run failed", "window", window, "error", err)
		return
	}

	s.log.Info("Scheduled detection run completed",
		"window", window,
		"alerts_created", summary.AlertsCreated,
		"duration_ms", summary.DurationMS)
}

func intervalOrDefault(minutes int, fallback time.Duration) time.Duration {
	if minutes <= 0 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}
