// Package notifications fans newly created alerts out to registered
// webhook and Slack endpoints. Deliveries are fire-and-forget so a slow
// or dead endpoint never blocks a detection run.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/pkg/metrics"
)

// Notifier delivers AlertEvent payloads to all enabled channels that
// subscribe to the alert type.
type Notifier struct {
	channels func(ctx context.Context) ([]models.NotificationChannel, error)
	client   *http.Client
	logger   *slog.Logger
}

// NewNotifier creates a Notifier backed by the given channel loader
// (typically the repository's ListNotificationChannels method).
func NewNotifier(
	channelLoader func(ctx context.Context) ([]models.NotificationChannel, error),
	logger *slog.Logger,
) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		channels: channelLoader,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// NotifyAlerts dispatches one event per created alert. Returns
// immediately; delivery happens in the background.
func (n *Notifier) NotifyAlerts(window models.TimeWindow, alerts []*models.Alert) {
	for _, alert := range alerts {
		ev := models.AlertEvent{
			EventType:    string(alert.Type),
			AlertID:      alert.ID,
			Severity:     string(alert.Severity),
			Title:        alert.Title,
			BusinessUnit: alert.BusinessUnit,
			Window:       string(window),
			Message:      alert.Description,
		}
		if alert.Category != nil {
			ev.Category = *alert.Category
		}
		n.Notify(ev)
	}
}

// Notify dispatches a single event asynchronously.
func (n *Notifier) Notify(ev models.AlertEvent) {
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	go n.deliver(ev)
}

// deliver is the synchronous delivery routine, called from a goroutine.
func (n *Notifier) deliver(ev models.AlertEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channels, err := n.channels(ctx)
	if err != nil {
		n.logger.Warn("notifications: failed to load channels", "err", err)
		return
	}

	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		if !subscribes(ch.Events, ev.EventType) {
			continue
		}
		if err := n.send(ctx, ch, ev); err != nil {
			metrics.NotificationDeliveriesTotal.WithLabelValues(string(ch.Type), "error").Inc()
			n.logger.Warn("notifications: delivery failed",
				"channel_id", ch.ID,
				"channel_type", ch.Type,
				"event_type", ev.EventType,
				"err", err,
			)
			continue
		}
		metrics.NotificationDeliveriesTotal.WithLabelValues(string(ch.Type), "success").Inc()
	}
}

// send posts the event to a single channel, adapting the payload format
// for Slack vs generic webhooks.
func (n *Notifier) send(ctx context.Context, ch models.NotificationChannel, ev models.AlertEvent) error {
	var payload interface{}

	switch ch.Type {
	case models.NotificationChannelSlack:
		// Slack expects {"text": "..."} with optional markdown.
		text := fmt.Sprintf("*[CasePulse/%s]* %s `%s`", ev.EventType, ev.Severity, ev.Title)
		if ev.Message != "" {
			text += "\n> " + ev.Message
		}
		payload = map[string]string{"text": text}

	default: // "webhook" gets the full AlertEvent JSON.
		payload = ev
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CasePulse-Notifier/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d from webhook", resp.StatusCode)
	}
	return nil
}

// subscribes returns true if the events list contains the given alert
// type, or if the list is empty (meaning "all alert types").
func subscribes(events []string, eventType string) bool {
	if len(events) == 0 {
		return true
	}
	for _, e := range events {
		if e == eventType || e == "*" {
			return true
		}
	}
	return false
}
