package models

import "time"

// NotificationChannelType identifies the transport format for a notification channel.
type NotificationChannelType string

const (
	NotificationChannelWebhook NotificationChannelType = "webhook"
	NotificationChannelSlack   NotificationChannelType = "slack"
)

// NotificationChannel is a configured endpoint that receives alert
// events. The repository handles the JSON events column and the 0/1
// enabled column; this struct carries the decoded values.
type NotificationChannel struct {
	ID   string                  `json:"id"`
	Name string                  `json:"name"`
	Type NotificationChannelType `json:"type"`
	URL  string                  `json:"url"`
	// Events is the set of alert types this channel subscribes to.
	// Recognised values: "spike", "threshold", "urgency", "misclassification".
	Events    []string  `json:"events"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AlertEvent is the payload delivered to each subscribed channel when a
// detection run creates alerts.
type AlertEvent struct {
	// EventType is the alert type, e.g. "spike" or "urgency".
	EventType    string `json:"event_type"`
	AlertID      string `json:"alert_id"`
	Severity     string `json:"severity"`
	Title        string `json:"title"`
	BusinessUnit string `json:"business_unit"`
	Category     string `json:"category,omitempty"`
	Window       string `json:"window,omitempty"`
	Message      string `json:"message,omitempty"`
	// OccurredAt is the server-side timestamp of the event.
	OccurredAt string `json:"occurred_at"`
}
