package models

import "time"

// WebSocketMessage represents a message pushed to dashboard clients.
type WebSocketMessage struct {
	Type      string                 `json:"type"`  // alerts_created, detection_completed, trending_updated, error
	Event     string                 `json:"event"` // created, completed, failed
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}
