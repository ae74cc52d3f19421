package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/pkg/metrics"
)

// Hub maintains active WebSocket connections and broadcasts messages
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages, filtered per client subscription on delivery
	broadcast chan models.WebSocketMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a new WebSocket hub
func NewHub(ctx context.Context) *Hub {
	hubCtx, cancel := context.WithCancel(ctx)
	return &Hub{
		broadcast:  make(chan models.WebSocketMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		ctx:        hubCtx,
		cancel:     cancel,
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			metrics.WebSocketConnectionsActive.Set(float64(len(h.clients)))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			metrics.WebSocketConnectionsActive.Set(float64(len(h.clients)))
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.Type) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// Client buffer full, close connection
					close(client.send)
					delete(h.clients, client)
				}
			}
			metrics.WebSocketConnectionsActive.Set(float64(len(h.clients)))
			h.mu.Unlock()
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	defer h.mu.Unlock()

	// Close all client connections
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WebSocketConnectionsActive.Set(0)
}

// BroadcastAlertsCreated pushes a freshly persisted alert batch to all
// dashboard clients.
func (h *Hub) BroadcastAlertsCreated(window models.TimeWindow, alerts []*models.Alert) error {
	return h.publish(models.WebSocketMessage{
		Type:  "alerts_created",
		Event: "created",
		Payload: map[string]interface{}{
			"window": string(window),
			"count":  len(alerts),
			"alerts": alerts,
		},
		Timestamp: time.Now().UTC(),
	})
}

// BroadcastDetectionCompleted announces the end of a detection run,
// naming any failed detectors so the UI can show a partial run.
func (h *Hub) BroadcastDetectionCompleted(window models.TimeWindow, alertsCreated int, failedDetectors []string) error {
	event := "completed"
	if len(failedDetectors) > 0 {
		event = "completed_with_failures"
	}
	return h.publish(models.WebSocketMessage{
		Type:  "detection_completed",
		Event: event,
		Payload: map[string]interface{}{
			"window":           string(window),
			"alerts_created":   alertsCreated,
			"failed_detectors": failedDetectors,
		},
		Timestamp: time.Now().UTC(),
	})
}

// BroadcastTrendingUpdated tells clients a new trending batch is ready.
func (h *Hub) BroadcastTrendingUpdated(window models.TimeWindow, topics int) error {
	return h.publish(models.WebSocketMessage{
		Type:  "trending_updated",
		Event: "updated",
		Payload: map[string]interface{}{
			"window": string(window),
			"topics": topics,
		},
		Timestamp: time.Now().UTC(),
	})
}

func (h *Hub) publish(msg models.WebSocketMessage) error {
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
