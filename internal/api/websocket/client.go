package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024
)

// Client represents one connected dashboard session.
type Client struct {
	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Hub reference
	hub *Hub

	// Context for cancellation
	ctx    context.Context
	cancel context.CancelFunc

	// Client ID for tracking
	id string

	// Message types this client subscribed to; empty means all.
	// A trending-only panel subscribes to just trending_updated.
	mu         sync.Mutex
	subscribed map[string]struct{}
}

// NewClient creates a new WebSocket client
func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn, id string) *Client {
	clientCtx, cancel := context.WithCancel(ctx)
	return &Client{
		conn:       conn,
		send:       make(chan []byte, 256),
		hub:        hub,
		ctx:        clientCtx,
		cancel:     cancel,
		id:         id,
		subscribed: make(map[string]struct{}),
	}
}

// wants reports whether this client should receive a message type.
func (c *Client) wants(messageType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.subscribed) == 0 {
		return true
	}
	_, ok := c.subscribed[messageType]
	return ok
}

// ReadPump pumps messages from the websocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, message, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				}
				return
			}

			c.handleMessage(message)
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the client connection
func (c *Client) Close() {
	c.cancel()
}

// handleMessage processes subscription updates from the client:
// {"action": "subscribe", "types": ["alerts_created", "trending_updated"]}.
// An empty types list resets to receiving everything.
func (c *Client) handleMessage(message []byte) {
	var req struct {
		Action string   `json:"action"`
		Types  []string `json:"types"`
	}
	if err := json.Unmarshal(message, &req); err != nil {
		log.Printf("WebSocket client %s sent malformed message: %v", c.id, err)
		return
	}
	if req.Action != "subscribe" {
		return
	}

	c.mu.Lock()
	c.subscribed = make(map[string]struct{}, len(req.Types))
	for _, t := range req.Types {
		c.subscribed[t] = struct{}{}
	}
	c.mu.Unlock()
}
