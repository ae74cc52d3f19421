package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casepulse/casepulse-backend/internal/models"
)

func TestNewHub(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(ctx)

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHubRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	hub := NewHub(ctx)
	go hub.Run()

	// Wait for context to expire; Run should exit without panicking.
	<-ctx.Done()
}

func TestHubClientRegistration(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(ctx)
	go hub.Run()
	defer hub.Stop()

	assert.Equal(t, 0, hub.GetClientCount())

	client := &Client{send: make(chan []byte, 256)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, hub.GetClientCount())

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 0, hub.GetClientCount())
}

func TestHubBroadcastAlertsCreated(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(ctx)
	go hub.Run()
	defer hub.Stop()

	client := &Client{send: make(chan []byte, 256)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	category := "Refunds"
	err := hub.BroadcastAlertsCreated(models.WindowDaily, []*models.Alert{
		{ID: "a1", Type: models.AlertTypeSpike, Severity: models.AlertSeverityHigh, Title: "Billing: Refunds +150% vs previous 24 hours", BusinessUnit: "Billing", Category: &category},
	})
	require.NoError(t, err)

	select {
	case data := <-client.send:
		var msg models.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "alerts_created", msg.Type)
		assert.Equal(t, "created", msg.Event)
		assert.EqualValues(t, 1, msg.Payload["count"])
		assert.Equal(t, "daily", msg.Payload["window"])
	case <-time.After(time.Second):
		t.Fatal("client never received the broadcast")
	}
}

func TestHubBroadcastDetectionCompleted_FailuresChangeEvent(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(ctx)
	go hub.Run()
	defer hub.Stop()

	client := &Client{send: make(chan []byte, 256)}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, hub.BroadcastDetectionCompleted(models.WindowHourly, 2, []string{"urgency"}))

	select {
	case data := <-client.send:
		var msg models.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "detection_completed", msg.Type)
		assert.Equal(t, "completed_with_failures", msg.Event)
	case <-time.After(time.Second):
		t.Fatal("client never received the broadcast")
	}
}

func TestHubBroadcast_RespectsClientSubscription(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(ctx)
	go hub.Run()
	defer hub.Stop()

	trendingOnly := &Client{
		send:       make(chan []byte, 256),
		subscribed: map[string]struct{}{"trending_updated": {}},
	}
	hub.register <- trendingOnly
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, hub.BroadcastAlertsCreated(models.WindowDaily, nil))
	require.NoError(t, hub.BroadcastTrendingUpdated(models.WindowDaily, 7))

	select {
	case data := <-trendingOnly.send:
		var msg models.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "trending_updated", msg.Type, "the alerts message must have been filtered out")
	case <-time.After(time.Second):
		t.Fatal("client never received the trending broadcast")
	}
	assert.Empty(t, trendingOnly.send, "no further messages should be queued")
}

func TestHubStop(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(ctx)
	go hub.Run()

	for i := 0; i < 3; i++ {
		hub.register <- &Client{send: make(chan []byte, 256)}
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 3, hub.GetClientCount())

	hub.Stop()
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 0, hub.GetClientCount())
}
