package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/casepulse/casepulse-backend/internal/models"
)

func seedChannel(repo *stubChannelRepo, id string) *models.NotificationChannel {
	ch := &models.NotificationChannel{
		ID:      id,
		Name:    "ops slack",
		Type:    models.NotificationChannelSlack,
		URL:     "https://hooks.slack.com/services/T0/B0/x",
		Events:  []string{"spike", "urgency"},
		Enabled: true,
	}
	repo.byID[id] = ch
	return ch
}

func TestCreateNotificationChannel(t *testing.T) {
	repo := newStubChannelRepo()
	h := NewHandler(nil, nil, nil, repo, nil)
	router := newTestRouter(h)

	body := strings.NewReader(`{"name": "oncall webhook", "url": "https://example.com/hook", "events": ["spike"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notification-channels", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var ch models.NotificationChannel
	if err := json.NewDecoder(rr.Body).Decode(&ch); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if ch.ID == "" {
		t.Error("expected an assigned channel ID")
	}
	if ch.Type != models.NotificationChannelWebhook {
		t.Errorf("expected default type webhook, got %q", ch.Type)
	}
	if !ch.Enabled {
		t.Error("expected channel enabled by default")
	}
	if len(ch.Events) != 1 || ch.Events[0] != "spike" {
		t.Errorf("expected events [spike], got %v", ch.Events)
	}
}

func TestCreateNotificationChannelRequiresNameAndURL(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"url": "https://example.com/hook"}`},
		{"missing url", `{"name": "oncall"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubChannelRepo()
			h := NewHandler(nil, nil, nil, repo, nil)
			router := newTestRouter(h)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/notification-channels", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			if len(repo.byID) != 0 {
				t.Error("nothing should be stored on validation failure")
			}
		})
	}
}

func TestCreateNotificationChannelRejectsUnknownType(t *testing.T) {
	h := NewHandler(nil, nil, nil, newStubChannelRepo(), nil)
	router := newTestRouter(h)

	body := strings.NewReader(`{"name": "pager", "url": "https://example.com", "type": "sms"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notification-channels", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
	var apiErr APIError
	if err := json.NewDecoder(rr.Body).Decode(&apiErr); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if apiErr.Code != ErrCodeValidationFailed {
		t.Errorf("expected code %s, got %s", ErrCodeValidationFailed, apiErr.Code)
	}
}

func TestListNotificationChannels(t *testing.T) {
	repo := newStubChannelRepo()
	seedChannel(repo, "ch-1")
	h := NewHandler(nil, nil, nil, repo, nil)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notification-channels", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var channels []models.NotificationChannel
	if err := json.NewDecoder(rr.Body).Decode(&channels); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(channels))
	}
	if channels[0].Name != "ops slack" {
		t.Errorf("expected ops slack, got %q", channels[0].Name)
	}
}

func TestGetNotificationChannelNotFound(t *testing.T) {
	h := NewHandler(nil, nil, nil, newStubChannelRepo(), nil)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notification-channels/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestUpdateNotificationChannelPartialPatch(t *testing.T) {
	repo := newStubChannelRepo()
	seedChannel(repo, "ch-1")
	h := NewHandler(nil, nil, nil, repo, nil)
	router := newTestRouter(h)

	body := strings.NewReader(`{"enabled": false}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notification-channels/ch-1", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var ch models.NotificationChannel
	if err := json.NewDecoder(rr.Body).Decode(&ch); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if ch.Enabled {
		t.Error("expected channel disabled")
	}
	if ch.Name != "ops slack" {
		t.Errorf("name should be untouched, got %q", ch.Name)
	}
	if len(ch.Events) != 2 {
		t.Errorf("events should be untouched, got %v", ch.Events)
	}
}

func TestUpdateNotificationChannelReplacesEvents(t *testing.T) {
	repo := newStubChannelRepo()
	seedChannel(repo, "ch-1")
	h := NewHandler(nil, nil, nil, repo, nil)
	router := newTestRouter(h)

	// An explicit empty list clears the subscription filter.
	body := strings.NewReader(`{"events": []}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notification-channels/ch-1", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var ch models.NotificationChannel
	if err := json.NewDecoder(rr.Body).Decode(&ch); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(ch.Events) != 0 {
		t.Errorf("expected events cleared, got %v", ch.Events)
	}
}

func TestUpdateNotificationChannelRejectsUnknownType(t *testing.T) {
	repo := newStubChannelRepo()
	seedChannel(repo, "ch-1")
	h := NewHandler(nil, nil, nil, repo, nil)
	router := newTestRouter(h)

	body := strings.NewReader(`{"type": "pagerduty"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notification-channels/ch-1", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestUpdateNotificationChannelNotFound(t *testing.T) {
	h := NewHandler(nil, nil, nil, newStubChannelRepo(), nil)
	router := newTestRouter(h)

	body := strings.NewReader(`{"enabled": false}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/notification-channels/missing", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteNotificationChannel(t *testing.T) {
	repo := newStubChannelRepo()
	seedChannel(repo, "ch-1")
	h := NewHandler(nil, nil, nil, repo, nil)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notification-channels/ch-1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "ch-1" {
		t.Errorf("expected ch-1 deleted, got %v", repo.deleted)
	}

	// Second delete reports not found.
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/notification-channels/ch-1", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on repeat delete, got %d", rr.Code)
	}
}
