package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casepulse/casepulse-backend/internal/models"
)

func TestGetTrending(t *testing.T) {
	repo := &stubTrendingRepo{
		topics: []*models.TrendingTopic{
			{ID: "t-1", Topic: "Refunds", BusinessUnit: "Billing", TrendScore: 42.5},
			{ID: "t-2", Topic: "Login issues", BusinessUnit: "Accounts", TrendScore: 17.0},
		},
	}
	h := NewHandler(nil, nil, repo, nil, nil)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trending", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.gotWindow != models.WindowDaily {
		t.Errorf("expected default daily window, got %q", repo.gotWindow)
	}
	if repo.gotLimit != defaultTrendingLimit {
		t.Errorf("expected default limit %d, got %d", defaultTrendingLimit, repo.gotLimit)
	}

	var topics []models.TrendingTopic
	if err := json.NewDecoder(rr.Body).Decode(&topics); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(topics))
	}
	if topics[0].Topic != "Refunds" {
		t.Errorf("expected Refunds first, got %q", topics[0].Topic)
	}
}

func TestGetTrendingForwardsWindowAndLimit(t *testing.T) {
	repo := &stubTrendingRepo{}
	h := NewHandler(nil, nil, repo, nil, nil)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trending?window=hourly&limit=5", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if repo.gotWindow != models.WindowHourly {
		t.Errorf("expected hourly window, got %q", repo.gotWindow)
	}
	if repo.gotLimit != 5 {
		t.Errorf("expected limit 5, got %d", repo.gotLimit)
	}
}

func TestGetTrendingCapsLimit(t *testing.T) {
	repo := &stubTrendingRepo{}
	h := NewHandler(nil, nil, repo, nil, nil)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trending?limit=500", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if repo.gotLimit != maxTrendingLimit {
		t.Errorf("expected limit capped at %d, got %d", maxTrendingLimit, repo.gotLimit)
	}
}

func TestGetTrendingRejectsUnknownWindow(t *testing.T) {
	h := NewHandler(nil, nil, &stubTrendingRepo{}, nil, nil)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trending?window=quarterly", nil)
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

func TestGetTrendingRepositoryErrorIs500(t *testing.T) {
	repo := &stubTrendingRepo{err: errors.New("query timeout")}
	h := NewHandler(nil, nil, repo, nil, nil)
	router := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trending", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rr.Code, rr.Body.String())
	}
}
