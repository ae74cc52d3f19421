package repository

import (
	"context"
	"errors"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// ErrNotFound is returned when a lookup or update targets a row that
// does not exist. Match with errors.Is.
var ErrNotFound = errors.New("not found")

// CaseRepository defines read-only aggregation access to ingested cases.
// All ranges are half-open [start, end): a case created exactly at end
// belongs to the next window.
type CaseRepository interface {
	CountCasesByBusinessUnit(ctx context.Context, start, end time.Time) ([]models.BusinessUnitCount, error)
	CountCasesByGroup(ctx context.Context, start, end time.Time) ([]models.GroupCount, error)
	ListCasesBySeverity(ctx context.Context, start, end time.Time, severities []models.CaseSeverity) ([]*models.Case, error)
}

// AlertRepository defines alert data access methods. Alerts are
// append-only; only the status column is ever updated.
type AlertRepository interface {
	CreateAlerts(ctx context.Context, alerts []*models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error)
	UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus) (*models.Alert, error)
}

// TrendingRepository defines trending topic data access methods.
type TrendingRepository interface {
	CreateTrendingTopics(ctx context.Context, topics []*models.TrendingTopic) error
	ListTrendingTopics(ctx context.Context, window models.TimeWindow, limit int) ([]*models.TrendingTopic, error)
}

// NotificationChannelRepository defines notification channel CRUD.
type NotificationChannelRepository interface {
	CreateNotificationChannel(ctx context.Context, ch *models.NotificationChannel) error
	GetNotificationChannel(ctx context.Context, id string) (*models.NotificationChannel, error)
	ListNotificationChannels(ctx context.Context) ([]models.NotificationChannel, error)
	UpdateNotificationChannel(ctx context.Context, ch *models.NotificationChannel) error
	DeleteNotificationChannel(ctx context.Context, id string) error
}

// Store is the full persistence surface the server wires against.
// Both SQLiteRepository and PostgresRepository satisfy it.
type Store interface {
	CaseRepository
	AlertRepository
	TrendingRepository
	NotificationChannelRepository

	Ping(ctx context.Context) error
	RunMigrations(migrationSQL string) error
	Close() error
}
