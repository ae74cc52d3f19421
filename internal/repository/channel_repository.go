package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// NotificationChannelRepository implementation. The events column holds
// a JSON array of subscribed alert types.

type channelRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Type      string    `db:"type"`
	URL       string    `db:"url"`
	Events    string    `db:"events"`
	Enabled   int       `db:"enabled"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row channelRow) toModel() models.NotificationChannel {
	var events []string
	_ = json.Unmarshal([]byte(row.Events), &events)
	return models.NotificationChannel{
		ID: row.ID, Name: row.Name, Type: models.NotificationChannelType(row.Type),
		URL: row.URL, Events: events, Enabled: row.Enabled == 1,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
	}
}

func (r *SQLiteRepository) CreateNotificationChannel(ctx context.Context, ch *models.NotificationChannel) error {
	if ch == nil {
		return fmt.Errorf("channel is required")
	}
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	eventsJSON, err := json.Marshal(ch.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	ch.CreatedAt = time.Now().UTC()
	ch.UpdatedAt = ch.CreatedAt
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO notification_channels (id, name, type, url, events, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ch.ID, ch.Name, string(ch.Type), ch.URL, string(eventsJSON), boolToInt(ch.Enabled), ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create notification_channel %s: %w", ch.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetNotificationChannel(ctx context.Context, id string) (*models.NotificationChannel, error) {
	var row channelRow
	if err := r.db.GetContext(ctx, &row,
		`SELECT id, name, type, url, events, enabled, created_at, updated_at FROM notification_channels WHERE id = ?`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification channel %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get notification_channel %s: %w", id, err)
	}
	ch := row.toModel()
	return &ch, nil
}

func (r *SQLiteRepository) ListNotificationChannels(ctx context.Context) ([]models.NotificationChannel, error) {
	var rows []channelRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT id, name, type, url, events, enabled, created_at, updated_at FROM notification_channels ORDER BY created_at DESC`,
	); err != nil {
		return nil, fmt.Errorf("list notification_channels: %w", err)
	}
	result := make([]models.NotificationChannel, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

func (r *SQLiteRepository) UpdateNotificationChannel(ctx context.Context, ch *models.NotificationChannel) error {
	if ch == nil {
		return fmt.Errorf("channel is required")
	}
	eventsJSON, err := json.Marshal(ch.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	ch.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE notification_channels SET name=?, type=?, url=?, events=?, enabled=?, updated_at=?
		WHERE id=?
	`, ch.Name, string(ch.Type), ch.URL, string(eventsJSON), boolToInt(ch.Enabled), ch.UpdatedAt, ch.ID)
	if err != nil {
		return fmt.Errorf("update notification_channel %s: %w", ch.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification channel %s: %w", ch.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteNotificationChannel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notification_channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete notification_channel %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification channel %s: %w", id, ErrNotFound)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
