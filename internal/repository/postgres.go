package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// PostgresRepository implements repositories using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(connectionString string) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// RunMigrations runs database migrations
func (r *PostgresRepository) RunMigrations(migrationSQL string) error {
	_, err := r.db.Exec(migrationSQL)
	return err
}

// Ping verifies database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CaseRepository implementation

func (r *PostgresRepository) CountCasesByBusinessUnit(ctx context.Context, start, end time.Time) ([]models.BusinessUnitCount, error) {
	counts := []models.BusinessUnitCount{}
	query := `
		SELECT business_unit, COUNT(*) AS count
		FROM cases
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY business_unit
		ORDER BY business_unit
	`

	err := instrumentQuery("count_cases_by_business_unit", func() error {
		return r.db.SelectContext(ctx, &counts, query, start, end)
	})
	if err != nil {
		return nil, fmt.Errorf("count cases by business unit: %w", err)
	}
	return counts, nil
}

func (r *PostgresRepository) CountCasesByGroup(ctx context.Context, start, end time.Time) ([]models.GroupCount, error) {
	counts := []models.GroupCount{}
	query := `
		SELECT business_unit, category, COUNT(*) AS count
		FROM cases
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY business_unit, category
		ORDER BY business_unit, category
	`

	err := instrumentQuery("count_cases_by_group", func() error {
		return r.db.SelectContext(ctx, &counts, query, start, end)
	})
	if err != nil {
		return nil, fmt.Errorf("count cases by group: %w", err)
	}
	return counts, nil
}

func (r *PostgresRepository) ListCasesBySeverity(ctx context.Context, start, end time.Time, severities []models.CaseSeverity) ([]*models.Case, error) {
	if len(severities) == 0 {
		return []*models.Case{}, nil
	}

	placeholders := make([]string, len(severities))
	args := []interface{}{start, end}
	for i, s := range severities {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, string(s))
	}
	query := fmt.Sprintf(`
		SELECT id, business_unit, category, severity, summary, created_at
		FROM cases
		WHERE created_at >= $1 AND created_at < $2 AND severity IN (%s)
		ORDER BY created_at
	`, strings.Join(placeholders, ", "))

	cases := []*models.Case{}
	err := instrumentQuery("list_cases_by_severity", func() error {
		return r.db.SelectContext(ctx, &cases, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list cases by severity: %w", err)
	}
	return cases, nil
}

// AlertRepository implementation

func (r *PostgresRepository) CreateAlerts(ctx context.Context, alerts []*models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	return instrumentQuery("create_alerts", func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin create alerts transaction: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		now := time.Now().UTC()
		query := `
			INSERT INTO alerts (id, type, severity, title, description, business_unit, category,
				baseline_value, current_value, percentage_change, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		for _, alert := range alerts {
			if alert.ID == "" {
				alert.ID = uuid.New().String()
			}
			if alert.Status == "" {
				alert.Status = models.AlertStatusActive
			}
			if alert.CreatedAt.IsZero() {
				alert.CreatedAt = now
			}
			alert.UpdatedAt = alert.CreatedAt

			if _, err = tx.ExecContext(ctx, query,
				alert.ID,
				string(alert.Type),
				string(alert.Severity),
				alert.Title,
				alert.Description,
				alert.BusinessUnit,
				alert.Category,
				alert.BaselineValue,
				alert.CurrentValue,
				alert.PercentageChange,
				string(alert.Status),
				alert.CreatedAt,
				alert.UpdatedAt,
			); err != nil {
				return fmt.Errorf("insert alert %s: %w", alert.ID, err)
			}
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit create alerts transaction: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	var alert models.Alert
	query := `SELECT * FROM alerts WHERE id = $1`

	err := instrumentQuery("get_alert", func() error {
		return r.db.GetContext(ctx, &alert, query, id)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get alert %s: %w", id, err)
	}
	return &alert, nil
}

func (r *PostgresRepository) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		conds = append(conds, "status = "+arg(string(filter.Status)))
	}
	if filter.Severity != "" {
		conds = append(conds, "severity = "+arg(string(filter.Severity)))
	}
	if filter.Type != "" {
		conds = append(conds, "type = "+arg(string(filter.Type)))
	}
	if filter.BusinessUnit != "" {
		conds = append(conds, "business_unit = "+arg(filter.BusinessUnit))
	}

	query := `SELECT * FROM alerts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	alerts := []*models.Alert{}
	err := instrumentQuery("list_alerts", func() error {
		return r.db.SelectContext(ctx, &alerts, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

func (r *PostgresRepository) UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus) (*models.Alert, error) {
	if !models.ValidAlertStatus(status) {
		return nil, fmt.Errorf("invalid alert status %q", status)
	}

	err := instrumentQuery("update_alert_status", func() error {
		res, execErr := r.db.ExecContext(ctx,
			`UPDATE alerts SET status = $1, updated_at = $2 WHERE id = $3`,
			string(status), time.Now().UTC(), id,
		)
		if execErr != nil {
			return execErr
		}
		affected, execErr := res.RowsAffected()
		if execErr != nil {
			return execErr
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update alert %s status: %w", id, err)
	}

	return r.GetAlert(ctx, id)
}

// TrendingRepository implementation

func (r *PostgresRepository) CreateTrendingTopics(ctx context.Context, topics []*models.TrendingTopic) error {
	if len(topics) == 0 {
		return nil
	}

	return instrumentQuery("create_trending_topics", func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin create trending topics transaction: %w", err)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
			}
		}()

		now := time.Now().UTC()
		query := `
			INSERT INTO trending_topics (id, topic, business_unit, category, current_count,
				baseline_count, direction, percentage_change, trend_score, time_window, computed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		for _, topic := range topics {
			if topic.ID == "" {
				topic.ID = uuid.New().String()
			}
			if topic.ComputedAt.IsZero() {
				topic.ComputedAt = now
			}

			if _, err = tx.ExecContext(ctx, query,
				topic.ID,
				topic.Topic,
				topic.BusinessUnit,
				topic.Category,
				topic.CurrentCount,
				topic.BaselineCount,
				string(topic.Direction),
				topic.PercentageChange,
				topic.TrendScore,
				string(topic.Window),
				topic.ComputedAt,
			); err != nil {
				return fmt.Errorf("insert trending topic %s: %w", topic.ID, err)
			}
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit create trending topics transaction: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepository) ListTrendingTopics(ctx context.Context, window models.TimeWindow, limit int) ([]*models.TrendingTopic, error) {
	query := `
		SELECT * FROM trending_topics
		WHERE time_window = $1
		  AND computed_at = (SELECT MAX(computed_at) FROM trending_topics WHERE time_window = $2)
		ORDER BY trend_score DESC
	`
	args := []interface{}{string(window), string(window)}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	topics := []*models.TrendingTopic{}
	err := instrumentQuery("list_trending_topics", func() error {
		return r.db.SelectContext(ctx, &topics, query, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("list trending topics: %w", err)
	}
	return topics, nil
}

// NotificationChannelRepository implementation

func (r *PostgresRepository) CreateNotificationChannel(ctx context.Context, ch *models.NotificationChannel) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ch.ID, ch.Name, string(ch.Type), ch.URL, string(eventsJSON), boolToInt(ch.Enabled), ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create notification_channel %s: %w", ch.ID, err)
	}
	return nil
}

func (r *PostgresRepository) GetNotificationChannel(ctx context.Context, id string) (*models.NotificationChannel, error) {
	var row channelRow
	if err := r.db.GetContext(ctx, &row,
		`SELECT id, name, type, url, events, enabled, created_at, updated_at FROM notification_channels WHERE id = $1`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification channel %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get notification_channel %s: %w", id, err)
	}
	ch := row.toModel()
	return &ch, nil
}

func (r *PostgresRepository) ListNotificationChannels(ctx context.Context) ([]models.NotificationChannel, error) {
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

func (r *PostgresRepository) UpdateNotificationChannel(ctx context.Context, ch *models.NotificationChannel) error {
	if ch == nil {
		return fmt.Errorf("channel is required")
	}
	eventsJSON, err := json.Marshal(ch.Events)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	ch.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE notification_channels SET name=$1, type=$2, url=$3, events=$4, enabled=$5, updated_at=$6
		WHERE id=$7
	`, ch.Name, string(ch.Type), ch.URL, string(eventsJSON), boolToInt(ch.Enabled), ch.UpdatedAt, ch.ID)
	if err != nil {
		return fmt.Errorf("update notification_channel %s: %w", ch.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification channel %s: %w", ch.ID, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) DeleteNotificationChannel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notification_channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification_channel %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification channel %s: %w", id, ErrNotFound)
	}
	return nil
}
