package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// AlertRepository implementation. Alerts are append-only: the engine
// inserts fresh rows per run and never updates or deduplicates. Only
// the status column changes afterwards, driven by operators.

// CreateAlerts inserts a batch of alerts in a single transaction.
// IDs and the initial "active" status are assigned here when absent.
func (r *SQLiteRepository) CreateAlerts(ctx context.Context, alerts []*models.Alert) error {
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
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

// GetAlert returns one alert by id.
func (r *SQLiteRepository) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	var alert models.Alert
	query := `SELECT * FROM alerts WHERE id = ?`

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

// ListAlerts returns alerts matching filter, newest first.
func (r *SQLiteRepository) ListAlerts(ctx context.Context, filter models.AlertFilter) ([]*models.Alert, error) {
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.BusinessUnit != "" {
		conds = append(conds, "business_unit = ?")
		args = append(args, filter.BusinessUnit)
	}

	query := `SELECT * FROM alerts`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
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

// UpdateAlertStatus transitions an alert to status and returns the
// updated row.
func (r *SQLiteRepository) UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus) (*models.Alert, error) {
	if !models.ValidAlertStatus(status) {
		return nil, fmt.Errorf("invalid alert status %q", status)
	}

	err := instrumentQuery("update_alert_status", func() error {
		res, execErr := r.db.ExecContext(ctx,
			`UPDATE alerts SET status = ?, updated_at = ? WHERE id = ?`,
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
