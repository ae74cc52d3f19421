package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// TrendingRepository implementation. Each analysis run appends one
// batch of rows sharing a computed_at timestamp; readers take the
// latest batch for a window.

// CreateTrendingTopics appends one batch of topics in a single transaction.
func (r *SQLiteRepository) CreateTrendingTopics(ctx context.Context, topics []*models.TrendingTopic) error {
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
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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

// ListTrendingTopics returns the latest computed batch for a window,
// highest trend score first.
func (r *SQLiteRepository) ListTrendingTopics(ctx context.Context, window models.TimeWindow, limit int) ([]*models.TrendingTopic, error) {
	query := `
		SELECT * FROM trending_topics
		WHERE time_window = ?
		  AND computed_at = (SELECT MAX(computed_at) FROM trending_topics WHERE time_window = ?)
		ORDER BY trend_score DESC
	`
	args := []interface{}{string(window), string(window)}
	if limit > 0 {
		query += " LIMIT ?"
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
