package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// SQLiteRepository implements repositories using SQLite
type SQLiteRepository struct {
	db *sqlx.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// Enable foreign keys and WAL so concurrent readers don't block the writer
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// RunMigrations runs database migrations
func (r *SQLiteRepository) RunMigrations(migrationSQL string) error {
	_, err := r.db.Exec(migrationSQL)
	return err
}

// Ping verifies database connectivity
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CaseRepository implementation. Cases are written by the ingestion
// pipeline; this side only aggregates them. All ranges are half-open
// [start, end).

func (r *SQLiteRepository) CountCasesByBusinessUnit(ctx context.Context, start, end time.Time) ([]models.BusinessUnitCount, error) {
	counts := []models.BusinessUnitCount{}
	query := `
		SELECT business_unit, COUNT(*) AS count
		FROM cases
		WHERE created_at >= ? AND created_at < ?
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

func (r *SQLiteRepository) CountCasesByGroup(ctx context.Context, start, end time.Time) ([]models.GroupCount, error) {
	counts := []models.GroupCount{}
	query := `
		SELECT business_unit, category, COUNT(*) AS count
		FROM cases
		WHERE created_at >= ? AND created_at < ?
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

func (r *SQLiteRepository) ListCasesBySeverity(ctx context.Context, start, end time.Time, severities []models.CaseSeverity) ([]*models.Case, error) {
	if len(severities) == 0 {
		return []*models.Case{}, nil
	}

	placeholders := make([]string, len(severities))
	args := []interface{}{start, end}
	for i, s := range severities {
		placeholders[i] = "?"
		args = append(args, string(s))
	}
	query := fmt.Sprintf(`
		SELECT id, business_unit, category, severity, summary, created_at
		FROM cases
		WHERE created_at >= ? AND created_at < ? AND severity IN (%s)
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
