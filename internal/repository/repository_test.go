package repository

import (
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/migrations"
)

// newTestStore opens a fresh SQLite database with the full schema
// applied. The file lives in the test's temp dir and goes away with it.
func newTestStore(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "casepulse_test.db"))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	for _, name := range names {
		sql, err := migrations.FS.ReadFile(name)
		if err != nil {
			t.Fatalf("Failed to read migration %s: %v", name, err)
		}
		if err := repo.RunMigrations(string(sql)); err != nil {
			t.Fatalf("Failed to run migration %s: %v", name, err)
		}
	}
	return repo
}

// insertCase writes a case row directly; the repository itself has no
// case writes because ingestion happens upstream.
func insertCase(t *testing.T, repo *SQLiteRepository, id, unit, category string, severity models.CaseSeverity, summary string, createdAt time.Time) {
	t.Helper()
	_, err := repo.db.Exec(
		`INSERT INTO cases (id, business_unit, category, severity, summary, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, unit, category, string(severity), summary, createdAt,
	)
	if err != nil {
		t.Fatalf("Failed to insert case %s: %v", id, err)
	}
}

func fptr(v float64) *float64 { return &v }
func sptr(v string) *string   { return &v }
