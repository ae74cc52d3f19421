package detect

import (
	"context"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// CaseStore is the read-only slice of the repository the detectors
// aggregate over. Both SQLite and Postgres repositories satisfy it.
type CaseStore interface {
	CountCasesByBusinessUnit(ctx context.Context, start, end time.Time) ([]models.BusinessUnitCount, error)
	CountCasesByGroup(ctx context.Context, start, end time.Time) ([]models.GroupCount, error)
	ListCasesBySeverity(ctx context.Context, start, end time.Time, severities []models.CaseSeverity) ([]*models.Case, error)
}

// Result is one detection finding before formatting. Fields that don't
// apply to a detector stay at their zero value: keyword detectors have
// no baseline, count detectors no matched keywords.
type Result struct {
	BusinessUnit    string
	Category        string
	BaselineCount   int
	CurrentCount    int
	PercentChange   float64
	MatchedKeywords []string
	SampleCaseIDs   []string
	Severity        models.AlertSeverity
}

// Detector is one detection algorithm. Detect is a pure read phase: it
// never writes, so running it twice over unchanged data yields the same
// findings. The reference time is passed in so every detector of a run
// sees identical window bounds.
type Detector interface {
	Name() string
	Type() models.AlertType
	Detect(ctx context.Context, window models.TimeWindow, now time.Time) ([]Result, error)
}

// severityRank orders severities for sorting; higher is more severe.
func severityRank(s models.AlertSeverity) int {
	switch s {
	case models.AlertSeverityCritical:
		return 4
	case models.AlertSeverityHigh:
		return 3
	case models.AlertSeverityMedium:
		return 2
	case models.AlertSeverityLow:
		return 1
	}
	return 0
}
