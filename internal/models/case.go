package models

import "time"

// CaseSeverity is the severity a case was classified with at intake.
type CaseSeverity string

const (
	CaseSeverityLow      CaseSeverity = "low"
	CaseSeverityMedium   CaseSeverity = "medium"
	CaseSeverityHigh     CaseSeverity = "high"
	CaseSeverityCritical CaseSeverity = "critical"
)

// Case represents a single call-center case as ingested upstream.
// The detection engine treats the case store as read-only input.
type Case struct {
	ID           string       `json:"id" db:"id"`
	BusinessUnit string       `json:"business_unit" db:"business_unit"`
	Category     string       `json:"category" db:"category"`
	Severity     CaseSeverity `json:"severity" db:"severity"`
	Summary      string       `json:"summary" db:"summary"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// BusinessUnitCount is a grouped case count for one business unit.
type BusinessUnitCount struct {
	BusinessUnit string `json:"business_unit" db:"business_unit"`
	Count        int    `json:"count" db:"count"`
}

// GroupCount is a grouped case count for one (business unit, category) pair.
type GroupCount struct {
	BusinessUnit string `json:"business_unit" db:"business_unit"`
	Category     string `json:"category" db:"category"`
	Count        int    `json:"count" db:"count"`
}
