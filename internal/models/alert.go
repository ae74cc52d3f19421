package models

import "time"

// AlertType identifies which detector produced an alert.
type AlertType string

const (
	AlertTypeSpike             AlertType = "spike"
	AlertTypeThreshold         AlertType = "threshold"
	AlertTypeUrgency           AlertType = "urgency"
	AlertTypeMisclassification AlertType = "misclassification"
)

// AlertSeverity grades how serious a finding is.
type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "low"
	AlertSeverityMedium   AlertSeverity = "medium"
	AlertSeverityHigh     AlertSeverity = "high"
	AlertSeverityCritical AlertSeverity = "critical"
)

// AlertStatus tracks the operator-facing lifecycle of an alert.
// The engine always writes "active"; transitions happen through the API.
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "active"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusDismissed    AlertStatus = "dismissed"
)

// ValidAlertStatus reports whether s is a recognised alert status.
func ValidAlertStatus(s AlertStatus) bool {
	switch s {
	case AlertStatusActive, AlertStatusAcknowledged, AlertStatusResolved, AlertStatusDismissed:
		return true
	}
	return false
}

// Alert is a persisted detection finding. Numeric context fields are
// pointers because not every detector produces them: keyword detectors
// have no baseline/current counts to report.
type Alert struct {
	ID               string        `json:"id" db:"id"`
	Type             AlertType     `json:"type" db:"type"`
	Severity         AlertSeverity `json:"severity" db:"severity"`
	Title            string        `json:"title" db:"title"`
	Description      string        `json:"description" db:"description"`
	BusinessUnit     string        `json:"business_unit" db:"business_unit"`
	Category         *string       `json:"category,omitempty" db:"category"`
	BaselineValue    *float64      `json:"baseline_value,omitempty" db:"baseline_value"`
	CurrentValue     *float64      `json:"current_value,omitempty" db:"current_value"`
	PercentageChange *float64      `json:"percentage_change,omitempty" db:"percentage_change"`
	Status           AlertStatus   `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// AlertFilter narrows alert listings. Zero values mean "no constraint".
type AlertFilter struct {
	Status       AlertStatus
	Severity     AlertSeverity
	Type         AlertType
	BusinessUnit string
	Limit        int
}
