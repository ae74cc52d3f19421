package models

import "time"

// TrendDirection describes which way a topic's volume is moving.
type TrendDirection string

const (
	TrendRising    TrendDirection = "rising"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// TrendingTopic is one scored (business unit, category) group from a
// trending analysis run. Rows are appended per run; readers pick the
// batch with the latest computed_at for a window.
type TrendingTopic struct {
	ID               string         `json:"id" db:"id"`
	Topic            string         `json:"topic" db:"topic"`
	BusinessUnit     string         `json:"business_unit" db:"business_unit"`
	Category         string         `json:"category" db:"category"`
	CurrentCount     int            `json:"current_count" db:"current_count"`
	BaselineCount    int            `json:"baseline_count" db:"baseline_count"`
	Direction        TrendDirection `json:"direction" db:"direction"`
	PercentageChange float64        `json:"percentage_change" db:"percentage_change"`
	TrendScore       float64        `json:"trend_score" db:"trend_score"`
	Window           TimeWindow     `json:"window" db:"time_window"`
	ComputedAt       time.Time      `json:"computed_at" db:"computed_at"`
}
