package detect

import (
	"fmt"
	"math"
	"strings"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// FormatAlerts renders a detector's results into unsaved alert rows.
// One malformed result fails the whole batch: a detector either
// produces a complete set of well-formed alerts or none at all.
func FormatAlerts(alertType models.AlertType, window models.TimeWindow, results []Result) ([]*models.Alert, error) {
	alerts := make([]*models.Alert, 0, len(results))
	for _, r := range results {
		alert, err := FormatAlert(alertType, window, r)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// FormatAlert renders a single result. The returned alert has no ID,
// status or timestamps; the alert store assigns those on insert.
func FormatAlert(alertType models.AlertType, window models.TimeWindow, r Result) (*models.Alert, error) {
	if r.BusinessUnit == "" {
		return nil, &FormatError{AlertType: string(alertType), Reason: "empty business unit"}
	}
	if r.CurrentCount <= 0 {
		return nil, &FormatError{AlertType: string(alertType), Reason: "non-positive case count"}
	}
	spec, err := window.Spec()
	if err != nil {
		return nil, &FormatError{AlertType: string(alertType), Reason: err.Error()}
	}

	switch alertType {
	case models.AlertTypeSpike:
		return formatSpike(spec, r)
	case models.AlertTypeThreshold:
		return formatThreshold(spec, r)
	case models.AlertTypeUrgency:
		return formatUrgency(r)
	case models.AlertTypeMisclassification:
		return formatMisclassification(r)
	}
	return nil, &FormatError{AlertType: string(alertType), Reason: "unknown alert type"}
}

func formatSpike(spec models.WindowSpec, r Result) (*models.Alert, error) {
	if r.Category == "" {
		return nil, &FormatError{AlertType: string(models.AlertTypeSpike), Reason: "empty category"}
	}

	pct := math.Round(r.PercentChange)
	category := r.Category
	return &models.Alert{
		Type:             models.AlertTypeSpike,
		Severity:         r.Severity,
		Title:            fmt.Sprintf("%s: %s +%.0f%% %s", r.BusinessUnit, r.Category, pct, spec.Label),
		Description:      fmt.Sprintf("Case volume for %s in %s rose from %d to %d over the last %s (+%.0f%% %s).", r.Category, r.BusinessUnit, r.BaselineCount, r.CurrentCount, humanSpan(spec), pct, spec.Label),
		BusinessUnit:     r.BusinessUnit,
		Category:         &category,
		BaselineValue:    floatPtr(float64(r.BaselineCount)),
		CurrentValue:     floatPtr(float64(r.CurrentCount)),
		PercentageChange: floatPtr(r.PercentChange),
	}, nil
}

func formatThreshold(spec models.WindowSpec, r Result) (*models.Alert, error) {
	excess := r.CurrentCount - r.BaselineCount
	return &models.Alert{
		Type:             models.AlertTypeThreshold,
		Severity:         r.Severity,
		Title:            fmt.Sprintf("High volume: %d cases in %s", r.CurrentCount, r.BusinessUnit),
		Description:      fmt.Sprintf("%s logged %d cases in the last %s, exceeding the threshold of %d by %d (+%.0f%% over the limit).", r.BusinessUnit, r.CurrentCount, humanSpan(spec), r.BaselineCount, excess, math.Round(r.PercentChange)),
		BusinessUnit:     r.BusinessUnit,
		BaselineValue:    floatPtr(float64(r.BaselineCount)),
		CurrentValue:     floatPtr(float64(r.CurrentCount)),
		PercentageChange: floatPtr(r.PercentChange),
	}, nil
}

func formatUrgency(r Result) (*models.Alert, error) {
	desc := fmt.Sprintf("%d high or critical severity case(s) in %s mention urgent language (keywords: %s).",
		r.CurrentCount, r.BusinessUnit, strings.Join(r.MatchedKeywords, ", "))
	if len(r.SampleCaseIDs) > 0 {
		desc += " Sample cases: " + strings.Join(r.SampleCaseIDs, ", ") + "."
	}
	return &models.Alert{
		Type:         models.AlertTypeUrgency,
		Severity:     r.Severity,
		Title:        fmt.Sprintf("Urgent: %d high-risk case(s) detected in %s", r.CurrentCount, r.BusinessUnit),
		Description:  desc,
		BusinessUnit: r.BusinessUnit,
	}, nil
}

func formatMisclassification(r Result) (*models.Alert, error) {
	desc := fmt.Sprintf("%d low or medium severity case(s) in %s contain urgent language (keywords: %s) and may be misclassified.",
		r.CurrentCount, r.BusinessUnit, strings.Join(r.MatchedKeywords, ", "))
	if len(r.SampleCaseIDs) > 0 {
		desc += " Sample cases: " + strings.Join(r.SampleCaseIDs, ", ") + "."
	}
	return &models.Alert{
		Type:         models.AlertTypeMisclassification,
		Severity:     r.Severity,
		Title:        fmt.Sprintf("Review needed: %d potentially misclassified case(s) in %s", r.CurrentCount, r.BusinessUnit),
		Description:  desc,
		BusinessUnit: r.BusinessUnit,
	}, nil
}

// humanSpan renders a window's current period for descriptions,
// e.g. "4 hours" or "7 days".
func humanSpan(spec models.WindowSpec) string {
	hours := int(spec.Current.Hours())
	if hours%24 == 0 && hours >= 48 {
		return fmt.Sprintf("%d days", hours/24)
	}
	return fmt.Sprintf("%d hours", hours)
}

func floatPtr(v float64) *float64 { return &v }
