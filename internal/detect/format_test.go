package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casepulse/casepulse-backend/internal/models"
)

func TestFormatAlert_Spike(t *testing.T) {
	alert, err := FormatAlert(models.AlertTypeSpike, models.WindowDaily, Result{
		BusinessUnit:  "Billing",
		Category:      "Refunds",
		BaselineCount: 10,
		CurrentCount:  25,
		PercentChange: 150,
		Severity:      models.AlertSeverityHigh,
	})
	require.NoError(t, err)

	assert.Equal(t, models.AlertTypeSpike, alert.Type)
	assert.Equal(t, models.AlertSeverityHigh, alert.Severity)
	assert.Equal(t, "Billing: Refunds +150% vs previous 24 hours", alert.Title)
	assert.Equal(t, "Billing", alert.BusinessUnit)
	require.NotNil(t, alert.Category)
	assert.Equal(t, "Refunds", *alert.Category)
	require.NotNil(t, alert.BaselineValue)
	assert.Equal(t, 10.0, *alert.BaselineValue)
	require.NotNil(t, alert.CurrentValue)
	assert.Equal(t, 25.0, *alert.CurrentValue)
	require.NotNil(t, alert.PercentageChange)
	assert.Equal(t, 150.0, *alert.PercentageChange)
	assert.Contains(t, alert.Description, "rose from 10 to 25")
}

func TestFormatAlert_SpikeWindowLabels(t *testing.T) {
	r := Result{BusinessUnit: "Billing", Category: "Refunds", BaselineCount: 10, CurrentCount: 25, PercentChange: 150}

	hourly, err := FormatAlert(models.AlertTypeSpike, models.WindowHourly, r)
	require.NoError(t, err)
	assert.Contains(t, hourly.Title, "vs previous 4 hours")

	weekly, err := FormatAlert(models.AlertTypeSpike, models.WindowWeekly, r)
	require.NoError(t, err)
	assert.Contains(t, weekly.Title, "vs previous 7 days")
	assert.Contains(t, weekly.Description, "over the last 7 days")
}

func TestFormatAlert_Threshold(t *testing.T) {
	alert, err := FormatAlert(models.AlertTypeThreshold, models.WindowDaily, Result{
		BusinessUnit:  "Billing",
		BaselineCount: 100,
		CurrentCount:  150,
		PercentChange: 50,
		Severity:      models.AlertSeverityMedium,
	})
	require.NoError(t, err)

	assert.Equal(t, "High volume: 150 cases in Billing", alert.Title)
	assert.Nil(t, alert.Category, "threshold findings cover the whole business unit")
	require.NotNil(t, alert.BaselineValue)
	assert.Equal(t, 100.0, *alert.BaselineValue)
	require.NotNil(t, alert.CurrentValue)
	assert.Equal(t, 150.0, *alert.CurrentValue)
	assert.Contains(t, alert.Description, "exceeding the threshold of 100 by 50")
}

func TestFormatAlert_Urgency(t *testing.T) {
	alert, err := FormatAlert(models.AlertTypeUrgency, models.WindowDaily, Result{
		BusinessUnit:    "Claims",
		CurrentCount:    3,
		MatchedKeywords: []string{"lawsuit", "urgent"},
		SampleCaseIDs:   []string{"c1", "c2"},
		Severity:        models.AlertSeverityCritical,
	})
	require.NoError(t, err)

	assert.Equal(t, "Urgent: 3 high-risk case(s) detected in Claims", alert.Title)
	assert.Contains(t, alert.Description, "keywords: lawsuit, urgent")
	assert.Contains(t, alert.Description, "Sample cases: c1, c2")
	assert.Nil(t, alert.Category)
	assert.Nil(t, alert.BaselineValue, "keyword findings carry no volume comparison")
	assert.Nil(t, alert.CurrentValue)
	assert.Nil(t, alert.PercentageChange)
}

func TestFormatAlert_Misclassification(t *testing.T) {
	alert, err := FormatAlert(models.AlertTypeMisclassification, models.WindowHourly, Result{
		BusinessUnit:    "Billing",
		CurrentCount:    4,
		MatchedKeywords: []string{"refund", "supervisor"},
		Severity:        models.AlertSeverityMedium,
	})
	require.NoError(t, err)

	assert.Equal(t, "Review needed: 4 potentially misclassified case(s) in Billing", alert.Title)
	assert.Contains(t, alert.Description, "may be misclassified")
	assert.NotContains(t, alert.Description, "Sample cases", "no sample line when there are no samples")
}

func TestFormatAlert_RejectsIncompleteResults(t *testing.T) {
	valid := Result{BusinessUnit: "Billing", Category: "Refunds", CurrentCount: 10, BaselineCount: 4}

	tests := []struct {
		name   string
		mutate func(Result) Result
		window models.TimeWindow
	}{
		{"empty business unit", func(r Result) Result { r.BusinessUnit = ""; return r }, models.WindowDaily},
		{"zero case count", func(r Result) Result { r.CurrentCount = 0; return r }, models.WindowDaily},
		{"spike without category", func(r Result) Result { r.Category = ""; return r }, models.WindowDaily},
		{"unknown window", func(r Result) Result { return r }, models.TimeWindow("monthly")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FormatAlert(models.AlertTypeSpike, tt.window, tt.mutate(valid))
			require.Error(t, err)

			var formatErr *FormatError
			assert.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestFormatAlerts_OneBadResultFailsTheBatch(t *testing.T) {
	results := []Result{
		{BusinessUnit: "Billing", Category: "Refunds", CurrentCount: 10, BaselineCount: 4},
		{BusinessUnit: "", Category: "Auto", CurrentCount: 9, BaselineCount: 4},
	}

	alerts, err := FormatAlerts(models.AlertTypeSpike, models.WindowDaily, results)
	require.Error(t, err)
	assert.Nil(t, alerts)
}

func TestFormatAlerts_EmptyInput(t *testing.T) {
	alerts, err := FormatAlerts(models.AlertTypeUrgency, models.WindowDaily, nil)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
