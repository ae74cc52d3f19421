package detect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// fixedNow anchors every detector test so window bounds are exact.
var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// fakeCaseStore returns canned aggregates. Grouped counts are picked by
// range end: the current period ends at now, anything else is treated
// as the baseline period. ListCasesBySeverity filters the canned cases
// by severity and created_at like the real store does.
type fakeCaseStore struct {
	now time.Time

	unitCounts []models.BusinessUnitCount
	unitErr    error

	currentGroups  []models.GroupCount
	baselineGroups []models.GroupCount
	groupErr       error

	cases    []*models.Case
	casesErr error

	requestedSeverities [][]models.CaseSeverity
}

func newFakeCaseStore() *fakeCaseStore {
	return &fakeCaseStore{now: fixedNow}
}

func (f *fakeCaseStore) CountCasesByBusinessUnit(_ context.Context, _, _ time.Time) ([]models.BusinessUnitCount, error) {
	if f.unitErr != nil {
		return nil, f.unitErr
	}
	return f.unitCounts, nil
}

func (f *fakeCaseStore) CountCasesByGroup(_ context.Context, _, end time.Time) ([]models.GroupCount, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	if end.Equal(f.now) {
		return f.currentGroups, nil
	}
	return f.baselineGroups, nil
}

func (f *fakeCaseStore) ListCasesBySeverity(_ context.Context, start, end time.Time, severities []models.CaseSeverity) ([]*models.Case, error) {
	if f.casesErr != nil {
		return nil, f.casesErr
	}
	f.requestedSeverities = append(f.requestedSeverities, severities)

	want := make(map[models.CaseSeverity]struct{}, len(severities))
	for _, s := range severities {
		want[s] = struct{}{}
	}
	var out []*models.Case
	for _, c := range f.cases {
		if _, ok := want[c.Severity]; !ok {
			continue
		}
		if c.CreatedAt.Before(start) || !c.CreatedAt.Before(end) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// mkCase builds a case inside the current period of fixedNow.
func mkCase(id, businessUnit string, severity models.CaseSeverity, summary string) *models.Case {
	return &models.Case{
		ID:           id,
		BusinessUnit: businessUnit,
		Category:     "General",
		Severity:     severity,
		Summary:      summary,
		CreatedAt:    fixedNow.Add(-time.Hour),
	}
}

func TestBoundsFor_PeriodsTileExactly(t *testing.T) {
	for _, window := range []models.TimeWindow{models.WindowHourly, models.WindowDaily, models.WindowWeekly} {
		bounds, err := BoundsFor(window, fixedNow)
		require.NoError(t, err, "window %s", window)

		assert.True(t, bounds.CurrentEnd.Equal(fixedNow), "window %s: current period must end at now", window)
		assert.True(t, bounds.BaselineEnd.Equal(bounds.CurrentStart), "window %s: baseline must end where current starts", window)
		assert.Equal(t, bounds.CurrentEnd.Sub(bounds.CurrentStart), bounds.BaselineEnd.Sub(bounds.BaselineStart),
			"window %s: both periods must span the same duration", window)
	}
}

func TestBoundsFor_DailySpansTwentyFourHours(t *testing.T) {
	bounds, err := BoundsFor(models.WindowDaily, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, bounds.Span())
	assert.True(t, bounds.CurrentStart.Equal(fixedNow.Add(-24*time.Hour)))
	assert.True(t, bounds.BaselineStart.Equal(fixedNow.Add(-48*time.Hour)))
}

func TestBoundsFor_UnknownWindow(t *testing.T) {
	_, err := BoundsFor(models.TimeWindow("monthly"), fixedNow)
	require.Error(t, err)

	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
