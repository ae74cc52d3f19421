package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casepulse/casepulse-backend/internal/models"
)

func spikeFixture(store *fakeCaseStore) *SpikeDetector {
	cfg := DefaultConfig()
	cfg.SpikeFactor = 1.5
	cfg.MinBaselineCount = 5
	return NewSpikeDetector(store, cfg, nil)
}

func TestSpikeDetector_FactorBoundaryIsStrict(t *testing.T) {
	store := newFakeCaseStore()
	store.baselineGroups = []models.GroupCount{
		{BusinessUnit: "Billing", Category: "Refunds", Count: 10},
	}

	// Exactly baseline * factor does not qualify.
	store.currentGroups = []models.GroupCount{
		{BusinessUnit: "Billing", Category: "Refunds", Count: 15},
	}
	results, err := spikeFixture(store).Detect(context.Background(), models.WindowDaily, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, results, "count equal to baseline*factor must not spike")

	// One past the boundary does.
	store.currentGroups[0].Count = 16
	results, err = spikeFixture(store).Detect(context.Background(), models.WindowDaily, fixedNow)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Billing", results[0].BusinessUnit)
	assert.Equal(t, "Refunds", results[0].Category)
	assert.Equal(t, 10, results[0].BaselineCount)
	assert.Equal(t, 16, results[0].CurrentCount)
	assert.InDelta(t, 60.0, results[0].PercentChange, 0.001)
	assert.Equal(t, models.AlertSeverityLow, results[0].Severity)
}

func TestSpikeDetector_MinimumBaselineGate(t *testing.T) {
	store := newFakeCaseStore()
	store.baselineGroups = []models.GroupCount{
		{BusinessUnit: "Claims", Category: "Auto", Count: 4},
	}
	store.currentGroups = []models.GroupCount{
		{BusinessUnit: "Claims", Category: "Auto", Count: 400},
	}

	results, err := spikeFixture(store).Detect(context.Background(), models.WindowDaily, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, results, "baseline below the minimum must be skipped however large the jump")
}

func TestSpikeDetector_GroupAbsentFromBaseline(t *testing.T) {
	store := newFakeCaseStore()
	store.currentGroups = []models.GroupCount{
		{BusinessUnit: "Claims", Category: "Storm", Count: 50},
	}

	results, err := spikeFixture(store).Detect(context.Background(), models.WindowDaily, fixedNow)
	require.NoError(t, err)
	assert.Empty(t, results, "group with no baseline rows defaults to zero and is gated out")
}

func TestSpikeDetector_SeverityBuckets(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		baseline int
		want     models.AlertSeverity
	}{
		{"exactly 200 percent is critical", 30, 10, models.AlertSeverityCritical},
		{"exactly 100 percent is high", 20, 10, models.AlertSeverityHigh},
		{"exactly 65 percent is medium", 33, 20, models.AlertSeverityMedium},
		{"below 65 percent is low", 16, 10, models.AlertSeverityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeCaseStore()
			store.baselineGroups = []models.GroupCount{{BusinessUnit: "Billing", Category: "Refunds", Count: tt.baseline}}
			store.currentGroups = []models.GroupCount{{BusinessUnit: "Billing", Category: "Refunds", Count: tt.current}}

			results, err := spikeFixture(store).Detect(context.Background(), models.WindowDaily, fixedNow)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.want, results[0].Severity)
		})
	}
}

func TestSpikeDetector_SortedByPercentChangeDescending(t *testing.T) {
	store := newFakeCaseStore()
	store.baselineGroups = []models.GroupCount{
		{BusinessUnit: "Billing", Category: "Refunds", Count: 10},
		{BusinessUnit: "Claims", Category: "Auto", Count: 10},
		{BusinessUnit: "Support", Category: "Login", Count: 10},
	}
	store.currentGroups = []models.GroupCount{
		{BusinessUnit: "Billing", Category: "Refunds", Count: 20},
		{BusinessUnit: "Claims", Category: "Auto", Count: 40},
		{BusinessUnit: "Support", Category: "Login", Count: 17},
	}

	results, err := spikeFixture(store).Detect(context.Background(), models.WindowDaily, fixedNow)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Claims", results[0].BusinessUnit)
	assert.Equal(t, "Billing", results[1].BusinessUnit)
	assert.Equal(t, "Support", results[2].BusinessUnit)
}

func TestSpikeDetector_StoreFailure(t *testing.T) {
	store := newFakeCaseStore()
	store.groupErr = errors.New("connection refused")

	_, err := spikeFixture(store).Detect(context.Background(), models.WindowDaily, fixedNow)
	require.Error(t, err)

	var dataErr *DataAccessError
	require.ErrorAs(t, err, &dataErr)
	assert.ErrorContains(t, err, "connection refused")
}

func TestSpikeDetector_DetectIsRepeatable(t *testing.T) {
	store := newFakeCaseStore()
	store.baselineGroups = []models.GroupCount{{BusinessUnit: "Billing", Category: "Refunds", Count: 10}}
	store.currentGroups = []models.GroupCount{{BusinessUnit: "Billing", Category: "Refunds", Count: 25}}

	d := spikeFixture(store)
	first, err := d.Detect(context.Background(), models.WindowDaily, fixedNow)
	require.NoError(t, err)
	second, err := d.Detect(context.Background(), models.WindowDaily, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, first, second, "the read phase must not change state between runs")
}
