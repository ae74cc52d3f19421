package detect

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// ThresholdDetector reports business units whose current-period case
// count exceeds a fixed volume threshold, regardless of history.
type ThresholdDetector struct {
	store  CaseStore
	cfg    Config
	logger *slog.Logger
}

// NewThresholdDetector creates a threshold detector.
func NewThresholdDetector(store CaseStore, cfg Config, logger *slog.Logger) *ThresholdDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThresholdDetector{store: store, cfg: cfg, logger: logger}
}

func (d *ThresholdDetector) Name() string { return "threshold" }

func (d *ThresholdDetector) Type() models.AlertType { return models.AlertTypeThreshold }

// Detect counts the current period per business unit and compares each
// count against that unit's resolved threshold. A unit missing from
// both the override table and the window defaults fails the run with a
// ConfigurationError rather than silently passing everything.
func (d *ThresholdDetector) Detect(ctx context.Context, window models.TimeWindow, now time.Time) ([]Result, error) {
	bounds, err := BoundsFor(window, now)
	if err != nil {
		return nil, err
	}

	counts, err := d.store.CountCasesByBusinessUnit(ctx, bounds.CurrentStart, bounds.CurrentEnd)
	if err != nil {
		return nil, &DataAccessError{Op: "count current cases by business unit", Err: err}
	}

	var results []Result
	for _, c := range counts {
		threshold, err := d.cfg.ThresholdFor(c.BusinessUnit, window)
		if err != nil {
			return nil, err
		}
		if c.Count <= threshold {
			continue
		}

		ratio := float64(c.Count) / float64(threshold)
		results = append(results, Result{
			BusinessUnit:  c.BusinessUnit,
			BaselineCount: threshold,
			CurrentCount:  c.Count,
			PercentChange: (ratio - 1) * 100,
			Severity:      thresholdSeverity(ratio),
		})
	}

	// Two-key sort: severity first, then raw count. Remaining ties
	// break on unit name to keep run order stable.
	sort.Slice(results, func(i, j int) bool {
		ri, rj := severityRank(results[i].Severity), severityRank(results[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if results[i].CurrentCount != results[j].CurrentCount {
			return results[i].CurrentCount > results[j].CurrentCount
		}
		return results[i].BusinessUnit < results[j].BusinessUnit
	})
	return results, nil
}

// thresholdSeverity buckets the count-to-threshold ratio. Boundaries
// are inclusive on the left: exactly 3x is critical, exactly 1.5x is
// medium.
func thresholdSeverity(ratio float64) models.AlertSeverity {
	switch {
	case ratio >= 3:
		return models.AlertSeverityCritical
	case ratio >= 2:
		return models.AlertSeverityHigh
	case ratio >= 1.5:
		return models.AlertSeverityMedium
	default:
		return models.AlertSeverityLow
	}
}
