package detect

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// SpikeDetector compares per-(business unit, category) case volume in
// the current period against the immediately preceding baseline period
// and reports groups whose volume jumped past the configured factor.
type SpikeDetector struct {
	store  CaseStore
	cfg    Config
	logger *slog.Logger
}

// NewSpikeDetector creates a spike detector.
func NewSpikeDetector(store CaseStore, cfg Config, logger *slog.Logger) *SpikeDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpikeDetector{store: store, cfg: cfg, logger: logger}
}

func (d *SpikeDetector) Name() string { return "spike" }

func (d *SpikeDetector) Type() models.AlertType { return models.AlertTypeSpike }

// Detect runs the read phase: two grouped counts (current and baseline
// period, fetched in parallel), then a pure comparison pass.
func (d *SpikeDetector) Detect(ctx context.Context, window models.TimeWindow, now time.Time) ([]Result, error) {
	bounds, err := BoundsFor(window, now)
	if err != nil {
		return nil, err
	}

	var current, baseline []models.GroupCount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = d.store.CountCasesByGroup(gctx, bounds.CurrentStart, bounds.CurrentEnd)
		if err != nil {
			return &DataAccessError{Op: "count current cases by group", Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		baseline, err = d.store.CountCasesByGroup(gctx, bounds.BaselineStart, bounds.BaselineEnd)
		if err != nil {
			return &DataAccessError{Op: "count baseline cases by group", Err: err}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return d.compare(current, baseline), nil
}

// compare is pure: it sees only the two grouped-count slices. Groups
// present in the baseline but absent now never spike; groups absent
// from the baseline default to zero and are skipped by the minimum
// baseline gate.
func (d *SpikeDetector) compare(current, baseline []models.GroupCount) []Result {
	baselineByGroup := make(map[groupKey]int, len(baseline))
	for _, b := range baseline {
		baselineByGroup[groupKey{b.BusinessUnit, b.Category}] = b.Count
	}

	var results []Result
	for _, cur := range current {
		base := baselineByGroup[groupKey{cur.BusinessUnit, cur.Category}]
		if base < d.cfg.MinBaselineCount {
			continue
		}
		if float64(cur.Count) <= float64(base)*d.cfg.SpikeFactor {
			continue
		}

		pct := percentChange(cur.Count, base)
		results = append(results, Result{
			BusinessUnit:  cur.BusinessUnit,
			Category:      cur.Category,
			BaselineCount: base,
			CurrentCount:  cur.Count,
			PercentChange: pct,
			Severity:      spikeSeverity(pct),
		})
	}

	// Ties break on group name so repeated runs over unchanged data
	// produce the same order.
	sort.Slice(results, func(i, j int) bool {
		if results[i].PercentChange != results[j].PercentChange {
			return results[i].PercentChange > results[j].PercentChange
		}
		if results[i].BusinessUnit != results[j].BusinessUnit {
			return results[i].BusinessUnit < results[j].BusinessUnit
		}
		return results[i].Category < results[j].Category
	})
	return results
}

type groupKey struct {
	businessUnit string
	category     string
}

// percentChange is the relative growth from base to cur in percent.
// Callers guarantee base > 0 via the minimum baseline gate.
func percentChange(cur, base int) float64 {
	return float64(cur-base) / float64(base) * 100
}

// spikeSeverity buckets percentage growth. Boundaries are inclusive on
// the left: exactly 200% is critical, exactly 65% is medium.
func spikeSeverity(pct float64) models.AlertSeverity {
	switch {
	case pct >= 200:
		return models.AlertSeverityCritical
	case pct >= 100:
		return models.AlertSeverityHigh
	case pct >= 65:
		return models.AlertSeverityMedium
	default:
		return models.AlertSeverityLow
	}
}
