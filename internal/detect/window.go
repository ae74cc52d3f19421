package detect

import (
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// Bounds are the two half-open ranges a detection run compares. Both
// ranges are [start, end): a case created exactly at CurrentEnd belongs
// to the next run. BaselineEnd always equals CurrentStart, so the two
// periods tile with no gap and no overlap.
type Bounds struct {
	CurrentStart  time.Time
	CurrentEnd    time.Time
	BaselineStart time.Time
	BaselineEnd   time.Time
}

// BoundsFor anchors the window at now and works backwards: the current
// period ends at now, the baseline period immediately precedes it.
func BoundsFor(window models.TimeWindow, now time.Time) (Bounds, error) {
	spec, err := window.Spec()
	if err != nil {
		return Bounds{}, &ConfigurationError{Field: "window", Reason: err.Error()}
	}

	currentStart := now.Add(-spec.Current)
	return Bounds{
		CurrentStart:  currentStart,
		CurrentEnd:    now,
		BaselineStart: currentStart.Add(-spec.Baseline),
		BaselineEnd:   currentStart,
	}, nil
}

// Span is the length of the current period.
func (b Bounds) Span() time.Duration {
	return b.CurrentEnd.Sub(b.CurrentStart)
}
