package models

import (
	"fmt"
	"time"
)

// TimeWindow names the analysis window a detection or trending run covers.
type TimeWindow string

const (
	WindowHourly TimeWindow = "hourly"
	WindowDaily  TimeWindow = "daily"
	WindowWeekly TimeWindow = "weekly"
)

// WindowSpec describes the durations behind a TimeWindow. The baseline
// period always immediately precedes the current period with no gap and
// no overlap, and both span the same duration.
type WindowSpec struct {
	Current  time.Duration
	Baseline time.Duration
	// Label is the human comparison phrase used in alert titles,
	// e.g. "vs previous 4 hours".
	Label string
}

var windowSpecs = map[TimeWindow]WindowSpec{
	WindowHourly: {Current: 4 * time.Hour, Baseline: 4 * time.Hour, Label: "vs previous 4 hours"},
	WindowDaily:  {Current: 24 * time.Hour, Baseline: 24 * time.Hour, Label: "vs previous 24 hours"},
	WindowWeekly: {Current: 168 * time.Hour, Baseline: 168 * time.Hour, Label: "vs previous 7 days"},
}

// Spec returns the durations and label for w.
func (w TimeWindow) Spec() (WindowSpec, error) {
	spec, ok := windowSpecs[w]
	if !ok {
		return WindowSpec{}, fmt.Errorf("unknown time window %q", w)
	}
	return spec, nil
}

// Valid reports whether w is a recognised window name.
func (w TimeWindow) Valid() bool {
	_, ok := windowSpecs[w]
	return ok
}

// ParseTimeWindow converts a request string into a TimeWindow.
func ParseTimeWindow(s string) (TimeWindow, error) {
	w := TimeWindow(s)
	if !w.Valid() {
		return "", fmt.Errorf("unknown time window %q (want hourly, daily or weekly)", s)
	}
	return w, nil
}
