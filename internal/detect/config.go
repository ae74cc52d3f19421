package detect

import (
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// Config carries every tunable of the detection engine. The engine
// copies it at construction; changing a Config after NewEngine has no
// effect on a running engine.
type Config struct {
	// SpikeFactor is the multiplier the current count must exceed the
	// baseline by before a spike is reported. 1.5 means +50%.
	SpikeFactor float64
	// MinBaselineCount gates spike detection: groups whose baseline
	// count is below it are skipped so new or tiny categories don't
	// produce runaway percentages.
	MinBaselineCount int
	// MinCaseCount is the minimum number of keyword-matching cases a
	// business unit needs before the keyword detectors report it.
	MinCaseCount int
	// MaxSampleCases caps the sample case IDs attached to a finding.
	MaxSampleCases int
	// DetectorTimeout bounds each detector's run; zero means no limit.
	DetectorTimeout time.Duration

	// DefaultThresholds maps window to the volume threshold applied to
	// every business unit without an override.
	DefaultThresholds map[models.TimeWindow]int
	// ThresholdOverrides maps business unit to per-window thresholds.
	// An override wins even when it is lower than the default.
	ThresholdOverrides map[string]map[models.TimeWindow]int

	// UrgencyKeywords is scanned against high and critical severity
	// cases; MisclassificationKeywords, a broader list, against low and
	// medium severity cases.
	UrgencyKeywords           []string
	MisclassificationKeywords []string
}

// DefaultConfig returns the shipped defaults. Deployments normally
// layer config-file or environment overrides on top via the config
// package.
func DefaultConfig() Config {
	return Config{
		SpikeFactor:      1.5,
		MinBaselineCount: 5,
		MinCaseCount:     1,
		MaxSampleCases:   5,
		DetectorTimeout:  30 * time.Second,
		DefaultThresholds: map[models.TimeWindow]int{
			models.WindowHourly: 50,
			models.WindowDaily:  100,
			models.WindowWeekly: 500,
		},
		ThresholdOverrides: map[string]map[models.TimeWindow]int{},
		UrgencyKeywords: []string{
			"urgent", "immediately", "asap", "emergency", "critical",
			"lawsuit", "attorney", "lawyer", "legal action",
			"death", "fatality", "injury", "hospital",
			"escalate", "escalation",
		},
		MisclassificationKeywords: []string{
			"urgent", "immediately", "asap", "emergency", "critical",
			"lawsuit", "attorney", "lawyer", "legal action",
			"death", "fatality", "injury", "hospital",
			"escalate", "escalation", "complaint", "supervisor",
			"manager", "refund", "unacceptable", "furious",
		},
	}
}

// Validate rejects configurations that would make detector behaviour
// undefined.
func (c Config) Validate() error {
	if c.SpikeFactor <= 1.0 {
		return &ConfigurationError{Field: "SpikeFactor", Reason: "must be greater than 1.0"}
	}
	if c.MinBaselineCount < 1 {
		return &ConfigurationError{Field: "MinBaselineCount", Reason: "must be at least 1"}
	}
	if c.MinCaseCount < 1 {
		return &ConfigurationError{Field: "MinCaseCount", Reason: "must be at least 1"}
	}
	if c.MaxSampleCases < 0 {
		return &ConfigurationError{Field: "MaxSampleCases", Reason: "must not be negative"}
	}
	for w, threshold := range c.DefaultThresholds {
		if !w.Valid() {
			return &ConfigurationError{Field: "DefaultThresholds", Reason: "unknown window " + string(w)}
		}
		if threshold < 1 {
			return &ConfigurationError{Field: "DefaultThresholds", Reason: "threshold for " + string(w) + " must be positive"}
		}
	}
	for bu, per := range c.ThresholdOverrides {
		for w, threshold := range per {
			if !w.Valid() {
				return &ConfigurationError{Field: "ThresholdOverrides", Reason: "unknown window " + string(w) + " for " + bu}
			}
			if threshold < 1 {
				return &ConfigurationError{Field: "ThresholdOverrides", Reason: "threshold for " + bu + " must be positive"}
			}
		}
	}
	if len(c.UrgencyKeywords) == 0 {
		return &ConfigurationError{Field: "UrgencyKeywords", Reason: "must not be empty"}
	}
	if len(c.MisclassificationKeywords) == 0 {
		return &ConfigurationError{Field: "MisclassificationKeywords", Reason: "must not be empty"}
	}
	return nil
}

// ThresholdFor resolves the volume threshold for a business unit and
// window. Overrides take precedence over the window default even when
// lower. Missing both is a configuration error, never a silent zero.
func (c Config) ThresholdFor(businessUnit string, window models.TimeWindow) (int, error) {
	if per, ok := c.ThresholdOverrides[businessUnit]; ok {
		if threshold, ok := per[window]; ok {
			return threshold, nil
		}
	}
	if threshold, ok := c.DefaultThresholds[window]; ok {
		return threshold, nil
	}
	return 0, &ConfigurationError{
		Field:  "DefaultThresholds",
		Reason: "no threshold configured for window " + string(window),
	}
}

// clone deep-copies c so the engine's view cannot be mutated by the caller.
func (c Config) clone() Config {
	out := c
	out.DefaultThresholds = make(map[models.TimeWindow]int, len(c.DefaultThresholds))
	for w, t := range c.DefaultThresholds {
		out.DefaultThresholds[w] = t
	}
	out.ThresholdOverrides = make(map[string]map[models.TimeWindow]int, len(c.ThresholdOverrides))
	for bu, per := range c.ThresholdOverrides {
		inner := make(map[models.TimeWindow]int, len(per))
		for w, t := range per {
			inner[w] = t
		}
		out.ThresholdOverrides[bu] = inner
	}
	out.UrgencyKeywords = append([]string(nil), c.UrgencyKeywords...)
	out.MisclassificationKeywords = append([]string(nil), c.MisclassificationKeywords...)
	return out
}
