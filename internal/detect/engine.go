package detect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/pkg/metrics"
)

// Engine owns the detector set and runs it as one unit over a window.
// Detectors are isolated from each other: a failure in one is recorded
// in the run report and never stops or cancels its siblings.
type Engine struct {
	cfg       Config
	logger    *slog.Logger
	detectors []Detector
}

// NewEngine validates cfg and wires the standard detector set against
// store. The config is deep-copied so callers mutating their maps after
// construction cannot change a running engine.
func NewEngine(store CaseStore, cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.clone()
	return &Engine{
		cfg:    cfg,
		logger: logger,
		detectors: []Detector{
			NewSpikeDetector(store, cfg, logger),
			NewThresholdDetector(store, cfg, logger),
			NewUrgencyDetector(store, cfg, logger),
			NewMisclassificationDetector(store, cfg, logger),
		},
	}, nil
}

// DetectorNames lists the wired detectors in run order.
func (e *Engine) DetectorNames() []string {
	names := make([]string, len(e.detectors))
	for i, d := range e.detectors {
		names[i] = d.Name()
	}
	return names
}

// DetectorOutcome is one detector's share of a run: either a formatted
// alert batch or the error that stopped it.
type DetectorOutcome struct {
	Detector string
	Type     models.AlertType
	Alerts   []*models.Alert
	Err      error
	Duration time.Duration
}

// RunReport is the result of running every detector over one window.
type RunReport struct {
	Window    models.TimeWindow
	StartedAt time.Time
	Outcomes  []DetectorOutcome
}

// Alerts flattens the successful outcomes in detector run order.
func (r *RunReport) Alerts() []*models.Alert {
	var alerts []*models.Alert
	for _, o := range r.Outcomes {
		alerts = append(alerts, o.Alerts...)
	}
	return alerts
}

// Failed returns the outcomes that ended in an error.
func (r *RunReport) Failed() []DetectorOutcome {
	var failed []DetectorOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// RunAll executes every detector concurrently over the given window and
// reference time. The report always has one outcome per detector.
func (e *Engine) RunAll(ctx context.Context, window models.TimeWindow, now time.Time) (*RunReport, error) {
	return e.Run(ctx, window, now)
}

// Run executes the named detectors concurrently; with no names it runs
// all of them. All selected detectors see the same now, so their period
// bounds line up exactly. Nothing is persisted: the report carries
// formatted but unsaved alerts, which also makes Run the dry-run path.
func (e *Engine) Run(ctx context.Context, window models.TimeWindow, now time.Time, names ...string) (*RunReport, error) {
	if !window.Valid() {
		return nil, &ConfigurationError{Field: "window", Reason: "unknown time window " + string(window)}
	}
	selected, err := e.selectDetectors(names)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		Window:    window,
		StartedAt: now,
		Outcomes:  make([]DetectorOutcome, len(selected)),
	}

	var wg sync.WaitGroup
	for i, d := range selected {
		wg.Add(1)
		go func(i int, d Detector) {
			defer wg.Done()
			report.Outcomes[i] = e.runOne(ctx, d, window, now)
		}(i, d)
	}
	wg.Wait()

	for _, o := range report.Outcomes {
		if o.Err != nil {
			e.logger.Error("detector failed", "detector", o.Detector, "window", window, "error", o.Err)
			continue
		}
		e.logger.Info("detector finished", "detector", o.Detector, "window", window, "alerts", len(o.Alerts), "duration", o.Duration)
	}
	return report, nil
}

// selectDetectors resolves a name filter against the wired set,
// preserving run order. An unknown name is a configuration error.
func (e *Engine) selectDetectors(names []string) ([]Detector, error) {
	if len(names) == 0 {
		return e.detectors, nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	var selected []Detector
	for _, d := range e.detectors {
		if _, ok := wanted[d.Name()]; ok {
			selected = append(selected, d)
			delete(wanted, d.Name())
		}
	}
	for n := range wanted {
		return nil, &ConfigurationError{Field: "detectors", Reason: "unknown detector " + n}
	}
	return selected, nil
}

// runOne runs a single detector under its own timeout and formats its
// findings. Detection and formatting failures land in the outcome, not
// in a returned error, so one bad detector cannot sink the run.
func (e *Engine) runOne(ctx context.Context, d Detector, window models.TimeWindow, now time.Time) DetectorOutcome {
	outcome := DetectorOutcome{Detector: d.Name(), Type: d.Type()}

	if e.cfg.DetectorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.DetectorTimeout)
		defer cancel()
	}

	start := time.Now()
	results, err := d.Detect(ctx, window, now)
	if err == nil {
		outcome.Alerts, err = FormatAlerts(d.Type(), window, results)
	}
	outcome.Duration = time.Since(start)
	outcome.Err = err

	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.DetectionRunsTotal.WithLabelValues(d.Name(), result).Inc()
	metrics.DetectionRunDurationSeconds.WithLabelValues(d.Name()).Observe(outcome.Duration.Seconds())
	return outcome
}
