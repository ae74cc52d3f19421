package detect

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// urgencyCriticalKeywords escalate an urgency finding to critical on a
// single match, regardless of volume.
var urgencyCriticalKeywords = map[string]struct{}{
	"death":     {},
	"fatality":  {},
	"lawsuit":   {},
	"attorney":  {},
	"emergency": {},
}

// UrgencyDetector scans high and critical severity cases for urgent
// language and reports business units accumulating such cases.
type UrgencyDetector struct {
	store   CaseStore
	cfg     Config
	matcher Matcher
	logger  *slog.Logger
}

// NewUrgencyDetector creates an urgency detector scanning with the
// configured urgency keyword list.
func NewUrgencyDetector(store CaseStore, cfg Config, logger *slog.Logger) *UrgencyDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &UrgencyDetector{
		store:   store,
		cfg:     cfg,
		matcher: NewSubstringMatcher(cfg.UrgencyKeywords),
		logger:  logger,
	}
}

func (d *UrgencyDetector) Name() string { return "urgency" }

func (d *UrgencyDetector) Type() models.AlertType { return models.AlertTypeUrgency }

// Detect lists qualifying cases in the current period and folds them
// into one finding per business unit: union of matched keywords plus a
// capped sample of case IDs.
func (d *UrgencyDetector) Detect(ctx context.Context, window models.TimeWindow, now time.Time) ([]Result, error) {
	bounds, err := BoundsFor(window, now)
	if err != nil {
		return nil, err
	}

	cases, err := d.store.ListCasesBySeverity(ctx, bounds.CurrentStart, bounds.CurrentEnd,
		[]models.CaseSeverity{models.CaseSeverityHigh, models.CaseSeverityCritical})
	if err != nil {
		return nil, &DataAccessError{Op: "list high severity cases", Err: err}
	}

	groups := make(map[string]*keywordGroup)
	for _, c := range cases {
		matched := d.matcher.Match(c.Summary)
		if len(matched) == 0 {
			continue
		}
		g := groups[c.BusinessUnit]
		if g == nil {
			g = newKeywordGroup()
			groups[c.BusinessUnit] = g
		}
		g.add(c.ID, matched, d.cfg.MaxSampleCases)
	}

	var results []Result
	for bu, g := range groups {
		if g.caseCount < d.cfg.MinCaseCount {
			continue
		}
		results = append(results, Result{
			BusinessUnit:    bu,
			CurrentCount:    g.caseCount,
			MatchedKeywords: g.keywords(),
			SampleCaseIDs:   g.samples,
			Severity:        urgencySeverity(g),
		})
	}

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

// urgencySeverity is critical when the unit accumulated five or more
// urgent cases, or any single case touched a critical keyword.
func urgencySeverity(g *keywordGroup) models.AlertSeverity {
	if g.caseCount >= 5 {
		return models.AlertSeverityCritical
	}
	for kw := range g.keywordSet {
		if _, critical := urgencyCriticalKeywords[kw]; critical {
			return models.AlertSeverityCritical
		}
	}
	return models.AlertSeverityHigh
}

// keywordGroup accumulates one business unit's keyword-matching cases.
type keywordGroup struct {
	caseCount  int
	keywordSet map[string]struct{}
	ordered    []string
	samples    []string
}

func newKeywordGroup() *keywordGroup {
	return &keywordGroup{keywordSet: make(map[string]struct{})}
}

func (g *keywordGroup) add(caseID string, matched []string, maxSamples int) {
	g.caseCount++
	for _, kw := range matched {
		if _, seen := g.keywordSet[kw]; !seen {
			g.keywordSet[kw] = struct{}{}
			g.ordered = append(g.ordered, kw)
		}
	}
	if len(g.samples) < maxSamples {
		g.samples = append(g.samples, caseID)
	}
}

// keywords returns the union of matched keywords in first-seen order.
func (g *keywordGroup) keywords() []string {
	return append([]string(nil), g.ordered...)
}
