package detect

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// misclassificationHighKeywords raise a misclassification finding to
// high on a single match. Broader than the urgency critical set: a
// low-severity case mentioning an injury is mislabelled almost by
// definition.
var misclassificationHighKeywords = map[string]struct{}{
	"death":     {},
	"fatality":  {},
	"lawsuit":   {},
	"attorney":  {},
	"emergency": {},
	"injury":    {},
}

// MisclassificationDetector scans low and medium severity cases for
// urgent language, flagging cases that likely deserved a higher intake
// severity. Structurally close to UrgencyDetector, but the two differ
// in scope, qualification and severity rules and evolve independently.
type MisclassificationDetector struct {
	store   CaseStore
	cfg     Config
	matcher Matcher
	logger  *slog.Logger
}

// NewMisclassificationDetector creates a misclassification detector
// scanning with the broader misclassification keyword list.
func NewMisclassificationDetector(store CaseStore, cfg Config, logger *slog.Logger) *MisclassificationDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &MisclassificationDetector{
		store:   store,
		cfg:     cfg,
		matcher: NewSubstringMatcher(cfg.MisclassificationKeywords),
		logger:  logger,
	}
}

func (d *MisclassificationDetector) Name() string { return "misclassification" }

func (d *MisclassificationDetector) Type() models.AlertType { return models.AlertTypeMisclassification }

// Detect mirrors the urgency fold over the complementary severity
// band: only low and medium cases are ever considered, so a case never
// feeds both detectors.
func (d *MisclassificationDetector) Detect(ctx context.Context, window models.TimeWindow, now time.Time) ([]Result, error) {
	bounds, err := BoundsFor(window, now)
	if err != nil {
		return nil, err
	}

	cases, err := d.store.ListCasesBySeverity(ctx, bounds.CurrentStart, bounds.CurrentEnd,
		[]models.CaseSeverity{models.CaseSeverityLow, models.CaseSeverityMedium})
	if err != nil {
		return nil, &DataAccessError{Op: "list low severity cases", Err: err}
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
			Severity:        misclassificationSeverity(g),
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

// misclassificationSeverity caps at high: these are review prompts,
// not incidents. Five or more suspect cases, or one of the high
// keywords, raises medium to high.
func misclassificationSeverity(g *keywordGroup) models.AlertSeverity {
	if g.caseCount >= 5 {
		return models.AlertSeverityHigh
	}
	for kw := range g.keywordSet {
		if _, high := misclassificationHighKeywords[kw]; high {
			return models.AlertSeverityHigh
		}
	}
	return models.AlertSeverityMedium
}
