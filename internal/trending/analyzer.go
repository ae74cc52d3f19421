package trending

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/casepulse/casepulse-backend/internal/detect"
	"github.com/casepulse/casepulse-backend/internal/models"
	"github.com/casepulse/casepulse-backend/internal/pkg/metrics"
)

// CaseCounter is the aggregation slice of the repository the analyzer
// reads from.
type CaseCounter interface {
	CountCasesByGroup(ctx context.Context, start, end time.Time) ([]models.GroupCount, error)
}

// TopicStore is where computed batches land.
type TopicStore interface {
	CreateTrendingTopics(ctx context.Context, topics []*models.TrendingTopic) error
}

// Analyzer computes one trending batch per run: every (business unit,
// category) group active in either period, scored and ranked.
type Analyzer struct {
	cases  CaseCounter
	topics TopicStore
	logger *slog.Logger
}

func NewAnalyzer(cases CaseCounter, topics TopicStore, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{cases: cases, topics: topics, logger: logger}
}

// Compute builds the scored topic list for a window without persisting
// it, ordered by trend score descending. Groups active in either period
// are included, so a topic that collapsed to zero still shows up as
// declining.
func (a *Analyzer) Compute(ctx context.Context, window models.TimeWindow, now time.Time) ([]*models.TrendingTopic, error) {
	bounds, err := detect.BoundsFor(window, now)
	if err != nil {
		return nil, err
	}

	var current, baseline []models.GroupCount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = a.cases.CountCasesByGroup(gctx, bounds.CurrentStart, bounds.CurrentEnd)
		if err != nil {
			return fmt.Errorf("count current cases: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		baseline, err = a.cases.CountCasesByGroup(gctx, bounds.BaselineStart, bounds.BaselineEnd)
		if err != nil {
			return fmt.Errorf("count baseline cases: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buildTopics(window, now, current, baseline), nil
}

// Run computes a batch and appends it to the topic store under one
// shared computed_at timestamp.
func (a *Analyzer) Run(ctx context.Context, window models.TimeWindow, now time.Time) ([]*models.TrendingTopic, error) {
	start := time.Now()
	topics, err := a.Compute(ctx, window, now)
	if err != nil {
		return nil, err
	}
	if len(topics) > 0 {
		if err := a.topics.CreateTrendingTopics(ctx, topics); err != nil {
			return nil, fmt.Errorf("persist trending topics: %w", err)
		}
	}
	metrics.TrendingRunDurationSeconds.WithLabelValues(string(window)).Observe(time.Since(start).Seconds())
	a.logger.Info("trending batch computed", "window", window, "topics", len(topics))
	return topics, nil
}

type pairKey struct {
	businessUnit string
	category     string
}

func buildTopics(window models.TimeWindow, now time.Time, current, baseline []models.GroupCount) []*models.TrendingTopic {
	currentByGroup := make(map[pairKey]int, len(current))
	for _, c := range current {
		currentByGroup[pairKey{c.BusinessUnit, c.Category}] = c.Count
	}
	baselineByGroup := make(map[pairKey]int, len(baseline))
	for _, b := range baseline {
		baselineByGroup[pairKey{b.BusinessUnit, b.Category}] = b.Count
	}

	keys := make(map[pairKey]struct{}, len(currentByGroup)+len(baselineByGroup))
	for k := range currentByGroup {
		keys[k] = struct{}{}
	}
	for k := range baselineByGroup {
		keys[k] = struct{}{}
	}

	computedAt := now.UTC()
	topics := make([]*models.TrendingTopic, 0, len(keys))
	for k := range keys {
		cur, base := currentByGroup[k], baselineByGroup[k]
		pct := PercentChange(cur, base)
		topics = append(topics, &models.TrendingTopic{
			Topic:            k.category,
			BusinessUnit:     k.businessUnit,
			Category:         k.category,
			CurrentCount:     cur,
			BaselineCount:    base,
			Direction:        Direction(pct),
			PercentageChange: pct,
			TrendScore:       Score(cur, base),
			Window:           window,
			ComputedAt:       computedAt,
		})
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].TrendScore != topics[j].TrendScore {
			return topics[i].TrendScore > topics[j].TrendScore
		}
		// Deterministic order for equal scores.
		if topics[i].BusinessUnit != topics[j].BusinessUnit {
			return topics[i].BusinessUnit < topics[j].BusinessUnit
		}
		return topics[i].Category < topics[j].Category
	})
	return topics
}
