// Package trending ranks (business unit, category) groups by how fast
// their case volume is growing, feeding the dashboard's trending panel.
package trending

import (
	"math"

	"github.com/casepulse/casepulse-backend/internal/models"
)

// directionBand is the percentage-change margin treated as noise.
// Movement inside ±directionBand counts as stable.
const directionBand = 10.0

// Score collapses a (current, baseline) count pair into one ranking
// number: relative growth plus a log-damped volume term, so a topic
// going 2→10 outranks one going 200→210, while 200→400 still beats
// 2→4. A zero baseline scores as all-new growth against a floor of 1,
// which keeps brand-new topics high but finite.
func Score(current, baseline int) float64 {
	growth := float64(current-baseline) / math.Max(float64(baseline), 1) * 100
	return growth + 10*math.Log(1+float64(current))
}

// PercentChange is the display percentage for a count pair. A topic
// appearing from nothing reads as +100%, and no activity at all as 0.
func PercentChange(current, baseline int) float64 {
	if baseline > 0 {
		return float64(current-baseline) / float64(baseline) * 100
	}
	if current > 0 {
		return 100
	}
	return 0
}

// Direction buckets a percentage change into the dashboard's three
// arrows.
func Direction(percentChange float64) models.TrendDirection {
	switch {
	case percentChange > directionBand:
		return models.TrendRising
	case percentChange < -directionBand:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}
