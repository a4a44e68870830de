// internal/discovery/score.go
package discovery

import (
	"math"
	"time"

	"github.com/fanlive/live-platform/internal/models"
)

// ScoreWeights configures the weighted sum over the five sub-scores. The
// weights need not sum to 1; the combined score is clamped to [0,100]
// after weighting.
type ScoreWeights struct {
	Viewer     float64
	Engagement float64
	Creator    float64
	Quality    float64
	Newness    float64
}

// DefaultWeights favors engagement and raw audience over production
// quality, with a modest boost for fresh streams.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Viewer:     0.25,
		Engagement: 0.30,
		Creator:    0.20,
		Quality:    0.15,
		Newness:    0.10,
	}
}

const maxPersonalizationMultiplier = 3.0

// Engine scores, sorts and filters streams. It performs no I/O and keeps
// no mutable state beyond its configuration, so a single instance is safe
// for concurrent use.
type Engine struct {
	weights ScoreWeights
	now     func() time.Time
}

func NewEngine(weights ScoreWeights) *Engine {
	return &Engine{
		weights: weights,
		now:     time.Now,
	}
}

// DiscoveryScore computes the composite 0-100 ranking value for a stream.
// A nil personalization yields the raw weighted score; a nil metrics is
// treated as all-zero metrics.
func (e *Engine) DiscoveryScore(stream *models.Stream, metrics *models.StreamMetrics, p *models.PersonalizationData) float64 {
	if stream == nil {
		return 0
	}

	viewerScore := clamp(math.Log10(math.Max(1, float64(stream.ViewerCount)))*20, 0, 100)

	engagement := 0.0
	if metrics != nil {
		engagement = clamp(metrics.EngagementRate, 0, 100)
	}

	creatorScore := 50.0
	if stream.CreatorVerified {
		creatorScore += 20
	}
	if stream.IsFeatured {
		creatorScore += 15
	}
	if stream.IsPremium {
		creatorScore += 5
	}
	creatorScore = clamp(creatorScore, 0, 100)

	qualityScore := qualityBase(stream.Quality)
	if stream.HasChat {
		qualityScore += 10
	}
	if stream.IsRecorded {
		qualityScore += 5
	}
	qualityScore = clamp(qualityScore, 0, 100)

	newness := newnessBonus(stream.AgeHours(e.now()))

	score := viewerScore*e.weights.Viewer +
		engagement*e.weights.Engagement +
		creatorScore*e.weights.Creator +
		qualityScore*e.weights.Quality +
		newness*e.weights.Newness
	score = clamp(score, 0, 100)

	if p != nil {
		score = clamp(score*e.personalizationMultiplier(stream, p), 0, 100)
	}

	return score
}

// personalizationMultiplier compounds follow, category, language and
// time-slot affinity into a scalar capped at 3.0.
func (e *Engine) personalizationMultiplier(stream *models.Stream, p *models.PersonalizationData) float64 {
	multiplier := 1.0

	if p.Follows(stream.CreatorID) {
		multiplier *= 2.0
	}

	multiplier *= 1 + p.CategoryWeight(stream.Category)*0.5

	if p.PrefersLanguage(stream.Language) {
		multiplier *= 1.3
	}

	if hour, weekday, ok := stream.StartHour(); ok && p.PrefersSlot(weekday, hour) {
		multiplier *= 1.2
	}

	if multiplier > maxPersonalizationMultiplier {
		multiplier = maxPersonalizationMultiplier
	}
	return multiplier
}

// TrendingScore measures recent viewer-count growth, dampened by absolute
// scale so a jump from 2 to 4 viewers does not outrank 2000 to 3000.
// Degenerate windows and zero baselines score 0 rather than erroring.
func TrendingScore(currentViewers, previousViewers int, timeWindowMinutes float64) float64 {
	if timeWindowMinutes <= 0 || previousViewers <= 0 {
		return 0
	}

	growthRate := float64(currentViewers-previousViewers) / float64(previousViewers)
	velocity := clamp(growthRate*100, 0, 100)

	return velocity * math.Min(1, float64(currentViewers)/1000)
}

func qualityBase(q models.StreamQuality) float64 {
	switch q {
	case models.Quality4K:
		return 100
	case models.QualityHD:
		return 70
	default:
		return 30
	}
}

// newnessBonus is a step function of stream age in hours.
func newnessBonus(ageHours float64) float64 {
	switch {
	case ageHours < 1:
		return 100
	case ageHours < 2:
		return 75
	case ageHours < 4:
		return 50
	case ageHours < 8:
		return 25
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
