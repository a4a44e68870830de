package discovery

import (
	"math"
	"testing"
	"time"

	"github.com/fanlive/live-platform/internal/models"
)

var testNow = time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	e := NewEngine(DefaultWeights())
	e.now = func() time.Time { return testNow }
	return e
}

func liveStream(id string, viewers int) *models.Stream {
	started := testNow.Add(-3 * time.Hour)
	return &models.Stream{
		ID:          id,
		CreatorID:   "creator-" + id,
		Category:    models.CategoryMusic,
		Language:    "en",
		Status:      models.StreamStatusLive,
		Quality:     models.QualityHD,
		StartedAt:   &started,
		ViewerCount: viewers,
	}
}

func TestDiscoveryScoreBounds(t *testing.T) {
	e := testEngine()

	weights := []ScoreWeights{
		DefaultWeights(),
		{Viewer: 1, Engagement: 1, Creator: 1, Quality: 1, Newness: 1},
		{},
		{Viewer: 10},
	}

	started := testNow.Add(-30 * time.Minute)
	streams := []*models.Stream{
		nil,
		{},
		liveStream("a", 0),
		liveStream("b", 10_000_000),
		{
			ID:              "max",
			Quality:         models.Quality4K,
			HasChat:         true,
			IsRecorded:      true,
			CreatorVerified: true,
			IsFeatured:      true,
			IsPremium:       true,
			StartedAt:       &started,
			ViewerCount:     5_000_000,
		},
	}
	metrics := []*models.StreamMetrics{
		nil,
		{},
		{EngagementRate: 100},
		{EngagementRate: -50},
		{EngagementRate: 500},
	}
	personalizations := []*models.PersonalizationData{
		nil,
		{},
		{
			FollowedCreators: map[string]bool{"creator-a": true, "creator-b": true},
			CategoryWeights:  map[models.StreamCategory]float64{models.CategoryMusic: 1},
			Languages:        []string{"en"},
		},
	}

	for _, w := range weights {
		e.weights = w
		for _, s := range streams {
			for _, m := range metrics {
				for _, p := range personalizations {
					score := e.DiscoveryScore(s, m, p)
					if score < 0 || score > 100 {
						t.Fatalf("DiscoveryScore = %v, want within [0,100] (weights=%+v)", score, w)
					}
				}
			}
		}
	}
}

func TestDiscoveryScoreSubScores(t *testing.T) {
	e := testEngine()
	// Isolate each sub-score with a weight of 1 on it alone.

	e.weights = ScoreWeights{Viewer: 1}
	s := liveStream("a", 1000)
	if got := e.DiscoveryScore(s, nil, nil); math.Abs(got-60) > 1e-9 {
		t.Errorf("viewer score for 1000 viewers = %v, want 60 (log10(1000)*20)", got)
	}
	s.ViewerCount = 0
	if got := e.DiscoveryScore(s, nil, nil); got != 0 {
		t.Errorf("viewer score for 0 viewers = %v, want 0", got)
	}

	e.weights = ScoreWeights{Creator: 1}
	s = liveStream("b", 0)
	if got := e.DiscoveryScore(s, nil, nil); got != 50 {
		t.Errorf("base creator score = %v, want 50", got)
	}
	s.CreatorVerified = true
	s.IsFeatured = true
	s.IsPremium = true
	if got := e.DiscoveryScore(s, nil, nil); got != 90 {
		t.Errorf("boosted creator score = %v, want 90", got)
	}

	e.weights = ScoreWeights{Quality: 1}
	s = liveStream("c", 0)
	s.Quality = models.Quality4K
	s.HasChat = true
	s.IsRecorded = true
	if got := e.DiscoveryScore(s, nil, nil); got != 100 {
		t.Errorf("4k+chat+recorded quality score = %v, want 100 (capped)", got)
	}
	s.Quality = models.QualitySD
	s.HasChat = false
	s.IsRecorded = false
	if got := e.DiscoveryScore(s, nil, nil); got != 30 {
		t.Errorf("sd quality score = %v, want 30", got)
	}
}

func TestNewnessBonusSteps(t *testing.T) {
	cases := []struct {
		ageHours float64
		want     float64
	}{
		{0.5, 100},
		{1.5, 75},
		{3, 50},
		{7.9, 25},
		{8, 0},
		{100, 0},
	}
	for _, tc := range cases {
		if got := newnessBonus(tc.ageHours); got != tc.want {
			t.Errorf("newnessBonus(%v) = %v, want %v", tc.ageHours, got, tc.want)
		}
	}
}

func TestPersonalizationMultiplier(t *testing.T) {
	e := testEngine()
	s := liveStream("a", 100)

	// Followed creator, no category or language affinity: exactly 2.0.
	p := &models.PersonalizationData{
		FollowedCreators: map[string]bool{"creator-a": true},
	}
	if got := e.personalizationMultiplier(s, p); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("followed-only multiplier = %v, want 2.0", got)
	}

	// Followed + category weight 1.0 + language match: 2*1.5*1.3 = 3.9,
	// clamped to the 3.0 cap.
	p.CategoryWeights = map[models.StreamCategory]float64{models.CategoryMusic: 1}
	p.Languages = []string{"en"}
	if got := e.personalizationMultiplier(s, p); math.Abs(got-3.0) > 1e-9 {
		t.Errorf("compound multiplier = %v, want 3.0 (capped from 3.9)", got)
	}

	// Empty personalization leaves the score untouched.
	if got := e.personalizationMultiplier(s, &models.PersonalizationData{}); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("empty personalization multiplier = %v, want 1.0", got)
	}
}

func TestPersonalizationTimeSlot(t *testing.T) {
	e := testEngine()
	s := liveStream("a", 100) // started at testNow-3h = 17:00 Saturday

	p := &models.PersonalizationData{
		PreferredSlots: []models.TimeSlot{{Weekday: s.StartedAt.Weekday(), Hour: s.StartedAt.Hour()}},
	}
	if got := e.personalizationMultiplier(s, p); math.Abs(got-1.2) > 1e-9 {
		t.Errorf("time-slot multiplier = %v, want 1.2", got)
	}

	p.PreferredSlots[0].Hour = (s.StartedAt.Hour() + 1) % 24
	if got := e.personalizationMultiplier(s, p); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("non-matching slot multiplier = %v, want 1.0", got)
	}
}

func TestTrendingScore(t *testing.T) {
	cases := []struct {
		name     string
		current  int
		previous int
		window   float64
		want     float64
	}{
		{"zero previous viewers", 100, 0, 60, 0},
		{"all zero", 0, 0, 0, 0},
		{"negative window", 100, 50, -5, 0},
		{"fifty percent growth at scale", 1500, 1000, 60, 50},
		{"small stream dampened", 4, 2, 60, 100 * 4.0 / 1000},
		{"shrinking stream", 500, 1000, 60, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TrendingScore(tc.current, tc.previous, tc.window)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("TrendingScore(%d, %d, %v) = %v, want %v", tc.current, tc.previous, tc.window, got, tc.want)
			}
		})
	}
}
