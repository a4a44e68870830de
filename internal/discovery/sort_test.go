package discovery

import (
	"reflect"
	"testing"
	"time"

	"github.com/fanlive/live-platform/internal/models"
)

func ids(streams []*models.Stream) []string {
	out := make([]string, len(streams))
	for i, s := range streams {
		out[i] = s.ID
	}
	return out
}

func TestSortMostViewers(t *testing.T) {
	e := testEngine()
	streams := []*models.Stream{
		liveStream("a", 10),
		liveStream("b", 500),
		liveStream("c", 50),
	}

	sorted := e.SortStreams(streams, models.SortMostViewers, nil, nil)

	want := []string{"b", "c", "a"}
	if got := ids(sorted); !reflect.DeepEqual(got, want) {
		t.Errorf("most-viewers order = %v, want %v", got, want)
	}

	// Input slice is not mutated.
	if streams[0].ID != "a" {
		t.Error("SortStreams mutated its input")
	}
}

func TestSortTieBreakDeterministic(t *testing.T) {
	e := testEngine()
	streams := []*models.Stream{
		liveStream("c", 100),
		liveStream("a", 100),
		liveStream("b", 100),
	}

	first := ids(e.SortStreams(streams, models.SortMostViewers, nil, nil))
	for i := 0; i < 10; i++ {
		again := ids(e.SortStreams(streams, models.SortMostViewers, nil, nil))
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("sort order changed between calls: %v then %v", first, again)
		}
	}
	if !reflect.DeepEqual(first, []string{"a", "b", "c"}) {
		t.Errorf("equal viewer counts should order by id, got %v", first)
	}
}

func TestSortTrending(t *testing.T) {
	e := testEngine()
	streams := []*models.Stream{
		liveStream("a", 10),
		liveStream("b", 10),
		liveStream("c", 10),
	}
	metrics := map[string]*models.StreamMetrics{
		"a": {TrendingScore: 5},
		"c": {TrendingScore: 80},
		// "b" missing: treated as zero.
	}

	sorted := e.SortStreams(streams, models.SortTrending, metrics, nil)

	want := []string{"c", "a", "b"}
	if got := ids(sorted); !reflect.DeepEqual(got, want) {
		t.Errorf("trending order = %v, want %v", got, want)
	}
}

func TestSortRecentlyStarted(t *testing.T) {
	e := testEngine()
	mk := func(id string, age time.Duration) *models.Stream {
		s := liveStream(id, 10)
		started := testNow.Add(-age)
		s.StartedAt = &started
		return s
	}
	streams := []*models.Stream{
		mk("old", 6*time.Hour),
		mk("new", 10*time.Minute),
		mk("mid", 2*time.Hour),
	}

	sorted := e.SortStreams(streams, models.SortRecentlyStarted, nil, nil)

	want := []string{"new", "mid", "old"}
	if got := ids(sorted); !reflect.DeepEqual(got, want) {
		t.Errorf("recently-started order = %v, want %v", got, want)
	}
}

func TestSortFollowing(t *testing.T) {
	e := testEngine()
	streams := []*models.Stream{
		liveStream("a", 900),
		liveStream("b", 100),
		liveStream("c", 50),
	}

	// No personalization: input order unchanged.
	sorted := e.SortStreams(streams, models.SortFollowing, nil, nil)
	if got := ids(sorted); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("following without personalization = %v, want input order", got)
	}

	p := &models.PersonalizationData{
		FollowedCreators: map[string]bool{"creator-b": true, "creator-c": true},
	}
	sorted = e.SortStreams(streams, models.SortFollowing, nil, p)
	// Followed first (by viewers desc), then the rest.
	want := []string{"b", "c", "a"}
	if got := ids(sorted); !reflect.DeepEqual(got, want) {
		t.Errorf("following order = %v, want %v", got, want)
	}
}

func TestSortCategoryAndLanguage(t *testing.T) {
	e := testEngine()
	a := liveStream("a", 10)
	a.Category = models.CategoryTalk
	a.Language = "fr"
	b := liveStream("b", 200)
	b.Category = models.CategoryComedy
	b.Language = "en"
	c := liveStream("c", 100)
	c.Category = models.CategoryComedy
	c.Language = "fr"

	byCategory := ids(e.SortStreams([]*models.Stream{a, b, c}, models.SortCategory, nil, nil))
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(byCategory, want) {
		t.Errorf("category order = %v, want %v", byCategory, want)
	}

	byLanguage := ids(e.SortStreams([]*models.Stream{a, b, c}, models.SortLanguage, nil, nil))
	if want := []string{"b", "c", "a"}; !reflect.DeepEqual(byLanguage, want) {
		t.Errorf("language order = %v, want %v", byLanguage, want)
	}
}

func TestSortRelevanceDefault(t *testing.T) {
	e := testEngine()
	low := liveStream("low", 2)
	high := liveStream("high", 2)
	high.CreatorVerified = true
	high.IsFeatured = true
	high.Quality = models.Quality4K

	sorted := e.SortStreams([]*models.Stream{low, high}, models.SortRelevance, nil, nil)
	if got := ids(sorted); !reflect.DeepEqual(got, []string{"high", "low"}) {
		t.Errorf("relevance order = %v, want [high low]", got)
	}

	// Unknown sort option also falls back to relevance.
	sorted = e.SortStreams([]*models.Stream{low, high}, models.SortOption("bogus"), nil, nil)
	if got := ids(sorted); !reflect.DeepEqual(got, []string{"high", "low"}) {
		t.Errorf("fallback order = %v, want [high low]", got)
	}
}

func TestSortEmptyInput(t *testing.T) {
	e := testEngine()
	for _, opt := range []models.SortOption{models.SortTrending, models.SortMostViewers, models.SortFollowing, models.SortRelevance} {
		if got := e.SortStreams(nil, opt, nil, nil); len(got) != 0 {
			t.Errorf("sort %q on nil input returned %d streams", opt, len(got))
		}
	}
}
