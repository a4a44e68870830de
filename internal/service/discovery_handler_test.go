package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/discovery"
	"github.com/fanlive/live-platform/internal/models"
)

type streamListResponse struct {
	Streams []*models.Stream `json:"streams"`
	Count   int              `json:"count"`
}

func newDiscoveryRouter(f *serviceFixture) *gin.Engine {
	gin.SetMode(gin.TestMode)

	engine := discovery.NewEngine(discovery.DefaultWeights())
	handler := NewDiscoveryHandler(f.svc, engine, f.redis, zerolog.Nop())

	r := gin.New()
	api := r.Group("/api/v1")
	{
		api.GET("/streams", handler.ListStreams)
		api.GET("/streams/trending", handler.Trending)
		api.GET("/streams/:id", handler.GetStream)
		api.GET("/streams/:id/messages", handler.Messages)
		api.GET("/recommendations", handler.Recommendations)
		api.GET("/stats", handler.Stats)
	}
	return r
}

func doList(t *testing.T, r *gin.Engine, path string) streamListResponse {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: status %d, body %s", path, w.Code, w.Body.String())
	}
	var resp streamListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestListStreamsSortsByViewers(t *testing.T) {
	f := newServiceFixture()
	f.seedLive("small", "k1", time.Hour).ViewerCount = 10
	f.seedLive("big", "k2", time.Hour).ViewerCount = 900
	f.seedLive("mid", "k3", time.Hour).ViewerCount = 50
	r := newDiscoveryRouter(f)

	resp := doList(t, r, "/api/v1/streams?sort=most-viewers")
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
	if resp.Streams[0].ID != "big" || resp.Streams[2].ID != "small" {
		t.Errorf("order = [%s %s %s], want big first and small last",
			resp.Streams[0].ID, resp.Streams[1].ID, resp.Streams[2].ID)
	}
}

func TestListStreamsFiltersByCategory(t *testing.T) {
	f := newServiceFixture()
	f.seedLive("m", "k1", time.Hour).Category = models.CategoryMusic
	f.seedLive("c", "k2", time.Hour).Category = models.CategoryComedy
	r := newDiscoveryRouter(f)

	resp := doList(t, r, "/api/v1/streams?category=music")
	if resp.Count != 1 || resp.Streams[0].ID != "m" {
		t.Fatalf("got %v, want only the music stream", ids(resp.Streams))
	}
}

func TestListStreamsRespectsLimit(t *testing.T) {
	f := newServiceFixture()
	f.seedLive("a", "k1", time.Hour)
	f.seedLive("b", "k2", time.Hour)
	f.seedLive("c", "k3", time.Hour)
	r := newDiscoveryRouter(f)

	resp := doList(t, r, "/api/v1/streams?limit=2")
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
}

func TestTrendingRanksByGrowth(t *testing.T) {
	f := newServiceFixture()
	flat := f.seedLive("flat", "k1", time.Hour)
	flat.ViewerCount = 1000
	surging := f.seedLive("surging", "k2", time.Hour)
	surging.ViewerCount = 1000
	// Snapshot shows the surging stream well above its persisted count
	f.redis.metrics["surging"] = &models.LiveMetrics{StreamID: "surging", ViewerCount: 1600}
	f.redis.metrics["flat"] = &models.LiveMetrics{StreamID: "flat", ViewerCount: 1000}
	r := newDiscoveryRouter(f)

	resp := doList(t, r, "/api/v1/streams/trending")
	if resp.Streams[0].ID != "surging" {
		t.Errorf("top trending = %s, want surging", resp.Streams[0].ID)
	}
}

func TestRecommendationsUsePersonalization(t *testing.T) {
	f := newServiceFixture()
	f.seedLive("popular", "k1", time.Hour).ViewerCount = 5000
	followed := f.seedLive("followed", "k2", time.Hour)
	followed.ViewerCount = 40
	f.redis.profiles["fan-7"] = &models.PersonalizationData{
		ViewerID:         "fan-7",
		FollowedCreators: map[string]bool{followed.CreatorID: true},
	}
	r := newDiscoveryRouter(f)

	resp := doList(t, r, "/api/v1/recommendations?viewer_id=fan-7&limit=1")
	if resp.Count != 1 || resp.Streams[0].ID != "followed" {
		t.Errorf("top recommendation = %v, want the followed stream", ids(resp.Streams))
	}
	if !resp.Streams[0].IsFollowed {
		t.Error("followed flag not applied")
	}
}

func TestGetStreamByID(t *testing.T) {
	f := newServiceFixture()
	f.seedLive("s1", "k1", time.Hour).Title = "Kitchen session"
	r := newDiscoveryRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/streams/s1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var stream models.Stream
	if err := json.Unmarshal(w.Body.Bytes(), &stream); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stream.Title != "Kitchen session" {
		t.Errorf("Title = %q", stream.Title)
	}
}

func TestGetStreamNotFoundReturns404(t *testing.T) {
	f := newServiceFixture()
	r := newDiscoveryRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/streams/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestStreamMessagesEndpoint(t *testing.T) {
	f := newServiceFixture()
	f.seedLive("s1", "k1", time.Hour)
	ctx := context.Background()
	for i, text := range []string{"first", "second", "third"} {
		_ = f.redis.CacheMessage(ctx, &models.ChatMessage{
			ID:        fmt.Sprintf("m%d", i+1),
			StreamID:  "s1",
			UserID:    "v1",
			Username:  "Vee",
			Message:   text,
			CreatedAt: f.now.Add(time.Duration(i) * time.Second),
		})
	}
	r := newDiscoveryRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/streams/s1/messages?limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Messages []*models.ChatMessage `json:"messages"`
		Count    int                   `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Messages) != 2 {
		t.Fatalf("count = %d, messages = %d, want 2", resp.Count, len(resp.Messages))
	}
	if resp.Messages[0].Message != "third" {
		t.Errorf("newest message = %q, want %q", resp.Messages[0].Message, "third")
	}
}

func TestStreamMessagesEmptyStream(t *testing.T) {
	f := newServiceFixture()
	r := newDiscoveryRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/streams/quiet/messages", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Messages []*models.ChatMessage `json:"messages"`
		Count    int                   `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 || resp.Messages == nil {
		t.Errorf("count = %d, messages = %v, want empty list", resp.Count, resp.Messages)
	}
}

func TestStatsEndpoint(t *testing.T) {
	f := newServiceFixture()
	f.seedLive("s1", "k1", time.Hour).ViewerCount = 75
	r := newDiscoveryRouter(f)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var stats PlatformStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.LiveStreams != 1 || stats.TotalViewers != 75 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestParseFilterMultiValue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet,
		"/streams?category=music,comedy&language=fr&min_viewers=10&premium_only=true", nil)

	filter := parseFilter(c)
	if len(filter.Categories) != 2 {
		t.Errorf("Categories = %v, want two entries", filter.Categories)
	}
	if len(filter.Languages) != 1 || filter.Languages[0] != "fr" {
		t.Errorf("Languages = %v", filter.Languages)
	}
	if filter.MinViewers == nil || *filter.MinViewers != 10 {
		t.Errorf("MinViewers = %v, want 10", filter.MinViewers)
	}
	if !filter.PremiumOnly {
		t.Error("PremiumOnly not parsed")
	}
}

func ids(streams []*models.Stream) []string {
	out := make([]string, len(streams))
	for i, s := range streams {
		out[i] = s.ID
	}
	return out
}
