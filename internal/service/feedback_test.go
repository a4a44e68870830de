package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/models"
	"github.com/fanlive/live-platform/internal/realtime"
)

type fakeMetricsSource struct {
	metrics map[string]models.LiveMetrics
}

func (f *fakeMetricsSource) Metrics(streamID string) (models.LiveMetrics, bool) {
	m, ok := f.metrics[streamID]
	return m, ok
}

func newFeedbackFixture() (*AggregatorFeedback, *serviceFixture, *fakeMetricsSource) {
	f := newServiceFixture()
	source := &fakeMetricsSource{metrics: make(map[string]models.LiveMetrics)}
	fb := NewAggregatorFeedback(source, f.redis, f.svc, zerolog.Nop())
	return fb, f, source
}

func TestFeedbackViewerJoinedBumpsViewTotal(t *testing.T) {
	fb, f, _ := newFeedbackFixture()

	fb.Handle(realtime.Event{Type: realtime.EventViewerJoined, StreamID: "s1"})
	fb.Handle(realtime.Event{Type: realtime.EventViewerJoined, StreamID: "s2"})

	if got := f.redis.stats["total_views"]; got != 2 {
		t.Errorf("total_views = %d, want 2", got)
	}
}

func TestFeedbackViewerCountSnapshotsAndWritesBack(t *testing.T) {
	fb, f, source := newFeedbackFixture()
	f.seedLive("s1", "key-1", time.Hour)
	source.metrics["s1"] = models.LiveMetrics{
		StreamID:        "s1",
		ViewerCount:     7,
		PeakViewerCount: 9,
	}

	fb.Handle(realtime.Event{
		Type:     realtime.EventViewerCountChanged,
		StreamID: "s1",
		Payload:  realtime.ViewerCountChange{StreamID: "s1", Count: 7, PreviousCount: 6},
	})

	snap := f.redis.metrics["s1"]
	if snap == nil || snap.ViewerCount != 7 {
		t.Fatalf("metrics snapshot = %+v, want viewer count 7", snap)
	}
	stream := f.dynamo.streams["s1"]
	if stream.ViewerCount != 7 || stream.PeakViewerCount != 9 {
		t.Errorf("stream counts = %d/%d, want 7/9", stream.ViewerCount, stream.PeakViewerCount)
	}
}

func TestFeedbackViewerCountWithoutLiveChannelIsNoop(t *testing.T) {
	fb, f, _ := newFeedbackFixture()

	fb.Handle(realtime.Event{
		Type:     realtime.EventViewerCountChanged,
		StreamID: "s1",
		Payload:  realtime.ViewerCountChange{StreamID: "s1", Count: 3},
	})

	if snap := f.redis.metrics["s1"]; snap != nil {
		t.Errorf("unexpected metrics snapshot %+v", snap)
	}
}

func TestFeedbackCachesChatMessages(t *testing.T) {
	fb, f, _ := newFeedbackFixture()

	msg := &models.ChatMessage{
		ID:        "m1",
		StreamID:  "s1",
		UserID:    "v1",
		Username:  "Vee",
		Message:   "hello chat",
		CreatedAt: f.now,
	}
	fb.Handle(realtime.Event{Type: realtime.EventChatMessage, StreamID: "s1", Payload: msg})

	cached, err := f.redis.GetCachedMessages(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("get cached messages: %v", err)
	}
	if len(cached) != 1 || cached[0].Message != "hello chat" {
		t.Fatalf("cached messages = %+v, want the chat message", cached)
	}
}
