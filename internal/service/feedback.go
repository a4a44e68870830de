// internal/service/feedback.go
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/models"
	"github.com/fanlive/live-platform/internal/realtime"
	"github.com/fanlive/live-platform/internal/repository"
)

const (
	snapshotTTL     = 10 * time.Minute
	feedbackTimeout = 5 * time.Second
)

// LiveMetricsSource reports the aggregator's current metrics for a
// stream. The second return is false when the stream has no live channel.
type LiveMetricsSource interface {
	Metrics(streamID string) (models.LiveMetrics, bool)
}

// AggregatorFeedback pushes aggregator state back to the discovery side:
// metrics snapshots for scoring, viewer counts onto the stream record,
// view totals into the platform stats, and chat messages into the recent
// message cache.
type AggregatorFeedback struct {
	metrics       LiveMetricsSource
	redisRepo     repository.RedisRepository
	streamService *StreamService
	logger        zerolog.Logger
}

func NewAggregatorFeedback(metrics LiveMetricsSource, redisRepo repository.RedisRepository, streamService *StreamService, logger zerolog.Logger) *AggregatorFeedback {
	return &AggregatorFeedback{
		metrics:       metrics,
		redisRepo:     redisRepo,
		streamService: streamService,
		logger:        logger.With().Str("component", "aggregator-feedback").Logger(),
	}
}

// Handle consumes one aggregator event. Register it with Manager.Notify.
func (f *AggregatorFeedback) Handle(ev realtime.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), feedbackTimeout)
	defer cancel()

	switch ev.Type {
	case realtime.EventViewerJoined:
		if err := f.redisRepo.IncrementStat(ctx, "total_views", 1); err != nil {
			f.logger.Warn().Err(err).Msg("could not bump view total")
		}

	case realtime.EventViewerCountChanged:
		change, ok := ev.Payload.(realtime.ViewerCountChange)
		if !ok {
			return
		}
		m, live := f.metrics.Metrics(ev.StreamID)
		if !live {
			return
		}
		if err := f.redisRepo.SetMetricsSnapshot(ctx, &m, snapshotTTL); err != nil {
			f.logger.Warn().Err(err).Str("stream_id", ev.StreamID).Msg("could not snapshot metrics")
		}
		if err := f.streamService.UpdateViewerCount(ctx, ev.StreamID, change.Count, m.PeakViewerCount); err != nil {
			f.logger.Warn().Err(err).Str("stream_id", ev.StreamID).Msg("could not write back viewer count")
		}

	case realtime.EventChatMessage:
		msg, ok := ev.Payload.(*models.ChatMessage)
		if !ok {
			return
		}
		if err := f.redisRepo.CacheMessage(ctx, msg); err != nil {
			f.logger.Warn().Err(err).Str("stream_id", ev.StreamID).Msg("could not cache chat message")
		}
	}
}
