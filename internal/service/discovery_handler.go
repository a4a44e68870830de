// internal/service/discovery_handler.go
package service

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/discovery"
	"github.com/fanlive/live-platform/internal/models"
	"github.com/fanlive/live-platform/internal/repository"
)

// metricsWindowMinutes is the interval between viewer-count write-backs,
// which makes the persisted count the "previous" sample for trending.
const metricsWindowMinutes = 5

// DiscoveryHandler serves the browse and recommendation API over the
// scoring engine.
type DiscoveryHandler struct {
	streamService *StreamService
	engine        *discovery.Engine
	redisRepo     repository.RedisRepository
	logger        zerolog.Logger
}

func NewDiscoveryHandler(streamService *StreamService, engine *discovery.Engine, redisRepo repository.RedisRepository, logger zerolog.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		streamService: streamService,
		engine:        engine,
		redisRepo:     redisRepo,
		logger:        logger,
	}
}

// ListStreams handles GET /api/v1/streams with filter, sort and limit
// query parameters.
func (h *DiscoveryHandler) ListStreams(c *gin.Context) {
	streams, err := h.streamService.GetLiveStreams(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("❌ Could not get live streams")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not get streams"})
		return
	}

	p := h.loadPersonalization(c)
	applyFollowed(streams, p)

	filter := parseFilter(c)
	streams = discovery.FilterStreams(streams, filter)

	sortBy := models.SortOption(c.DefaultQuery("sort", string(models.SortRelevance)))
	metricsByID := h.buildMetrics(c, streams)
	streams = h.engine.SortStreams(streams, sortBy, metricsByID, p)

	streams = truncate(streams, parseLimit(c, 50))

	c.JSON(http.StatusOK, gin.H{
		"streams": streams,
		"count":   len(streams),
	})
}

// GetStream handles GET /api/v1/streams/:id.
func (h *DiscoveryHandler) GetStream(c *gin.Context) {
	streamID := c.Param("id")

	stream, err := h.streamService.GetStream(c.Request.Context(), streamID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream not found"})
		return
	}

	c.JSON(http.StatusOK, stream)
}

// Messages handles GET /api/v1/streams/:id/messages. It serves the
// recent chat messages cached by the realtime side, newest first.
func (h *DiscoveryHandler) Messages(c *gin.Context) {
	streamID := c.Param("id")

	messages, err := h.redisRepo.GetCachedMessages(c.Request.Context(), streamID, parseLimit(c, 50))
	if err != nil {
		h.logger.Error().Err(err).Str("stream_id", streamID).Msg("❌ Could not get cached messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not get messages"})
		return
	}
	if messages == nil {
		messages = []*models.ChatMessage{}
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

// Trending handles GET /api/v1/streams/trending.
func (h *DiscoveryHandler) Trending(c *gin.Context) {
	streams, err := h.streamService.GetLiveStreams(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("❌ Could not get live streams")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not get streams"})
		return
	}

	metricsByID := h.buildMetrics(c, streams)
	streams = h.engine.SortStreams(streams, models.SortTrending, metricsByID, nil)
	streams = truncate(streams, parseLimit(c, 20))

	c.JSON(http.StatusOK, gin.H{
		"streams": streams,
		"count":   len(streams),
	})
}

// Recommendations handles GET /api/v1/recommendations. Personalization
// comes from the viewer's stored profile; without one the ranking
// degrades to the unpersonalized discovery score.
func (h *DiscoveryHandler) Recommendations(c *gin.Context) {
	streams, err := h.streamService.GetLiveStreams(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("❌ Could not get live streams")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not get streams"})
		return
	}

	p := h.loadPersonalization(c)
	applyFollowed(streams, p)

	metricsByID := h.buildMetrics(c, streams)
	recommended := h.engine.Recommendations(streams, metricsByID, p, parseLimit(c, 10))

	c.JSON(http.StatusOK, gin.H{
		"streams": recommended,
		"count":   len(recommended),
	})
}

// Stats handles GET /api/v1/stats.
func (h *DiscoveryHandler) Stats(c *gin.Context) {
	stats, err := h.streamService.GetPlatformStats(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("❌ Could not compute platform stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *DiscoveryHandler) loadPersonalization(c *gin.Context) *models.PersonalizationData {
	viewerID := c.Query("viewer_id")
	if viewerID == "" {
		return nil
	}

	p, err := h.redisRepo.GetPersonalization(c.Request.Context(), viewerID)
	if err != nil {
		h.logger.Warn().Err(err).Str("viewer_id", viewerID).Msg("could not load personalization profile")
		return nil
	}
	return p
}

// buildMetrics derives scoring inputs per stream from the aggregator's
// live snapshot. The persisted viewer count is the previous sample for
// the trending window; streams without a snapshot score zero.
func (h *DiscoveryHandler) buildMetrics(c *gin.Context, streams []*models.Stream) map[string]*models.StreamMetrics {
	metricsByID := make(map[string]*models.StreamMetrics, len(streams))
	for _, stream := range streams {
		live, err := h.redisRepo.GetMetricsSnapshot(c.Request.Context(), stream.ID)
		if err != nil || live == nil {
			metricsByID[stream.ID] = &models.StreamMetrics{}
			continue
		}

		m := &models.StreamMetrics{
			TrendingScore: discovery.TrendingScore(live.ViewerCount, stream.ViewerCount, metricsWindowMinutes),
		}
		if live.ViewerCount > 0 {
			m.ChatActivity = float64(live.ChatMessageCount) / float64(live.ViewerCount)
		}
		if live.TotalViews > 0 {
			engaged := float64(live.ChatMessageCount + live.TotalGifts)
			m.EngagementRate = clamp100(engaged / float64(live.TotalViews) * 100)
			m.RetentionRate = clamp100(float64(live.ViewerCount) / float64(live.TotalViews) * 100)
		}
		metricsByID[stream.ID] = m
	}
	return metricsByID
}

func applyFollowed(streams []*models.Stream, p *models.PersonalizationData) {
	if p == nil {
		return
	}
	for _, stream := range streams {
		stream.IsFollowed = p.Follows(stream.CreatorID)
	}
}

func parseFilter(c *gin.Context) models.StreamFilter {
	var filter models.StreamFilter

	for _, raw := range splitParam(c.Query("category")) {
		filter.Categories = append(filter.Categories, models.StreamCategory(raw))
	}
	filter.Languages = splitParam(c.Query("language"))
	for _, raw := range splitParam(c.Query("status")) {
		filter.Statuses = append(filter.Statuses, models.StreamStatus(raw))
	}
	for _, raw := range splitParam(c.Query("quality")) {
		filter.Qualities = append(filter.Qualities, models.StreamQuality(raw))
	}

	filter.FollowedOnly = c.Query("followed_only") == "true"
	filter.PremiumOnly = c.Query("premium_only") == "true"
	filter.FreeOnly = c.Query("free_only") == "true"

	if v, err := strconv.Atoi(c.Query("min_viewers")); err == nil {
		filter.MinViewers = &v
	}
	if v, err := strconv.Atoi(c.Query("max_viewers")); err == nil {
		filter.MaxViewers = &v
	}

	return filter
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLimit(c *gin.Context, fallback int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func truncate(streams []*models.Stream, limit int) []*models.Stream {
	if limit >= len(streams) {
		return streams
	}
	return streams[:limit]
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
