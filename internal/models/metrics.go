package models

// StreamMetrics holds the derived per-stream scoring inputs consumed by
// the discovery engine. It is a projection over the stream and recent
// event history, not an independently persisted source of truth.
type StreamMetrics struct {
	TrendingScore  float64 `json:"trending_score"`
	VelocityScore  float64 `json:"velocity_score"`
	EngagementRate float64 `json:"engagement_rate"` // 0-100
	ChatActivity   float64 `json:"chat_activity"`
	RetentionRate  float64 `json:"retention_rate"`
	DiscoveryScore float64 `json:"discovery_score"`
	QualityScore   float64 `json:"quality_score"`
}

// LiveMetrics is the live snapshot the realtime aggregator maintains per
// stream. The aggregator is the sole writer; readers always get a copy.
type LiveMetrics struct {
	StreamID         string  `json:"stream_id"`
	ViewerCount      int     `json:"viewer_count"`
	PeakViewerCount  int     `json:"peak_viewer_count"`
	TotalViews       int     `json:"total_views"`
	ChatMessageCount int     `json:"chat_message_count"`
	TotalGifts       int     `json:"total_gifts"`
	TotalRevenue     float64 `json:"total_revenue"`
}
