// internal/service/stream_service.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/config"
	"github.com/fanlive/live-platform/internal/models"
	"github.com/fanlive/live-platform/internal/repository"
)

// EventPublisher ships lifecycle events to the analytics firehose.
type EventPublisher interface {
	PublishEvent(event map[string]interface{}) error
}

// RecordingUploader stores finished broadcast recordings.
type RecordingUploader interface {
	UploadRecording(filePath, key string) (string, error)
}

// maxLiveDuration is how long a stream may stay live before cleanup
// treats it as abandoned by a crashed broadcaster.
const maxLiveDuration = 12 * time.Hour

type StreamService struct {
	config     *config.Config
	dynamoRepo repository.DynamoDBRepository
	redisRepo  repository.RedisRepository
	publisher  EventPublisher
	uploader   RecordingUploader
	logger     zerolog.Logger
	now        func() time.Time
}

func NewStreamService(cfg *config.Config, dynamoRepo repository.DynamoDBRepository, redisRepo repository.RedisRepository, publisher EventPublisher, uploader RecordingUploader, logger zerolog.Logger) *StreamService {
	return &StreamService{
		config:     cfg,
		dynamoRepo: dynamoRepo,
		redisRepo:  redisRepo,
		publisher:  publisher,
		uploader:   uploader,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateStream persists a new stream record and warms the cache.
func (s *StreamService) CreateStream(ctx context.Context, stream *models.Stream) (string, error) {
	if stream.ID == "" {
		stream.ID = generateStreamID()
	}
	if stream.Status == "" {
		stream.Status = models.StreamStatusScheduled
	}
	now := s.now()
	stream.CreatedAt = now
	stream.UpdatedAt = now

	err := s.dynamoRepo.CreateStream(ctx, stream)
	if err != nil {
		return "", fmt.Errorf("failed to create stream in DynamoDB: %w", err)
	}

	if err := s.redisRepo.CacheStream(ctx, stream, 24*time.Hour); err != nil {
		s.logger.Warn().Err(err).Str("stream_id", stream.ID).Msg("could not cache stream")
	}

	return stream.ID, nil
}

// GetStream reads cache-first, falling back to DynamoDB.
func (s *StreamService) GetStream(ctx context.Context, streamID string) (*models.Stream, error) {
	cached, err := s.redisRepo.GetCachedStream(ctx, streamID)
	if err == nil && cached != nil {
		return cached, nil
	}

	stream, err := s.dynamoRepo.GetStreamByID(ctx, streamID)
	if err != nil {
		return nil, err
	}

	if err := s.redisRepo.CacheStream(ctx, stream, time.Hour); err != nil {
		s.logger.Warn().Err(err).Str("stream_id", streamID).Msg("could not cache stream")
	}

	return stream, nil
}

func (s *StreamService) GetLiveStreams(ctx context.Context) ([]*models.Stream, error) {
	return s.dynamoRepo.GetStreamsByStatus(ctx, models.StreamStatusLive)
}

// StartStream transitions a stream to live. The stream is looked up by
// its broadcast key, not its id, because the callback only carries the key.
func (s *StreamService) StartStream(ctx context.Context, streamKey string) (*models.Stream, error) {
	stream, err := s.dynamoRepo.GetStreamByStreamKey(ctx, streamKey)
	if err != nil {
		return nil, fmt.Errorf("stream not found: %w", err)
	}

	now := s.now()
	stream.Status = models.StreamStatusLive
	stream.StartedAt = &now
	stream.EndedAt = nil
	stream.Duration = 0
	stream.UpdatedAt = now

	if err := s.dynamoRepo.UpdateStream(ctx, stream); err != nil {
		return nil, fmt.Errorf("failed to update stream: %w", err)
	}

	if err := s.redisRepo.CacheStream(ctx, stream, 24*time.Hour); err != nil {
		s.logger.Warn().Err(err).Str("stream_id", stream.ID).Msg("could not cache stream")
	}

	s.publish(map[string]interface{}{
		"event_type": "stream_started",
		"stream_id":  stream.ID,
		"creator_id": stream.CreatorID,
		"timestamp":  now.Unix(),
	})

	return stream, nil
}

// EndStream transitions a stream to ended, recording the duration the
// broadcast callback reports (seconds, as a string).
func (s *StreamService) EndStream(ctx context.Context, streamKey string, duration string) error {
	stream, err := s.dynamoRepo.GetStreamByStreamKey(ctx, streamKey)
	if err != nil {
		return fmt.Errorf("stream not found: %w", err)
	}

	durationSec := int64(0)
	if duration != "" {
		if d, err := strconv.ParseInt(duration, 10, 64); err == nil {
			durationSec = d
		}
	}
	now := s.now()
	if durationSec == 0 && stream.StartedAt != nil {
		durationSec = int64(now.Sub(*stream.StartedAt).Seconds())
	}

	stream.Status = models.StreamStatusEnded
	stream.EndedAt = &now
	stream.Duration = durationSec
	stream.UpdatedAt = now

	if err := s.dynamoRepo.UpdateStream(ctx, stream); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}

	if err := s.redisRepo.CacheStream(ctx, stream, time.Hour); err != nil {
		s.logger.Warn().Err(err).Str("stream_id", stream.ID).Msg("could not cache stream")
	}

	s.publish(map[string]interface{}{
		"event_type": "stream_ended",
		"stream_id":  stream.ID,
		"creator_id": stream.CreatorID,
		"duration":   durationSec,
		"timestamp":  now.Unix(),
	})

	return nil
}

// UpdateStreamRecording uploads the finished recording and stores its URL.
func (s *StreamService) UpdateStreamRecording(ctx context.Context, streamKey string, filePath string) error {
	stream, err := s.dynamoRepo.GetStreamByStreamKey(ctx, streamKey)
	if err != nil {
		return fmt.Errorf("stream not found: %w", err)
	}

	key := fmt.Sprintf("recordings/%s/%s.flv", stream.CreatorID, stream.ID)
	recordingURL, err := s.uploader.UploadRecording(filePath, key)
	if err != nil {
		return fmt.Errorf("failed to upload recording: %w", err)
	}

	stream.RecordingURL = recordingURL
	stream.IsRecorded = true
	stream.UpdatedAt = s.now()

	if err := s.dynamoRepo.UpdateStream(ctx, stream); err != nil {
		return fmt.Errorf("failed to update stream recording: %w", err)
	}

	if err := s.redisRepo.CacheStream(ctx, stream, time.Hour); err != nil {
		s.logger.Warn().Err(err).Str("stream_id", stream.ID).Msg("could not cache stream")
	}

	return nil
}

// UpdateViewerCount writes the aggregator's live counts back to the
// stream record so discovery ranks on fresh numbers.
func (s *StreamService) UpdateViewerCount(ctx context.Context, streamID string, viewerCount, peakViewerCount int) error {
	stream, err := s.GetStream(ctx, streamID)
	if err != nil {
		return err
	}

	stream.ViewerCount = viewerCount
	if peakViewerCount > stream.PeakViewerCount {
		stream.PeakViewerCount = peakViewerCount
	}
	stream.UpdatedAt = s.now()

	if err := s.dynamoRepo.UpdateStream(ctx, stream); err != nil {
		return fmt.Errorf("failed to update viewer count: %w", err)
	}

	if err := s.redisRepo.CacheStream(ctx, stream, time.Hour); err != nil {
		s.logger.Warn().Err(err).Str("stream_id", streamID).Msg("could not cache stream")
	}

	return nil
}

// PlatformStats is the aggregate snapshot exposed on the stats endpoint.
type PlatformStats struct {
	LiveStreams  int   `json:"live_streams"`
	TotalViewers int   `json:"total_viewers"`
	TotalViews   int64 `json:"total_views"`
	GeneratedAt  int64 `json:"generated_at"`
}

func (s *StreamService) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	streams, err := s.dynamoRepo.GetStreamsByStatus(ctx, models.StreamStatusLive)
	if err != nil {
		return nil, fmt.Errorf("could not get live streams: %w", err)
	}

	stats := &PlatformStats{
		LiveStreams: len(streams),
		GeneratedAt: s.now().Unix(),
	}
	for _, stream := range streams {
		stats.TotalViewers += stream.ViewerCount
	}

	if totalViews, err := s.redisRepo.GetStat(ctx, "total_views"); err == nil {
		stats.TotalViews = totalViews
	}

	return stats, nil
}

// CleanupExpiredStreams force-ends streams stuck live past the max
// broadcast duration, usually after a broadcaster crash.
func (s *StreamService) CleanupExpiredStreams(ctx context.Context) (int, error) {
	streams, err := s.dynamoRepo.GetStreamsByStatus(ctx, models.StreamStatusLive)
	if err != nil {
		return 0, fmt.Errorf("could not get live streams: %w", err)
	}

	now := s.now()
	cleaned := 0
	for _, stream := range streams {
		if stream.StartedAt == nil || now.Sub(*stream.StartedAt) < maxLiveDuration {
			continue
		}

		stream.Status = models.StreamStatusEnded
		ended := now
		stream.EndedAt = &ended
		stream.Duration = int64(now.Sub(*stream.StartedAt).Seconds())
		stream.UpdatedAt = now

		if err := s.dynamoRepo.UpdateStream(ctx, stream); err != nil {
			s.logger.Error().Err(err).Str("stream_id", stream.ID).Msg("❌ could not clean up expired stream")
			continue
		}
		if err := s.redisRepo.InvalidateStream(ctx, stream.ID); err != nil {
			s.logger.Warn().Err(err).Str("stream_id", stream.ID).Msg("could not invalidate stream cache")
		}

		s.publish(map[string]interface{}{
			"event_type": "stream_expired",
			"stream_id":  stream.ID,
			"creator_id": stream.CreatorID,
			"timestamp":  now.Unix(),
		})
		cleaned++
	}

	return cleaned, nil
}

func (s *StreamService) StoreBroadcastSession(ctx context.Context, streamKey string, sessionData map[string]interface{}) error {
	sessionJSON, _ := json.Marshal(sessionData)
	return s.redisRepo.SetBroadcastSession(ctx, streamKey, string(sessionJSON), time.Hour)
}

func (s *StreamService) GetBroadcastSession(ctx context.Context, streamKey string) (map[string]interface{}, error) {
	sessionData, err := s.redisRepo.GetBroadcastSession(ctx, streamKey)
	if err != nil {
		return nil, err
	}

	var session map[string]interface{}
	err = json.Unmarshal([]byte(sessionData), &session)
	return session, err
}

func (s *StreamService) CleanupBroadcastSession(ctx context.Context, streamKey string) error {
	return s.redisRepo.DeleteBroadcastSession(ctx, streamKey)
}

func (s *StreamService) publish(event map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(event); err != nil {
		s.logger.Warn().Err(err).Interface("event", event["event_type"]).Msg("⚠️ could not publish event")
	}
}

func generateStreamID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
