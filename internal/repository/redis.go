// internal/repository/redis.go
package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/net/context"

	"github.com/fanlive/live-platform/internal/config"
	"github.com/fanlive/live-platform/internal/models"
)

type RedisRepository interface {
	CacheStream(ctx context.Context, stream *models.Stream, expiration time.Duration) error
	GetCachedStream(ctx context.Context, streamID string) (*models.Stream, error)
	InvalidateStream(ctx context.Context, streamID string) error
	CacheMessage(ctx context.Context, message *models.ChatMessage) error
	GetCachedMessages(ctx context.Context, streamID string, limit int) ([]*models.ChatMessage, error)
	SetMetricsSnapshot(ctx context.Context, metrics *models.LiveMetrics, expiration time.Duration) error
	GetMetricsSnapshot(ctx context.Context, streamID string) (*models.LiveMetrics, error)
	SetBroadcastSession(ctx context.Context, streamKey, sessionData string, expiration time.Duration) error
	GetBroadcastSession(ctx context.Context, streamKey string) (string, error)
	DeleteBroadcastSession(ctx context.Context, streamKey string) error
	SetPersonalization(ctx context.Context, userID string, data *models.PersonalizationData, expiration time.Duration) error
	GetPersonalization(ctx context.Context, userID string) (*models.PersonalizationData, error)
	IncrementStat(ctx context.Context, name string, delta int64) error
	GetStat(ctx context.Context, name string) (int64, error)
}

type redisRepository struct {
	client *redis.Client
}

func NewRedisRepository(cfg config.RedisConfig) (RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: client,
	}, nil
}

func (r *redisRepository) CacheStream(ctx context.Context, stream *models.Stream, expiration time.Duration) error {
	key := fmt.Sprintf("stream:%s", stream.ID)

	streamJSON, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal stream: %w", err)
	}

	err = r.client.Set(ctx, key, streamJSON, expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to cache stream: %w", err)
	}

	return nil
}

func (r *redisRepository) GetCachedStream(ctx context.Context, streamID string) (*models.Stream, error) {
	key := fmt.Sprintf("stream:%s", streamID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached stream: %w", err)
	}

	var stream models.Stream
	err = json.Unmarshal([]byte(data), &stream)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached stream: %w", err)
	}

	return &stream, nil
}

func (r *redisRepository) InvalidateStream(ctx context.Context, streamID string) error {
	key := fmt.Sprintf("stream:%s", streamID)

	err := r.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to invalidate stream cache: %w", err)
	}

	return nil
}

func (r *redisRepository) CacheMessage(ctx context.Context, message *models.ChatMessage) error {
	key := fmt.Sprintf("stream:%s:messages", message.StreamID)

	messageJSON, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	// Use sorted set with timestamp as score
	score := float64(message.CreatedAt.Unix())
	err = r.client.ZAdd(ctx, key, &redis.Z{
		Score:  score,
		Member: messageJSON,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to cache message: %w", err)
	}

	// Keep only last 100 messages
	r.client.ZRemRangeByRank(ctx, key, 0, -101)

	return nil
}

func (r *redisRepository) GetCachedMessages(ctx context.Context, streamID string, limit int) ([]*models.ChatMessage, error) {
	key := fmt.Sprintf("stream:%s:messages", streamID)

	// Get messages in reverse chronological order
	result, err := r.client.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cached messages: %w", err)
	}

	messages := make([]*models.ChatMessage, 0, len(result))
	for _, messageJSON := range result {
		var message models.ChatMessage
		err = json.Unmarshal([]byte(messageJSON), &message)
		if err != nil {
			continue // Skip invalid messages
		}
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *redisRepository) SetMetricsSnapshot(ctx context.Context, metrics *models.LiveMetrics, expiration time.Duration) error {
	key := fmt.Sprintf("stream:%s:metrics", metrics.StreamID)

	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	err = r.client.Set(ctx, key, metricsJSON, expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to set metrics snapshot: %w", err)
	}

	return nil
}

func (r *redisRepository) GetMetricsSnapshot(ctx context.Context, streamID string) (*models.LiveMetrics, error) {
	key := fmt.Sprintf("stream:%s:metrics", streamID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics snapshot: %w", err)
	}

	var metrics models.LiveMetrics
	err = json.Unmarshal([]byte(data), &metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics snapshot: %w", err)
	}

	return &metrics, nil
}

func (r *redisRepository) SetBroadcastSession(ctx context.Context, streamKey, sessionData string, expiration time.Duration) error {
	key := fmt.Sprintf("session:%s", streamKey)

	err := r.client.Set(ctx, key, sessionData, expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to set broadcast session: %w", err)
	}

	return nil
}

func (r *redisRepository) GetBroadcastSession(ctx context.Context, streamKey string) (string, error) {
	key := fmt.Sprintf("session:%s", streamKey)

	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to get broadcast session: %w", err)
	}

	return data, nil
}

func (r *redisRepository) DeleteBroadcastSession(ctx context.Context, streamKey string) error {
	key := fmt.Sprintf("session:%s", streamKey)

	err := r.client.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to delete broadcast session: %w", err)
	}

	return nil
}

func (r *redisRepository) SetPersonalization(ctx context.Context, userID string, data *models.PersonalizationData, expiration time.Duration) error {
	key := fmt.Sprintf("user:%s:personalization", userID)

	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal personalization data: %w", err)
	}

	err = r.client.Set(ctx, key, dataJSON, expiration).Err()
	if err != nil {
		return fmt.Errorf("failed to set personalization data: %w", err)
	}

	return nil
}

func (r *redisRepository) GetPersonalization(ctx context.Context, userID string) (*models.PersonalizationData, error) {
	key := fmt.Sprintf("user:%s:personalization", userID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get personalization data: %w", err)
	}

	var p models.PersonalizationData
	err = json.Unmarshal([]byte(data), &p)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal personalization data: %w", err)
	}

	return &p, nil
}

func (r *redisRepository) IncrementStat(ctx context.Context, name string, delta int64) error {
	key := fmt.Sprintf("stats:%s", name)
	return r.client.IncrBy(ctx, key, delta).Err()
}

func (r *redisRepository) GetStat(ctx context.Context, name string) (int64, error) {
	key := fmt.Sprintf("stats:%s", name)

	result, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	value, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0, err
	}

	return value, nil
}
