// internal/models/stream.go
package models

import (
	"time"
)

type StreamStatus string

const (
	StreamStatusScheduled StreamStatus = "scheduled"
	StreamStatusLive      StreamStatus = "live"
	StreamStatusEnded     StreamStatus = "ended"
)

type StreamQuality string

const (
	QualitySD StreamQuality = "sd"
	QualityHD StreamQuality = "hd"
	Quality4K StreamQuality = "4k"
)

type StreamCategory string

const (
	CategoryMusic     StreamCategory = "music"
	CategoryComedy    StreamCategory = "comedy"
	CategoryDance     StreamCategory = "dance"
	CategoryCooking   StreamCategory = "cooking"
	CategoryTalk      StreamCategory = "talk"
	CategoryFitness   StreamCategory = "fitness"
	CategoryLifestyle StreamCategory = "lifestyle"
)

type Stream struct {
	ID              string            `json:"id" dynamodbav:"id"`
	CreatorID       string            `json:"creator_id" dynamodbav:"creator_id"`
	StreamKey       string            `json:"stream_key,omitempty" dynamodbav:"stream_key"`
	Title           string            `json:"title" dynamodbav:"title"`
	Category        StreamCategory    `json:"category" dynamodbav:"category"`
	Language        string            `json:"language" dynamodbav:"language"`
	Status          StreamStatus      `json:"status" dynamodbav:"status"`
	Quality         StreamQuality     `json:"quality" dynamodbav:"quality"`
	StartedAt       *time.Time        `json:"started_at,omitempty" dynamodbav:"started_at,omitempty"`
	EndedAt         *time.Time        `json:"ended_at,omitempty" dynamodbav:"ended_at,omitempty"`
	Duration        int64             `json:"duration" dynamodbav:"duration"` // seconds
	ViewerCount     int               `json:"viewer_count" dynamodbav:"viewer_count"`
	PeakViewerCount int               `json:"peak_viewer_count" dynamodbav:"peak_viewer_count"`
	IsFeatured      bool              `json:"is_featured" dynamodbav:"is_featured"`
	IsPremium       bool              `json:"is_premium" dynamodbav:"is_premium"`
	HasChat         bool              `json:"has_chat" dynamodbav:"has_chat"`
	IsRecorded      bool              `json:"is_recorded" dynamodbav:"is_recorded"`
	CreatorVerified bool              `json:"creator_verified" dynamodbav:"creator_verified"`
	IsFollowed      bool              `json:"is_followed" dynamodbav:"-"` // per-viewer view flag, never persisted
	Tags            []string          `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
	RecordingURL    string            `json:"recording_url,omitempty" dynamodbav:"recording_url,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" dynamodbav:"updated_at"`
}

// StartHour returns the hour-of-day and weekday the stream started, or
// false when the stream has not started yet.
func (s *Stream) StartHour() (hour int, weekday time.Weekday, ok bool) {
	if s.StartedAt == nil {
		return 0, 0, false
	}
	return s.StartedAt.Hour(), s.StartedAt.Weekday(), true
}

// AgeHours is the time elapsed since the stream started, in hours.
// Streams without a start time are treated as infinitely old.
func (s *Stream) AgeHours(now time.Time) float64 {
	if s.StartedAt == nil {
		return 1e9
	}
	return now.Sub(*s.StartedAt).Hours()
}

type SortOption string

const (
	SortTrending        SortOption = "trending"
	SortMostViewers     SortOption = "most-viewers"
	SortRecentlyStarted SortOption = "recently-started"
	SortFollowing       SortOption = "following"
	SortCategory        SortOption = "category"
	SortLanguage        SortOption = "language"
	SortRelevance       SortOption = "relevance"
)

// StreamFilter is a conjunction of optional predicates. A zero field means
// "no constraint", never "exclude all". PremiumOnly and FreeOnly are both
// honored literally even when a caller sets both.
type StreamFilter struct {
	Categories   []StreamCategory `json:"categories,omitempty"`
	Languages    []string         `json:"languages,omitempty"`
	Statuses     []StreamStatus   `json:"statuses,omitempty"`
	FollowedOnly bool             `json:"followed_only,omitempty"`
	PremiumOnly  bool             `json:"premium_only,omitempty"`
	FreeOnly     bool             `json:"free_only,omitempty"`
	MinViewers   *int             `json:"min_viewers,omitempty"`
	MaxViewers   *int             `json:"max_viewers,omitempty"`
	Qualities    []StreamQuality  `json:"qualities,omitempty"`
}
