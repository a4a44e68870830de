// internal/models/chat.go
package models

import "time"

// ChatMessage is a durable, append-only event record tied to a stream and
// a viewer. The realtime broadcast is the primary delivery; the DynamoDB
// write is a best-effort audit trail.
type ChatMessage struct {
	ID            string     `json:"id" dynamodbav:"id"`
	StreamID      string     `json:"stream_id" dynamodbav:"stream_id"`
	UserID        string     `json:"user_id" dynamodbav:"user_id"`
	Username      string     `json:"username" dynamodbav:"username"`
	Message       string     `json:"message" dynamodbav:"message"`
	Role          ViewerRole `json:"role" dynamodbav:"role"`
	IsHighlighted bool       `json:"is_highlighted" dynamodbav:"is_highlighted"`
	CreatedAt     time.Time  `json:"created_at" dynamodbav:"created_at"`
}

type GiftType string

const (
	GiftTypeHeart   GiftType = "heart"
	GiftTypeStar    GiftType = "star"
	GiftTypeDiamond GiftType = "diamond"
	GiftTypeCustom  GiftType = "custom"
)

// Gift records a tip sent to a live stream.
type Gift struct {
	ID        string    `json:"id" dynamodbav:"id"`
	StreamID  string    `json:"stream_id" dynamodbav:"stream_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Username  string    `json:"username" dynamodbav:"username"`
	Amount    float64   `json:"amount" dynamodbav:"amount"`
	Message   string    `json:"message,omitempty" dynamodbav:"message,omitempty"`
	GiftType  GiftType  `json:"gift_type" dynamodbav:"gift_type"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}
