// internal/realtime/transport.go
package realtime

import (
	"context"
	"encoding/json"

	"github.com/fanlive/live-platform/internal/models"
)

// Broadcast event names delivered on a stream channel.
const (
	BroadcastChat    = "chat:message"
	BroadcastGift    = "gift:received"
	BroadcastMetrics = "metrics:updated"
)

// ChannelHandlers receive transport callbacks for one subscribed channel.
// The transport must invoke them sequentially per channel; the aggregator
// relies on that for event ordering within a stream.
type ChannelHandlers struct {
	OnPresenceSync  func(state map[string][]models.ViewerInfo)
	OnPresenceJoin  func(key string, joined []models.ViewerInfo)
	OnPresenceLeave func(key string, left []models.ViewerInfo)
	OnBroadcast     func(event string, payload json.RawMessage)
}

// Channel is a named realtime topic scoped to one stream, supporting
// presence tracking and broadcast events. Implementations deliver
// broadcasts at-least-once to currently subscribed clients and make no
// ordering promise across channels.
type Channel interface {
	Subscribe(ctx context.Context, h ChannelHandlers) error
	Track(ctx context.Context, key string, info models.ViewerInfo) error
	Untrack(ctx context.Context, key string) error
	Broadcast(ctx context.Context, event string, payload interface{}) error
	Unsubscribe(ctx context.Context) error
}

// Transport hands out named channels. The concrete implementation lives
// at the server layer (websocket hub); tests use an in-memory fake.
type Transport interface {
	Channel(name string) Channel
}

// EventStore is the append-only durable write interface the aggregator
// needs. Writes are a best-effort audit trail; the aggregator never reads.
type EventStore interface {
	AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error
	AppendGift(ctx context.Context, gift *models.Gift) error
}

// EventPublisher pushes analytics events to the firehose, best-effort.
type EventPublisher interface {
	PublishEvent(event map[string]interface{}) error
}
