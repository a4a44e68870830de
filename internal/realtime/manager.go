// internal/realtime/manager.go
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/models"
)

// ErrNotConnected is returned by send operations on a stream with no
// active channel. The caller should join the stream first.
var ErrNotConnected = errors.New("stream channel not connected")

const persistTimeout = 5 * time.Second

// Manager is the realtime presence and metrics aggregator. It owns the
// streamID -> channel state map; all access goes through its methods.
// Construct one per process and inject it wherever channels are needed;
// there is no package-level instance.
type Manager struct {
	transport Transport
	store     EventStore
	publisher EventPublisher // optional
	logger    zerolog.Logger
	now       func() time.Time

	mu       sync.Mutex
	channels map[string]*streamChannel

	listenerMu sync.RWMutex
	listeners  []func(Event)
}

// streamChannel bundles the per-stream mutable state. Its own lock guards
// presence and metrics so two streams never contend with each other.
type streamChannel struct {
	streamID string
	channel  Channel

	mu       sync.Mutex
	presence map[string][]models.ViewerInfo
	metrics  models.LiveMetrics
}

func NewManager(transport Transport, store EventStore, logger zerolog.Logger) *Manager {
	return &Manager{
		transport: transport,
		store:     store,
		logger:    logger.With().Str("component", "realtime-manager").Logger(),
		now:       time.Now,
		channels:  make(map[string]*streamChannel),
	}
}

// WithPublisher attaches an analytics event publisher. Publishing is
// best-effort and never fails the calling operation.
func (m *Manager) WithPublisher(p EventPublisher) *Manager {
	m.publisher = p
	return m
}

// Notify registers a listener for local aggregator events. Listeners are
// invoked synchronously in registration order.
func (m *Manager) Notify(fn func(Event)) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) emit(ev Event) {
	m.listenerMu.RLock()
	listeners := make([]func(Event), len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// JoinStream subscribes the viewer to the stream's channel, creating the
// channel and registering its handlers exactly once per stream. Repeated
// joins for the same stream reuse the shared channel. The viewer's
// presence payload is tracked under their viewer id; multiple sessions of
// the same viewer track multiple entries.
func (m *Manager) JoinStream(ctx context.Context, streamID string, viewer models.ViewerInfo) error {
	if streamID == "" {
		return fmt.Errorf("stream id is required")
	}
	if err := viewer.Validate(); err != nil {
		return fmt.Errorf("invalid presence payload: %w", err)
	}
	if viewer.JoinedAt.IsZero() {
		viewer.JoinedAt = m.now().UTC()
	}

	m.mu.Lock()
	sc, ok := m.channels[streamID]
	if !ok {
		sc = &streamChannel{
			streamID: streamID,
			channel:  m.transport.Channel(channelName(streamID)),
			presence: make(map[string][]models.ViewerInfo),
			metrics:  models.LiveMetrics{StreamID: streamID},
		}
		if err := sc.channel.Subscribe(ctx, m.handlersFor(sc)); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("failed to subscribe to stream channel: %w", err)
		}
		m.channels[streamID] = sc
	}
	m.mu.Unlock()

	if err := sc.channel.Track(ctx, viewer.ViewerID, viewer); err != nil {
		return fmt.Errorf("failed to track presence: %w", err)
	}

	m.logger.Debug().Str("stream_id", streamID).Str("viewer_id", viewer.ViewerID).Msg("viewer joined stream")
	m.emit(Event{Type: EventViewerJoined, StreamID: streamID, Payload: viewer})
	return nil
}

// LeaveStream untracks one presence entry for the viewer. Leaving a
// stream with no active channel is a no-op, not an error, so it is always
// safe to call, including while a join for the same stream is in flight.
// The channel and its cached state are torn down once presence drains to
// empty.
func (m *Manager) LeaveStream(ctx context.Context, streamID, viewerID string) error {
	m.mu.Lock()
	sc, ok := m.channels[streamID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if err := sc.channel.Untrack(ctx, viewerID); err != nil {
		return fmt.Errorf("failed to untrack presence: %w", err)
	}

	m.logger.Debug().Str("stream_id", streamID).Str("viewer_id", viewerID).Msg("viewer left stream")
	return nil
}

// SendChatMessage broadcasts a chat message to the stream channel and
// persists it as a side effect. The broadcast is the primary guarantee:
// persistence runs asynchronously and its failure is logged, never
// surfaced to the caller or retried inline.
func (m *Manager) SendChatMessage(ctx context.Context, streamID, userID, userName, message string, role models.ViewerRole) (*models.ChatMessage, error) {
	sc := m.lookup(streamID)
	if sc == nil {
		return nil, fmt.Errorf("cannot send to stream %s: %w", streamID, ErrNotConnected)
	}

	msg := &models.ChatMessage{
		ID:            uuid.New().String(),
		StreamID:      streamID,
		UserID:        userID,
		Username:      userName,
		Message:       message,
		Role:          role,
		IsHighlighted: role.Highlighted(),
		CreatedAt:     m.now().UTC(),
	}

	if err := sc.channel.Broadcast(ctx, BroadcastChat, msg); err != nil {
		return nil, fmt.Errorf("failed to broadcast chat message: %w", err)
	}

	sc.mu.Lock()
	sc.metrics.ChatMessageCount++
	sc.mu.Unlock()

	m.emit(Event{Type: EventChatMessage, StreamID: streamID, Payload: msg})

	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := m.store.AppendChatMessage(pctx, msg); err != nil {
			m.logger.Warn().Err(err).Str("stream_id", streamID).Str("message_id", msg.ID).
				Msg("⚠️ chat message broadcast but not persisted")
		}
	}()

	return msg, nil
}

// SendGift broadcasts a gift, updates the stream's live metrics and
// re-broadcasts the updated metrics snapshot. Same broadcast-then-persist
// pattern as chat.
func (m *Manager) SendGift(ctx context.Context, streamID, userID, userName string, amount float64, message string, giftType models.GiftType) (*models.Gift, error) {
	sc := m.lookup(streamID)
	if sc == nil {
		return nil, fmt.Errorf("cannot send to stream %s: %w", streamID, ErrNotConnected)
	}

	gift := &models.Gift{
		ID:        uuid.New().String(),
		StreamID:  streamID,
		UserID:    userID,
		Username:  userName,
		Amount:    amount,
		Message:   message,
		GiftType:  giftType,
		CreatedAt: m.now().UTC(),
	}

	if err := sc.channel.Broadcast(ctx, BroadcastGift, gift); err != nil {
		return nil, fmt.Errorf("failed to broadcast gift: %w", err)
	}

	sc.mu.Lock()
	sc.metrics.TotalGifts++
	sc.metrics.TotalRevenue += amount
	snapshot := sc.metrics
	sc.mu.Unlock()

	m.emit(Event{Type: EventGiftReceived, StreamID: streamID, Payload: gift})

	if err := sc.channel.Broadcast(ctx, BroadcastMetrics, snapshot); err != nil {
		m.logger.Warn().Err(err).Str("stream_id", streamID).Msg("failed to broadcast metrics snapshot")
	} else {
		m.emit(Event{Type: EventMetricsUpdated, StreamID: streamID, Payload: snapshot})
	}

	m.publish(map[string]interface{}{
		"event_type": "gift_sent",
		"stream_id":  streamID,
		"user_id":    userID,
		"amount":     amount,
		"gift_type":  string(giftType),
		"timestamp":  m.now().Unix(),
	})

	go func() {
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := m.store.AppendGift(pctx, gift); err != nil {
			m.logger.Warn().Err(err).Str("stream_id", streamID).Str("gift_id", gift.ID).
				Msg("⚠️ gift broadcast but not persisted")
		}
	}()

	return gift, nil
}

// Metrics returns a copy of the cached live metrics snapshot. The
// aggregator is the sole writer; readers never recompute on demand.
func (m *Manager) Metrics(streamID string) (models.LiveMetrics, bool) {
	sc := m.lookup(streamID)
	if sc == nil {
		return models.LiveMetrics{}, false
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.metrics, true
}

// ViewerCount returns the cached viewer count for a stream, 0 when the
// stream has no channel.
func (m *Manager) ViewerCount(streamID string) int {
	metrics, _ := m.Metrics(streamID)
	return metrics.ViewerCount
}

// ActiveChannels returns the number of open stream channels.
func (m *Manager) ActiveChannels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels)
}

// Cleanup tears down every open channel and clears all in-memory state.
// Used on process shutdown, not per-stream.
func (m *Manager) Cleanup(ctx context.Context) {
	m.mu.Lock()
	channels := m.channels
	m.channels = make(map[string]*streamChannel)
	m.mu.Unlock()

	for id, sc := range channels {
		if err := sc.channel.Unsubscribe(ctx); err != nil {
			m.logger.Warn().Err(err).Str("stream_id", id).Msg("failed to unsubscribe channel during cleanup")
		}
	}
	m.logger.Info().Int("channels", len(channels)).Msg("realtime manager cleaned up")
}

func (m *Manager) lookup(streamID string) *streamChannel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[streamID]
}

func (m *Manager) handlersFor(sc *streamChannel) ChannelHandlers {
	return ChannelHandlers{
		OnPresenceSync: func(state map[string][]models.ViewerInfo) {
			m.handlePresenceSync(sc, state)
		},
		OnPresenceJoin: func(key string, joined []models.ViewerInfo) {
			sc.mu.Lock()
			sc.metrics.TotalViews += len(joined)
			sc.mu.Unlock()
		},
		OnPresenceLeave: func(key string, left []models.ViewerInfo) {
			for _, v := range left {
				m.emit(Event{Type: EventViewerLeft, StreamID: sc.streamID, Payload: v})
			}
		},
	}
}

// handlePresenceSync recomputes the viewer count as the total entry count
// across all presence keys (a key may hold several simultaneous entries,
// one per tab). The peak only ever moves up; it resets when the stream
// entity is recreated, never here.
func (m *Manager) handlePresenceSync(sc *streamChannel, state map[string][]models.ViewerInfo) {
	count := 0
	for _, entries := range state {
		count += len(entries)
	}

	sc.mu.Lock()
	sc.presence = state
	previous := sc.metrics.ViewerCount
	changed := count != previous
	if changed {
		sc.metrics.ViewerCount = count
		if count > sc.metrics.PeakViewerCount {
			sc.metrics.PeakViewerCount = count
		}
	}
	snapshot := sc.metrics
	sc.mu.Unlock()

	if !changed {
		return
	}

	m.emit(Event{Type: EventViewerCountChanged, StreamID: sc.streamID, Payload: ViewerCountChange{
		StreamID:      sc.streamID,
		Count:         count,
		PreviousCount: previous,
	}})
	m.emit(Event{Type: EventMetricsUpdated, StreamID: sc.streamID, Payload: snapshot})

	m.publish(map[string]interface{}{
		"event_type":     "viewer_count_changed",
		"stream_id":      sc.streamID,
		"viewer_count":   count,
		"previous_count": previous,
		"timestamp":      m.now().Unix(),
	})

	if count == 0 {
		m.teardown(sc.streamID)
	}
}

// teardown removes a drained channel and its cached state.
func (m *Manager) teardown(streamID string) {
	m.mu.Lock()
	sc, ok := m.channels[streamID]
	if ok {
		delete(m.channels, streamID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := sc.channel.Unsubscribe(ctx); err != nil {
		m.logger.Warn().Err(err).Str("stream_id", streamID).Msg("failed to unsubscribe drained channel")
	}
	m.logger.Debug().Str("stream_id", streamID).Msg("stream channel torn down")
}

func (m *Manager) publish(event map[string]interface{}) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishEvent(event); err != nil {
		m.logger.Warn().Err(err).Msg("failed to publish analytics event")
	}
}

func channelName(streamID string) string {
	return "stream:" + streamID
}
