package realtime

import (
	"context"
	"sync"

	"github.com/fanlive/live-platform/internal/models"
)

// Session binds a viewer identity to the shared manager, giving each
// connection the stream-scoped join/leave/send surface the UI layer
// expects. One session per websocket connection. The session remembers
// which streams it joined: repeated joins for the same stream are a
// no-op, and leave only releases presence this session itself tracked,
// so a disconnect can never strand an entry or steal another tab's.
type Session struct {
	manager *Manager
	viewer  models.ViewerInfo

	mu     sync.Mutex
	joined map[string]bool
}

func (m *Manager) NewSession(viewer models.ViewerInfo) (*Session, error) {
	if err := viewer.Validate(); err != nil {
		return nil, err
	}
	return &Session{manager: m, viewer: viewer, joined: make(map[string]bool)}, nil
}

func (s *Session) Viewer() models.ViewerInfo {
	return s.viewer
}

// Join subscribes this session to a stream. Joining a stream the session
// already joined is a no-op: the session holds exactly one presence entry
// per stream no matter how many join messages the client sends.
func (s *Session) Join(ctx context.Context, streamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.joined[streamID] {
		return nil
	}

	if err := s.manager.JoinStream(ctx, streamID, s.viewer); err != nil {
		return err
	}
	s.joined[streamID] = true
	return nil
}

// Leave releases this session's presence entry for the stream. Leaving a
// stream the session never joined is a no-op.
func (s *Session) Leave(ctx context.Context, streamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.joined[streamID] {
		return nil
	}
	delete(s.joined, streamID)
	return s.manager.LeaveStream(ctx, streamID, s.viewer.ViewerID)
}

func (s *Session) SendChatMessage(ctx context.Context, streamID, message string) (*models.ChatMessage, error) {
	return s.manager.SendChatMessage(ctx, streamID, s.viewer.ViewerID, s.viewer.DisplayName, message, s.viewer.Role)
}

func (s *Session) SendGift(ctx context.Context, streamID string, amount float64, message string, giftType models.GiftType) (*models.Gift, error) {
	return s.manager.SendGift(ctx, streamID, s.viewer.ViewerID, s.viewer.DisplayName, amount, message, giftType)
}

// LeaveAll releases every presence entry this session tracked. Called
// when the underlying connection drops.
func (s *Session) LeaveAll(ctx context.Context) {
	s.mu.Lock()
	streamIDs := make([]string, 0, len(s.joined))
	for id := range s.joined {
		streamIDs = append(streamIDs, id)
	}
	s.joined = make(map[string]bool)
	s.mu.Unlock()

	for _, id := range streamIDs {
		_ = s.manager.LeaveStream(ctx, id, s.viewer.ViewerID)
	}
}
