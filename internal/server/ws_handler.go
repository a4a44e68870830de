package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/models"
	"github.com/fanlive/live-platform/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development.
		// In production, implement proper origin checking.
		return true
	},
}

// WebSocketHandler upgrades viewer connections and bridges inbound client
// messages to the realtime manager.
type WebSocketHandler struct {
	manager *realtime.Manager
	hub     *Hub
	logger  zerolog.Logger
}

// clientMessage is the inbound message shape from viewer clients.
type clientMessage struct {
	Type     string          `json:"type"` // join | leave | chat | gift
	StreamID string          `json:"stream_id"`
	Message  string          `json:"message,omitempty"`
	Amount   float64         `json:"amount,omitempty"`
	GiftType models.GiftType `json:"gift_type,omitempty"`
}

func NewWebSocketHandler(manager *realtime.Manager, hub *Hub, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager: manager,
		hub:     hub,
		logger:  logger.With().Str("component", "ws-handler").Logger(),
	}
}

func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	viewer := models.ViewerInfo{
		ViewerID:         r.URL.Query().Get("viewer_id"),
		DisplayName:      r.URL.Query().Get("display_name"),
		AvatarURL:        r.URL.Query().Get("avatar_url"),
		Role:             models.ViewerRole(r.URL.Query().Get("role")),
		SubscriptionTier: r.URL.Query().Get("tier"),
	}
	if viewer.Role == "" {
		viewer.Role = models.RoleFan
	}

	// Presence payloads are validated here at the transport boundary;
	// malformed ones never reach the aggregator.
	session, err := h.manager.NewSession(viewer)
	if err != nil {
		h.logger.Warn().Err(err).Str("viewer_id", viewer.ViewerID).Msg("rejected malformed presence payload")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	client := &Client{
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
		ViewerID: viewer.ViewerID,
		Username: viewer.DisplayName,
		Rooms:    make(map[string]bool),
	}

	h.hub.RegisterClient(client)

	// The request context dies once the handler returns on a hijacked
	// connection, so post-upgrade work runs under a connection-scoped one.
	ctx, cancel := context.WithCancel(context.Background())

	go client.WritePump()
	go func() {
		client.ReadPump(func(raw []byte) {
			h.dispatch(ctx, client, session, raw)
		})
		// Connection dropped: release all presence held by the session.
		session.LeaveAll(ctx)
		cancel()
	}()
}

func (h *WebSocketHandler) dispatch(ctx context.Context, client *Client, session *realtime.Session, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warn().Err(err).Str("viewer_id", client.ViewerID).Msg("discarding malformed client message")
		return
	}
	if msg.StreamID == "" {
		h.logger.Warn().Str("viewer_id", client.ViewerID).Str("type", msg.Type).Msg("client message missing stream_id")
		return
	}

	switch msg.Type {
	case "join":
		if err := session.Join(ctx, msg.StreamID); err != nil {
			h.logger.Warn().Err(err).Str("stream_id", msg.StreamID).Msg("join failed")
			return
		}
		// Attach the socket to the room so the viewer receives frames.
		h.hub.JoinRoom(client, "stream:"+msg.StreamID)

	case "leave":
		h.hub.LeaveRoom(client, "stream:"+msg.StreamID)
		if err := session.Leave(ctx, msg.StreamID); err != nil {
			h.logger.Warn().Err(err).Str("stream_id", msg.StreamID).Msg("leave failed")
		}

	case "chat":
		if _, err := session.SendChatMessage(ctx, msg.StreamID, msg.Message); err != nil {
			h.logger.Warn().Err(err).Str("stream_id", msg.StreamID).Msg("chat message rejected")
		}

	case "gift":
		if _, err := session.SendGift(ctx, msg.StreamID, msg.Amount, msg.Message, msg.GiftType); err != nil {
			h.logger.Warn().Err(err).Str("stream_id", msg.StreamID).Msg("gift rejected")
		}

	default:
		h.logger.Warn().Str("type", msg.Type).Msg("unknown client message type")
	}
}
