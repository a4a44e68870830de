package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fanlive/live-platform/internal/models"
	"github.com/fanlive/live-platform/internal/realtime"
)

// Hub maintains active websocket connections and implements the realtime
// channel transport: each room is one stream channel carrying presence
// state and broadcast events for its subscribers.
type Hub struct {
	logger zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]*room
}

type room struct {
	name     string
	clients  map[*Client]bool
	presence map[string][]models.ViewerInfo
	handlers map[*hubChannel]realtime.ChannelHandlers
}

// Client represents a websocket client attached to the hub.
type Client struct {
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
	ViewerID string
	Username string
	Rooms    map[string]bool

	closeOnce sync.Once
}

// closeSend closes the outbound channel exactly once, no matter how many
// paths (unregister, shutdown, slow-consumer drop) race to do it.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger: logger.With().Str("component", "ws-hub").Logger(),
		rooms:  make(map[string]*room),
	}
}

// Channel implements realtime.Transport.
func (h *Hub) Channel(name string) realtime.Channel {
	return &hubChannel{hub: h, name: name}
}

func (h *Hub) getOrCreateRoomLocked(name string) *room {
	r, ok := h.rooms[name]
	if !ok {
		r = &room{
			name:     name,
			clients:  make(map[*Client]bool),
			presence: make(map[string][]models.ViewerInfo),
			handlers: make(map[*hubChannel]realtime.ChannelHandlers),
		}
		h.rooms[name] = r
	}
	return r
}

// RegisterClient attaches a client to the hub.
func (h *Hub) RegisterClient(client *Client) {
	h.logger.Debug().Str("viewer_id", client.ViewerID).Msg("client registered")
}

// UnregisterClient detaches a client from every room and closes its send
// channel.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	for name := range client.Rooms {
		if r, ok := h.rooms[name]; ok {
			delete(r.clients, client)
			h.maybeDropRoomLocked(name, r)
		}
	}
	client.Rooms = make(map[string]bool)
	h.mu.Unlock()

	client.closeSend()
	h.logger.Debug().Str("viewer_id", client.ViewerID).Msg("client unregistered")
}

// JoinRoom adds a client to a room so it receives that room's frames.
func (h *Hub) JoinRoom(client *Client, name string) {
	h.mu.Lock()
	r := h.getOrCreateRoomLocked(name)
	r.clients[client] = true
	client.Rooms[name] = true
	h.mu.Unlock()
}

// LeaveRoom removes a client from a room.
func (h *Hub) LeaveRoom(client *Client, name string) {
	h.mu.Lock()
	if r, ok := h.rooms[name]; ok {
		delete(r.clients, client)
		h.maybeDropRoomLocked(name, r)
	}
	delete(client.Rooms, name)
	h.mu.Unlock()
}

// Empty rooms with no subscribers are deleted.
func (h *Hub) maybeDropRoomLocked(name string, r *room) {
	if len(r.clients) == 0 && len(r.handlers) == 0 && len(r.presence) == 0 {
		delete(h.rooms, name)
	}
}

// Close tears down every client connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[*Client]bool)
	for _, r := range h.rooms {
		for client := range r.clients {
			if !seen[client] {
				seen[client] = true
				client.closeSend()
				client.Conn.Close()
			}
		}
	}
	h.rooms = make(map[string]*room)
}

// frame is the wire envelope delivered to websocket clients.
type frame struct {
	Event   string      `json:"event"`
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
}

// sendFrame delivers a frame to every client in the room. Slow consumers
// are dropped rather than blocking the room.
func (h *Hub) sendFrame(name string, f frame) {
	data, err := json.Marshal(f)
	if err != nil {
		h.logger.Error().Err(err).Str("event", f.Event).Msg("failed to marshal frame")
		return
	}

	h.mu.Lock()
	r, ok := h.rooms[name]
	if !ok {
		h.mu.Unlock()
		return
	}
	for client := range r.clients {
		select {
		case client.Send <- data:
		default:
			// Slow consumer: drop it from the room rather than block.
			delete(r.clients, client)
			client.closeSend()
		}
	}
	h.mu.Unlock()
}

// hubChannel is one subscriber's view of a room, satisfying
// realtime.Channel.
type hubChannel struct {
	hub  *Hub
	name string
}

func (c *hubChannel) Subscribe(_ context.Context, handlers realtime.ChannelHandlers) error {
	c.hub.mu.Lock()
	r := c.hub.getOrCreateRoomLocked(c.name)
	r.handlers[c] = handlers
	c.hub.mu.Unlock()
	return nil
}

func (c *hubChannel) Unsubscribe(_ context.Context) error {
	c.hub.mu.Lock()
	if r, ok := c.hub.rooms[c.name]; ok {
		delete(r.handlers, c)
		c.hub.maybeDropRoomLocked(c.name, r)
	}
	c.hub.mu.Unlock()
	return nil
}

// Track adds a presence entry under the given key and notifies all
// subscribed handlers with a join and a fresh presence sync. Handlers are
// invoked outside the hub lock so they may call back into the hub.
func (c *hubChannel) Track(_ context.Context, key string, info models.ViewerInfo) error {
	c.hub.mu.Lock()
	r := c.hub.getOrCreateRoomLocked(c.name)
	r.presence[key] = append(r.presence[key], info)
	handlers, state := r.handlersAndStateLocked()
	c.hub.mu.Unlock()

	for _, h := range handlers {
		if h.OnPresenceJoin != nil {
			h.OnPresenceJoin(key, []models.ViewerInfo{info})
		}
	}
	c.syncPresence(handlers, state)
	c.hub.sendFrame(c.name, frame{Event: "presence:join", Channel: c.name, Payload: info})
	return nil
}

// Untrack removes one presence entry for the key. Unknown keys are a
// no-op.
func (c *hubChannel) Untrack(_ context.Context, key string) error {
	c.hub.mu.Lock()
	r, ok := c.hub.rooms[c.name]
	if !ok {
		c.hub.mu.Unlock()
		return nil
	}
	entries := r.presence[key]
	if len(entries) == 0 {
		c.hub.mu.Unlock()
		return nil
	}
	left := entries[len(entries)-1]
	if len(entries) == 1 {
		delete(r.presence, key)
	} else {
		r.presence[key] = entries[:len(entries)-1]
	}
	handlers, state := r.handlersAndStateLocked()
	c.hub.mu.Unlock()

	for _, h := range handlers {
		if h.OnPresenceLeave != nil {
			h.OnPresenceLeave(key, []models.ViewerInfo{left})
		}
	}
	c.syncPresence(handlers, state)
	c.hub.sendFrame(c.name, frame{Event: "presence:leave", Channel: c.name, Payload: left})
	return nil
}

// Broadcast sends an event to every websocket client in the room and
// loops it back to local subscribed handlers.
func (c *hubChannel) Broadcast(_ context.Context, event string, payload interface{}) error {
	c.hub.sendFrame(c.name, frame{Event: event, Channel: c.name, Payload: payload})

	c.hub.mu.RLock()
	var handlers []realtime.ChannelHandlers
	if r, ok := c.hub.rooms[c.name]; ok {
		handlers = r.handlersLocked()
	}
	c.hub.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	for _, h := range handlers {
		if h.OnBroadcast != nil {
			h.OnBroadcast(event, raw)
		}
	}
	return nil
}

func (c *hubChannel) syncPresence(handlers []realtime.ChannelHandlers, state map[string][]models.ViewerInfo) {
	for _, h := range handlers {
		if h.OnPresenceSync != nil {
			h.OnPresenceSync(state)
		}
	}
}

func (r *room) handlersLocked() []realtime.ChannelHandlers {
	handlers := make([]realtime.ChannelHandlers, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	return handlers
}

func (r *room) handlersAndStateLocked() ([]realtime.ChannelHandlers, map[string][]models.ViewerInfo) {
	state := make(map[string][]models.ViewerInfo, len(r.presence))
	for k, v := range r.presence {
		state[k] = append([]models.ViewerInfo(nil), v...)
	}
	return r.handlersLocked(), state
}

// ReadPump drains inbound frames, dispatching each through the supplied
// handler until the connection drops.
func (c *Client) ReadPump(handle func([]byte)) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn().Err(err).Str("viewer_id", c.ViewerID).Msg("websocket read error")
			}
			break
		}
		handle(message)
	}
}

// WritePump flushes outbound frames to the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.Hub.logger.Warn().Err(err).Str("viewer_id", c.ViewerID).Msg("websocket write error")
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
