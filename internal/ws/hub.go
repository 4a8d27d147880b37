package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/yati-kasera/chat-app/internal/presence"
	"github.com/yati-kasera/chat-app/internal/service"
)

// Hub is the connection manager. It owns the set of live clients and their
// room memberships: every client sits in the per-user room named by its user
// id for its whole lifetime, and in group rooms between explicit join and
// leave. Delivery is best-effort fan-out; durability lives in the store.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[string]*Client // connID -> client
	pres    *presence.Registry
}

func NewHub(pres *presence.Registry) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[string]*Client),
		pres:    pres,
	}
}

var _ service.Fanout = (*Hub)(nil)

// OnConnect registers the client, joins it to its per-user room, and
// broadcasts user-online when this is the user's first live connection.
func (h *Hub) OnConnect(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.joinLocked(c, c.UserID)
	h.mu.Unlock()

	// Presence and room membership are sequenced, not one critical section;
	// the brief window between them is acceptable (see the registry docs).
	if h.pres.Register(c.UserID, c.ID) {
		h.BroadcastAll(service.EventUserOnline, c.UserID)
	}
}

// OnDisconnect releases the client's presence entry, removes its room
// memberships, and broadcasts user-offline when its user has no connections
// left. Calling it twice for the same client is harmless.
func (h *Hub) OnDisconnect(c *Client) {
	userID, becameOffline := h.pres.Unregister(c.ID)

	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		for roomID := range c.rooms {
			h.leaveLocked(c, roomID)
		}
		close(c.send)
	}
	h.mu.Unlock()

	if becameOffline {
		h.BroadcastAll(service.EventUserOffline, userID)
	}
}

// JoinRoom adds the connection to a room. Authorization happens in the
// routing engine before this is called; the hub only tracks membership.
func (h *Hub) JoinRoom(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		h.joinLocked(c, roomID)
	}
}

// LeaveRoom removes the connection from a room. Leaving a room the
// connection is not in is a no-op.
func (h *Hub) LeaveRoom(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		h.leaveLocked(c, roomID)
	}
}

func (h *Hub) joinLocked(c *Client, roomID string) {
	set, ok := h.rooms[roomID]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[roomID] = set
	}
	set[c] = struct{}{}
	c.rooms[roomID] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, roomID string) {
	if set, ok := h.rooms[roomID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(c.rooms, roomID)
}

// EmitToRoom delivers the event to every connection currently in the room.
// A slow or dead connection never blocks delivery to its siblings: the
// payload is dropped for that connection and the read side will notice the
// broken socket and disconnect it.
func (h *Hub) EmitToRoom(roomID, event string, payload any) {
	data, ok := encodeEvent(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.trySend(data)
	}
}

// EmitToRoomExcept is EmitToRoom minus one connection, used for typing
// indicators where the sender must not be notified about itself.
func (h *Hub) EmitToRoomExcept(roomID, exceptConnID, event string, payload any) {
	data, ok := encodeEvent(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		if c.ID == exceptConnID {
			continue
		}
		c.trySend(data)
	}
}

// BroadcastAll delivers the event to every live connection.
func (h *Hub) BroadcastAll(event string, payload any) {
	data, ok := encodeEvent(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.trySend(data)
	}
}

// RoomSize reports how many connections are currently in the room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func encodeEvent(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(Envelope{Event: event, Data: mustRaw(payload)})
	if err != nil {
		log.Printf("hub: marshal %s: %v", event, err)
		return nil, false
	}
	return data, true
}

func mustRaw(payload any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}
