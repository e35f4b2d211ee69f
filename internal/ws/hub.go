package ws

import (
	"encoding/json"
	"log/slog"
	"sync"

	"furnishop/internal/lib/sl"
)

const (
	EventSession  = "session"
	EventMessages = "messages"
	EventTyping   = "typing"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type roomEvent struct {
	sessionID string
	from      *Client
	data      []byte
}

// Hub keeps one room per chat session. Store snapshots go straight to the
// client; the hub only fans out client-originated events like typing.
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan *roomEvent
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *roomEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log.With(sl.Module("ws.hub")),
	}
}

// Run starts the hub's event loop. Should be called in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.sessionID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.sessionID] = room
			}
			room[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			client.close()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[event.sessionID] {
				if client == event.from {
					continue
				}
				if err := client.push(event.data); err != nil {
					h.remove(client)
					client.close()
				}
			}
			h.mu.Unlock()
		}
	}
}

// Online reports how many clients watch the session.
func (h *Hub) Online(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

func (h *Hub) remove(client *Client) {
	room, ok := h.rooms[client.sessionID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.sessionID)
	}
}

// BroadcastTyping tells the other clients in the room that the sender is typing.
func (h *Hub) BroadcastTyping(from *Client) {
	data, err := json.Marshal(&Event{
		Type: EventTyping,
		Data: map[string]string{
			"session_id": from.sessionID,
			"user_id":    from.userID,
		},
	})
	if err != nil {
		return
	}
	h.broadcast <- &roomEvent{sessionID: from.sessionID, from: from, data: data}
}

// clientEvent represents an incoming websocket message.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// HandleClientMessage parses and dispatches an incoming message from a client.
func (h *Hub) HandleClientMessage(from *Client, raw []byte) {
	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		h.log.With(
			slog.String("user_id", from.userID),
			sl.Err(err),
		).Warn("failed to parse client ws message")
		return
	}

	switch event.Type {
	case EventTyping:
		h.BroadcastTyping(from)
	default:
		h.log.With(
			slog.String("user_id", from.userID),
			slog.String("type", event.Type),
		).Debug("unsupported client event")
	}
}
