package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Entity is the only entity the change feed reports on.
const Entity = "grocery_item"

// Message tells connected views that the list changed and should be re-read.
// It carries no item data; clients always refetch the full list.
type Message struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	ID     int64  `json:"id,omitempty"`
	Count  int64  `json:"count,omitempty"`
}

// NewMessage creates a Message whose Type is "grocery_item_<action>".
func NewMessage(action string, id int64) Message {
	return Message{
		Type:   Entity + "_" + action,
		Action: action,
		ID:     id,
	}
}

// Hub fans change messages out to every connected client.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", h.ClientCount())
}

// Unregister removes c and closes its send channel. Calling it twice is safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast never blocks: a client whose buffer is full misses the message
// and catches up on the next one, since every message means "refetch".
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping message for slow client", "type", msg.Type)
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
