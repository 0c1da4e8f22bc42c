package ws

import (
	"encoding/json"
	"sync"

	"tamv/internal/domain"
	"tamv/internal/logger"
)

// Hub fans notifications out to every open connection of their user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
	logger.Debug("ws client registered", "user_id", c.UserID, "connections", len(set))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.Send)
	if len(set) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Notify delivers n to the user's connections. A connection whose buffer is
// full drops the frame; the notification stays in the database.
func (h *Hub) Notify(n *domain.Notification) {
	msg, err := json.Marshal(Envelope{Type: MsgNotification, Data: n})
	if err != nil {
		logger.Error("ws marshal notification", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[n.UserID] {
		select {
		case c.Send <- msg:
		default:
			logger.Warn("ws send buffer full, dropping notification", "user_id", n.UserID, "notification_id", n.ID)
		}
	}
}

// Connections returns how many sockets the user has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Online returns the number of connected users.
func (h *Hub) Online() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
