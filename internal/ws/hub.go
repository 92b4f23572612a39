package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// client wraps a websocket connection with a write lock so broadcasts from
// other goroutines (bot timer, presence updates) cannot interleave frames
// with the connection's own handler.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

// Hub tracks room membership: visitor rooms keyed by visitor identity (one
// room per identity, shared by all of that visitor's tabs) and the single
// agent room. Membership changes take the hub lock; actual writes happen
// outside it against a snapshot of the targets.
type Hub struct {
	mu       sync.RWMutex
	visitors map[string]map[*client]struct{}
	agents   map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		visitors: make(map[string]map[*client]struct{}),
		agents:   make(map[*client]struct{}),
	}
}

func (h *Hub) joinVisitor(visitorID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.visitors[visitorID] == nil {
		h.visitors[visitorID] = make(map[*client]struct{})
	}
	h.visitors[visitorID][c] = struct{}{}
}

func (h *Hub) leaveVisitor(visitorID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.visitors[visitorID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.visitors, visitorID)
		}
	}
}

func (h *Hub) joinAgents(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.agents[c] = struct{}{}
}

func (h *Hub) leaveAgents(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.agents, c)
}

// SendToVisitor delivers the payload to every live connection of the given
// visitor identity. Failed connections are closed; the handler's read loop
// notices and cleans up membership.
func (h *Hub) SendToVisitor(visitorID string, payload any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.visitors[visitorID]))
	for c := range h.visitors[visitorID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			c.conn.Close()
		}
	}
}

// BroadcastToAgents delivers the payload to every dashboard connection.
func (h *Hub) BroadcastToAgents(payload any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.agents))
	for c := range h.agents {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.send(payload); err != nil {
			c.conn.Close()
		}
	}
}
