// Package registry tracks live visitor and agent connections. It is the only
// structure mutated from every connection handler, so all operations take the
// registry mutex; critical sections are map work only, never I/O.
package registry

import (
	"sync"
	"time"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

// LastMessage is the cached summary shown in the dashboard visitor list.
type LastMessage struct {
	Text      string            `json:"text"`
	Sender    domain.SenderKind `json:"sender"`
	Timestamp time.Time         `json:"timestamp"`
}

// VisitorPresence is one live visitor connection. A visitor with several tabs
// open has several presences, all bound to the same conversation.
type VisitorPresence struct {
	ConnID         string       `json:"socketId"`
	VisitorID      string       `json:"visitorId"`
	ConversationID int64        `json:"conversationId"`
	FirstName      *string      `json:"firstName,omitempty"`
	LastName       *string      `json:"lastName,omitempty"`
	JoinedAt       time.Time    `json:"joinedAt"`
	LastMessage    *LastMessage `json:"lastMessage"`
	IsBotActive    bool         `json:"isBotActive"`
}

// AgentPresence is one live dashboard connection.
type AgentPresence struct {
	ConnID   string    `json:"socketId"`
	AgentID  int64     `json:"agentId"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Registry answers "who is online". It is ephemeral: rebuilt empty on
// process restart, repopulated as connections register.
type Registry struct {
	mu       sync.Mutex
	visitors map[string]*VisitorPresence
	agents   map[string]*AgentPresence
}

func New() *Registry {
	return &Registry{
		visitors: make(map[string]*VisitorPresence),
		agents:   make(map[string]*AgentPresence),
	}
}

// RegisterVisitor inserts or replaces the presence entry for connID. It does
// not deduplicate by visitor identity: each tab is a distinct connection.
func (r *Registry) RegisterVisitor(connID string, p VisitorPresence) {
	p.ConnID = connID
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visitors[connID] = &p
}

// RegisterAgent inserts or replaces the presence entry for connID.
func (r *Registry) RegisterAgent(connID string, agentID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[connID] = &AgentPresence{
		ConnID:   connID,
		AgentID:  agentID,
		Name:     name,
		JoinedAt: time.Now(),
	}
}

// Unregister removes the entry for connID from whichever map holds it.
// Idempotent: unknown connIDs are a no-op.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.visitors, connID)
	delete(r.agents, connID)
}

// SnapshotVisitors returns a point-in-time copy safe to hand to a broadcast;
// nothing in the result aliases registry state.
func (r *Registry) SnapshotVisitors() []VisitorPresence {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]VisitorPresence, 0, len(r.visitors))
	for _, p := range r.visitors {
		cp := *p
		if p.LastMessage != nil {
			lm := *p.LastMessage
			cp.LastMessage = &lm
		}
		res = append(res, cp)
	}
	return res
}

// SnapshotAgents returns a point-in-time copy of the agent presences.
func (r *Registry) SnapshotAgents() []AgentPresence {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]AgentPresence, 0, len(r.agents))
	for _, p := range r.agents {
		res = append(res, *p)
	}
	return res
}

// UpdateLastMessage mutates the cached summary for a visitor connection.
// No-op if the connection raced a disconnect and is gone.
func (r *Registry) UpdateLastMessage(connID string, sender domain.SenderKind, text string, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.visitors[connID]
	if !ok {
		return
	}
	p.LastMessage = &LastMessage{Text: text, Sender: sender, Timestamp: ts}
}

// SetLastMessageByVisitor updates the cached summary on every connection of
// the given visitor identity. Used for agent and bot replies, which arrive
// addressed to an identity rather than a connection.
func (r *Registry) SetLastMessageByVisitor(visitorID string, sender domain.SenderKind, text string, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.visitors {
		if p.VisitorID == visitorID {
			p.LastMessage = &LastMessage{Text: text, Sender: sender, Timestamp: ts}
		}
	}
}

// SetBotActive flags the visitor's presences while the most recent reply was
// bot-generated. Cleared by the next human agent message.
func (r *Registry) SetBotActive(visitorID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.visitors {
		if p.VisitorID == visitorID {
			p.IsBotActive = active
		}
	}
}

// VisitorCount reports how many visitor connections are live.
func (r *Registry) VisitorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}
