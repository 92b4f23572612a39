package domain

import "time"

// ConversationStatus is the lifecycle state of a conversation. Status is
// independent of connection lifetime: a visitor may disconnect and reconnect
// while the conversation stays open.
type ConversationStatus string

const (
	StatusOpen      ConversationStatus = "open"
	StatusPending   ConversationStatus = "pending"
	StatusResolved  ConversationStatus = "resolved"
	StatusAbandoned ConversationStatus = "abandoned"
	StatusDeleted   ConversationStatus = "deleted"
)

// Valid reports whether s is one of the known statuses.
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusResolved, StatusAbandoned, StatusDeleted:
		return true
	}
	return false
}

// SenderKind identifies who authored a message.
type SenderKind string

const (
	SenderVisitor SenderKind = "visitor"
	SenderAgent   SenderKind = "agent"
	SenderBot     SenderKind = "bot"
)

// Conversation binds a visitor identity to a message thread. At most one
// conversation per visitor identity may have status = open at any time.
type Conversation struct {
	ID              int64              `db:"id" json:"id"`
	VisitorID       string             `db:"visitor_id" json:"visitor_id"`
	FirstName       *string            `db:"first_name" json:"first_name,omitempty"`
	LastName        *string            `db:"last_name" json:"last_name,omitempty"`
	ContactNumber   *string            `db:"contact_number" json:"contact_number,omitempty"`
	Problem         *string            `db:"problem" json:"problem,omitempty"`
	Status          ConversationStatus `db:"status" json:"status"`
	IsMuted         bool               `db:"is_muted" json:"is_muted"`
	AssignedAgentID *int64             `db:"assigned_agent_id" json:"assigned_agent_id,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
}

// VisitorProfile carries the optional profile fields a visitor may supply on
// registration. Merging is first-non-null-wins: an existing value is never
// overwritten by a null.
type VisitorProfile struct {
	FirstName     *string
	LastName      *string
	ContactNumber *string
	Problem       *string
}

// Empty reports whether no profile field was supplied.
func (p VisitorProfile) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.ContactNumber == nil && p.Problem == nil
}

// Message is a single immutable chat message. The read flag only applies to
// visitor-authored messages; agent and bot messages are always read.
type Message struct {
	ID             int64      `db:"id" json:"id"`
	ConversationID int64      `db:"conversation_id" json:"conversation_id"`
	Sender         SenderKind `db:"sender_type" json:"sender"`
	Content        string     `db:"content" json:"text"`
	IsRead         bool       `db:"is_read" json:"is_read"`
	CreatedAt      time.Time  `db:"created_at" json:"timestamp"`
}

// User is a dashboard account (agent or admin).
type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	Role           string    `db:"role" json:"role"`
	SiteKey        *string   `db:"site_key" json:"site_key,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// AgentSettings is the per-agent notification policy, read at dispatch time
// and never cached beyond a single dispatch.
type AgentSettings struct {
	AgentID           int64  `db:"agent_id" json:"agent_id"`
	EmailEnabled      bool   `db:"email_enabled" json:"email_enabled"`
	WhatsAppEnabled   bool   `db:"whatsapp_enabled" json:"whatsapp_enabled"`
	WhatsAppNumber    string `db:"whatsapp_number" json:"whatsapp_number"`
	NotificationEmail string `db:"notification_email" json:"notification_email"`
}

// ConversationSummary is a conversation row joined with its latest message
// and unread count, used for the dashboard inbox list.
type ConversationSummary struct {
	Conversation
	LastMessage     *string    `json:"last_message,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	UnreadCount     int        `json:"unread_count"`
}

// UnreadMessage is a visitor message joined with its visitor identity, used
// for the dashboard notification badge.
type UnreadMessage struct {
	Message
	VisitorID string `json:"visitor_id"`
}

// Stat is a raw widget analytics event.
type Stat struct {
	ID        int64     `db:"id" json:"id"`
	EventType string    `db:"event_type" json:"event_type"`
	VisitorID string    `db:"visitor_id" json:"visitor_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DayMessageCount is a per-day rollup of message volume by sender.
type DayMessageCount struct {
	Day          string `json:"day"`
	VisitorCount int    `json:"visitor_count"`
	AgentCount   int    `json:"agent_count"`
}
