package domain

import (
	"context"
)

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id int64) (*Conversation, error)
	// FindOpenByVisitor returns the visitor's open conversation, or nil.
	FindOpenByVisitor(ctx context.Context, visitorID string) (*Conversation, error)
	// MergeProfile fills in profile fields that are still null; existing
	// values are never overwritten.
	MergeProfile(ctx context.Context, id int64, p VisitorProfile) error
	ListWithSummaries(ctx context.Context) ([]*ConversationSummary, error)
	SetStatus(ctx context.Context, id int64, status ConversationStatus) error
	// ToggleMute flips the mute flag in a single statement and returns the
	// new value.
	ToggleMute(ctx context.Context, id int64) (bool, error)
	// Purge deletes the conversation and all of its messages. Irreversible.
	Purge(ctx context.Context, id int64) error
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Append inserts a message with a store-assigned timestamp and fills in
	// the generated ID and CreatedAt.
	Append(ctx context.Context, m *Message) error
	// ListByConversation returns messages in ascending creation order;
	// insertion order breaks timestamp ties.
	ListByConversation(ctx context.Context, conversationID int64) ([]*Message, error)
	MarkVisitorMessagesRead(ctx context.Context, conversationID int64) error
	// CountUnreadGlobal returns the latest unread visitor messages plus the
	// total count, excluding muted conversations.
	CountUnreadGlobal(ctx context.Context, limit int) ([]*UnreadMessage, int, error)
	CountBySender(ctx context.Context, sender SenderKind) (int, error)
	MessagesByDay(ctx context.Context, days int) ([]*DayMessageCount, error)
}

// UserRepository defines persistence operations for dashboard accounts.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetBySiteKey(ctx context.Context, siteKey string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id int64) error
}

// SettingsRepository defines persistence for per-agent notification policy.
type SettingsRepository interface {
	GetByAgent(ctx context.Context, agentID int64) (*AgentSettings, error)
	Upsert(ctx context.Context, s *AgentSettings) error
}

// StatsRepository records and aggregates widget analytics events.
type StatsRepository interface {
	Insert(ctx context.Context, eventType, visitorID string) error
	CountByEvent(ctx context.Context, eventType string) (int, error)
}
