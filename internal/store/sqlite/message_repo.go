package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

// Append inserts a message with a store-assigned timestamp. Agent and bot
// messages are marked read on insert; only visitor messages start unread.
func (r *MessageRepo) Append(ctx context.Context, m *domain.Message) error {
	m.IsRead = m.Sender != domain.SenderVisitor
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, sender_type, content, is_read, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, m.ConversationID, m.Sender, m.Content, m.IsRead)
	if err != nil {
		return &domain.StorageError{Op: "insert message", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &domain.StorageError{Op: "last insert id", Err: err}
	}
	m.ID = id

	// Read back the store-assigned timestamp.
	if err := r.db.QueryRowContext(ctx, `SELECT created_at FROM messages WHERE id = ?`, id).Scan(&m.CreatedAt); err != nil {
		return &domain.StorageError{Op: "read message timestamp", Err: err}
	}
	return nil
}

// ListByConversation returns messages ascending by creation order. The row
// id breaks ties between messages written within the same timestamp tick.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID int64) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_type, content, is_read, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list messages", Err: err}
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m := &domain.Message{}
		if err := rows.Scan(
			&m.ID,
			&m.ConversationID,
			&m.Sender,
			&m.Content,
			&m.IsRead,
			&m.CreatedAt,
		); err != nil {
			return nil, &domain.StorageError{Op: "scan message", Err: err}
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (r *MessageRepo) MarkVisitorMessagesRead(ctx context.Context, conversationID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE conversation_id = ? AND sender_type = 'visitor'
	`, conversationID)
	if err != nil {
		return &domain.StorageError{Op: "mark read", Err: err}
	}
	return nil
}

// CountUnreadGlobal powers the dashboard notification badge: the latest
// unread visitor messages plus the total, skipping muted conversations.
func (r *MessageRepo) CountUnreadGlobal(ctx context.Context, limit int) ([]*domain.UnreadMessage, int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.sender_type, m.content, m.is_read, m.created_at, c.visitor_id
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE m.sender_type = 'visitor' AND m.is_read = 0 AND c.is_muted = 0
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, 0, &domain.StorageError{Op: "list unread", Err: err}
	}
	defer rows.Close()

	var latest []*domain.UnreadMessage
	for rows.Next() {
		u := &domain.UnreadMessage{}
		if err := rows.Scan(
			&u.ID,
			&u.ConversationID,
			&u.Sender,
			&u.Content,
			&u.IsRead,
			&u.CreatedAt,
			&u.VisitorID,
		); err != nil {
			return nil, 0, &domain.StorageError{Op: "scan unread", Err: err}
		}
		latest = append(latest, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &domain.StorageError{Op: "iterate unread", Err: err}
	}

	var total int
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON m.conversation_id = c.id
		WHERE m.sender_type = 'visitor' AND m.is_read = 0 AND c.is_muted = 0
	`).Scan(&total)
	if err != nil {
		return nil, 0, &domain.StorageError{Op: "count unread", Err: err}
	}
	return latest, total, nil
}

func (r *MessageRepo) CountBySender(ctx context.Context, sender domain.SenderKind) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE sender_type = ?`, sender).Scan(&count)
	if err != nil {
		return 0, &domain.StorageError{Op: "count by sender", Err: err}
	}
	return count, nil
}

func (r *MessageRepo) MessagesByDay(ctx context.Context, days int) ([]*domain.DayMessageCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', created_at) AS day,
		       SUM(CASE WHEN sender_type = 'visitor' THEN 1 ELSE 0 END) AS visitor_count,
		       SUM(CASE WHEN sender_type = 'agent' THEN 1 ELSE 0 END) AS agent_count
		FROM messages
		WHERE created_at >= datetime('now', ?)
		GROUP BY day
		ORDER BY day ASC
	`, formatDaysOffset(days))
	if err != nil {
		return nil, &domain.StorageError{Op: "messages by day", Err: err}
	}
	defer rows.Close()

	var res []*domain.DayMessageCount
	for rows.Next() {
		d := &domain.DayMessageCount{}
		if err := rows.Scan(&d.Day, &d.VisitorCount, &d.AgentCount); err != nil {
			return nil, &domain.StorageError{Op: "scan day count", Err: err}
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// formatDaysOffset builds the sqlite datetime modifier for an N-day window:
// a 7-day rollup covers today plus the 6 previous days.
func formatDaysOffset(days int) string {
	return fmt.Sprintf("-%d days", days-1)
}
