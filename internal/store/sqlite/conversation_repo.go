package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

const conversationColumns = `id, visitor_id, first_name, last_name, contact_number, problem, status, is_muted, assigned_agent_id, created_at`

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	if c.Status == "" {
		c.Status = domain.StatusOpen
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (visitor_id, first_name, last_name, contact_number, problem, status, is_muted, assigned_agent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, c.VisitorID, c.FirstName, c.LastName, c.ContactNumber, c.Problem, c.Status, c.IsMuted, c.AssignedAgentID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrConflict
		}
		return &domain.StorageError{Op: "insert conversation", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &domain.StorageError{Op: "last insert id", Err: err}
	}
	c.ID = id
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id int64) (*domain.Conversation, error) {
	return r.scanOne(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
}

func (r *ConversationRepo) FindOpenByVisitor(ctx context.Context, visitorID string) (*domain.Conversation, error) {
	return r.scanOne(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE visitor_id = ? AND status = 'open'`, visitorID)
}

// MergeProfile applies first-non-null-wins semantics via COALESCE: a value
// already present in the row always survives.
func (r *ConversationRepo) MergeProfile(ctx context.Context, id int64, p domain.VisitorProfile) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conversations
		SET first_name = COALESCE(first_name, ?),
		    last_name = COALESCE(last_name, ?),
		    contact_number = COALESCE(contact_number, ?),
		    problem = COALESCE(problem, ?)
		WHERE id = ?
	`, p.FirstName, p.LastName, p.ContactNumber, p.Problem, id)
	if err != nil {
		return &domain.StorageError{Op: "merge profile", Err: err}
	}
	return nil
}

func (r *ConversationRepo) ListWithSummaries(ctx context.Context) ([]*domain.ConversationSummary, error) {
	query := `
		SELECT c.id, c.visitor_id, c.first_name, c.last_name, c.contact_number, c.problem,
		       c.status, c.is_muted, c.assigned_agent_id, c.created_at,
		       m.content, m.created_at,
		       (SELECT COUNT(*) FROM messages WHERE conversation_id = c.id AND sender_type = 'visitor' AND is_read = 0) AS unread_count
		FROM conversations c
		LEFT JOIN (
			SELECT conversation_id, content, created_at
			FROM messages
			WHERE id IN (SELECT MAX(id) FROM messages GROUP BY conversation_id)
		) m ON c.id = m.conversation_id
		ORDER BY m.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.StorageError{Op: "list conversations", Err: err}
	}
	defer rows.Close()

	var res []*domain.ConversationSummary
	for rows.Next() {
		s := &domain.ConversationSummary{}
		if err := rows.Scan(
			&s.ID,
			&s.VisitorID,
			&s.FirstName,
			&s.LastName,
			&s.ContactNumber,
			&s.Problem,
			&s.Status,
			&s.IsMuted,
			&s.AssignedAgentID,
			&s.CreatedAt,
			&s.LastMessage,
			&s.LastMessageTime,
			&s.UnreadCount,
		); err != nil {
			return nil, &domain.StorageError{Op: "scan conversation summary", Err: err}
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r *ConversationRepo) SetStatus(ctx context.Context, id int64, status domain.ConversationStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return &domain.StorageError{Op: "set status", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "rows affected", Err: err}
	}
	if n == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

// ToggleMute flips the flag in one statement so concurrent toggles cannot
// lose updates.
func (r *ConversationRepo) ToggleMute(ctx context.Context, id int64) (bool, error) {
	var muted bool
	err := r.db.QueryRowContext(ctx, `
		UPDATE conversations SET is_muted = NOT is_muted WHERE id = ? RETURNING is_muted
	`, id).Scan(&muted)
	if err == sql.ErrNoRows {
		return false, domain.ErrConversationNotFound
	}
	if err != nil {
		return false, &domain.StorageError{Op: "toggle mute", Err: err}
	}
	return muted, nil
}

func (r *ConversationRepo) Purge(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "begin tx", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return &domain.StorageError{Op: "purge messages", Err: err}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return &domain.StorageError{Op: "purge conversation", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "rows affected", Err: err}
	}
	if n == 0 {
		return domain.ErrConversationNotFound
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "commit purge", Err: err}
	}
	return nil
}

func (r *ConversationRepo) scanOne(ctx context.Context, query string, arg any) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&c.ID,
		&c.VisitorID,
		&c.FirstName,
		&c.LastName,
		&c.ContactNumber,
		&c.Problem,
		&c.Status,
		&c.IsMuted,
		&c.AssignedAgentID,
		&c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get conversation", Err: err}
	}
	return c, nil
}
