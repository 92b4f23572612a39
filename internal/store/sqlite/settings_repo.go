package sqlite

import (
	"context"
	"database/sql"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

var _ domain.SettingsRepository = (*SettingsRepo)(nil)

func (r *SettingsRepo) GetByAgent(ctx context.Context, agentID int64) (*domain.AgentSettings, error) {
	s := &domain.AgentSettings{}
	err := r.db.QueryRowContext(ctx, `
		SELECT agent_id, email_enabled, whatsapp_enabled, whatsapp_number, notification_email
		FROM agent_settings
		WHERE agent_id = ?
	`, agentID).Scan(
		&s.AgentID,
		&s.EmailEnabled,
		&s.WhatsAppEnabled,
		&s.WhatsAppNumber,
		&s.NotificationEmail,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get agent settings", Err: err}
	}
	return s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, s *domain.AgentSettings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO agent_settings (agent_id, email_enabled, whatsapp_enabled, whatsapp_number, notification_email)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			email_enabled = excluded.email_enabled,
			whatsapp_enabled = excluded.whatsapp_enabled,
			whatsapp_number = excluded.whatsapp_number,
			notification_email = excluded.notification_email
	`, s.AgentID, s.EmailEnabled, s.WhatsAppEnabled, s.WhatsAppNumber, s.NotificationEmail)
	if err != nil {
		return &domain.StorageError{Op: "upsert agent settings", Err: err}
	}
	return nil
}
