package sqlite

import (
	"context"
	"database/sql"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

type StatsRepo struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

var _ domain.StatsRepository = (*StatsRepo)(nil)

func (r *StatsRepo) Insert(ctx context.Context, eventType, visitorID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stats (event_type, visitor_id, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)
	`, eventType, visitorID)
	if err != nil {
		return &domain.StorageError{Op: "insert stat", Err: err}
	}
	return nil
}

func (r *StatsRepo) CountByEvent(ctx context.Context, eventType string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stats WHERE event_type = ?`, eventType).Scan(&count); err != nil {
		return 0, &domain.StorageError{Op: "count stats", Err: err}
	}
	return count, nil
}
