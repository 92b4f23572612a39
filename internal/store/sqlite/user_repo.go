package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

const userColumns = `id, name, email, hashed_password, role, site_key, created_at`

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, email, hashed_password, role, site_key, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, u.Name, u.Email, u.HashedPassword, u.Role, u.SiteKey)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrConflict
		}
		return &domain.StorageError{Op: "insert user", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return &domain.StorageError{Op: "last insert id", Err: err}
	}
	u.ID = id
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (r *UserRepo) GetBySiteKey(ctx context.Context, siteKey string) (*domain.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE site_key = ?`, siteKey)
}

func (r *UserRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list users", Err: err}
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.HashedPassword,
			&u.Role,
			&u.SiteKey,
			&u.CreatedAt,
		); err != nil {
			return nil, &domain.StorageError{Op: "scan user", Err: err}
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, &domain.StorageError{Op: "count users", Err: err}
	}
	return count, nil
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = ?, email = ?, role = ?, site_key = ? WHERE id = ?
	`, u.Name, u.Email, u.Role, u.SiteKey, u.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrConflict
		}
		return &domain.StorageError{Op: "update user", Err: err}
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return &domain.StorageError{Op: "delete user", Err: err}
	}
	return nil
}

func (r *UserRepo) scanUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.HashedPassword,
		&u.Role,
		&u.SiteKey,
		&u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "scan user", Err: err}
	}
	return u, nil
}
