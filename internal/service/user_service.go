package service

import (
	"context"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
)

// UserService provides agent account operations for the dashboard.
type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

func (s *UserService) Update(ctx context.Context, u *domain.User) error {
	return s.users.Update(ctx, u)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}
