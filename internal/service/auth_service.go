package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nabilsaied15/asad-chat-bot/internal/domain"
	"github.com/nabilsaied15/asad-chat-bot/internal/security"
)

// AuthService handles dashboard signup and login.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type LoginInput struct {
	Email    string
	Password string
}

type TokenResponse struct {
	AccessToken string
	TokenType   string
	User        *domain.User
}

// Register creates a dashboard account. The very first account becomes
// admin; later ones default to the agent role unless one is given.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, errors.New("email and password are required")
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := in.Role
	if role == "" {
		count, err := s.users.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count users: %w", err)
		}
		if count == 0 {
			role = "admin"
		} else {
			role = "user"
		}
	}

	user := &domain.User{
		Name:           in.Name,
		Email:          in.Email,
		HashedPassword: hashed,
		Role:           role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUnauthorized
	}
	if err := s.hash.Verify(in.Password, user.HashedPassword); err != nil {
		return nil, domain.ErrUnauthorized
	}

	token, err := s.tokens.CreateForUser(user.Email)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}
