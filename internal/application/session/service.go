package session

import (
	"context"
	"fmt"

	"github.com/qna-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	// Login verifies credentials and returns the user plus a signed bearer
	// token.
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error)
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type jwtSigner interface {
	Sign(userID, username, role string) (string, error)
}

type service struct {
	users  userStore
	signer jwtSigner
}

func NewService(users userStore, signer jwtSigner) Service {
	return &service{users: users, signer: signer}
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error) {
	u, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		// Same error for unknown user and wrong password.
		return nil, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if u.Enable != 1 {
		return nil, "", fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, "", fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	bearer, err := s.signer.Sign(u.UserID, u.Username, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, bearer, nil
}
