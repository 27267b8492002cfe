package session

import (
	"context"
	"errors"
	"testing"

	"github.com/qna-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(userID, username, role string) (string, error) {
	args := m.Called(userID, username, role)
	return args.String(0), args.Error(1)
}

func enabledUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		UserID:       "u1",
		Username:     "alice",
		Role:         domain.RoleUser,
		Enable:       1,
		PasswordHash: string(hash),
	}
}

func TestLogin_HappyPath(t *testing.T) {
	us := &mockUserStore{}
	signer := &mockSigner{}
	us.On("GetByUsername", mock.Anything, "alice").Return(enabledUser(t, "secretpass"), nil)
	signer.On("Sign", "u1", "alice", domain.RoleUser).Return("signed-token", nil)

	svc := NewService(us, signer)
	u, bearer, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "secretpass"})

	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "signed-token", bearer)
	signer.AssertExpectations(t)
}

func TestLogin_UnknownUser(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := NewService(us, &mockSigner{})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Username: "ghost", Password: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_WrongPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByUsername", mock.Anything, "alice").Return(enabledUser(t, "rightpass"), nil)

	svc := NewService(us, &mockSigner{})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "wrongpass"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestLogin_DisabledAccount(t *testing.T) {
	us := &mockUserStore{}
	u := enabledUser(t, "secretpass")
	u.Enable = 0
	us.On("GetByUsername", mock.Anything, "alice").Return(u, nil)

	svc := NewService(us, &mockSigner{})
	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Username: "alice", Password: "secretpass"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
