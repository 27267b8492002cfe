package user

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/qna-api/internal/domain"
	"github.com/qna-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldAvatarKey = "avatar_key"
)

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	UploadAvatar(ctx context.Context, userID, filename, contentType string, r io.Reader) error
	DownloadAvatar(ctx context.Context, userID string) (io.ReadCloser, string, error)
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type blobStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type service struct {
	repo  userStore
	blobs blobStore
}

func NewService(repo userStore, blobs blobStore) Service {
	return &service{repo: repo, blobs: blobs}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

func (s *service) UploadAvatar(ctx context.Context, userID, filename, contentType string, r io.Reader) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		return err
	}
	key := fmt.Sprintf("avatars/%s/%s", userID, filename)
	if err := s.blobs.Upload(ctx, key, r, contentType); err != nil {
		return err
	}
	return s.repo.Update(ctx, userID, map[string]interface{}{fieldAvatarKey: key})
}

func (s *service) DownloadAvatar(ctx context.Context, userID string) (io.ReadCloser, string, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if u.AvatarKey == "" {
		return nil, "", fmt.Errorf("no avatar uploaded: %w", domain.ErrNotFound)
	}
	return s.blobs.Download(ctx, u.AvatarKey)
}
