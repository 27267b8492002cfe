package http

import (
	"context"
	"io"

	"github.com/qna-api/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	BatchGet(ctx context.Context, userIDs []string) (map[string]domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// QuestionRepository is the minimal interface the router requires from a question store.
type QuestionRepository interface {
	Put(ctx context.Context, q *domain.Question) error
	Get(ctx context.Context, questionID string) (*domain.Question, error)
	AddVote(ctx context.Context, questionID string) error
	Scan(ctx context.Context) ([]domain.Question, error)
}

// AnswerRepository is the minimal interface the router requires from an answer store.
type AnswerRepository interface {
	Put(ctx context.Context, a *domain.Answer) error
	Get(ctx context.Context, answerID string) (*domain.Answer, error)
	ListByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error)
	AddVote(ctx context.Context, answerID string) error
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}
