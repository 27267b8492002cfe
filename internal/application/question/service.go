package question

import (
	"context"
	"fmt"
	"time"

	"github.com/qna-api/internal/domain"
	"github.com/qna-api/internal/pkg/id"
)

type Service interface {
	Create(ctx context.Context, authorUserID string, req domain.CreateQuestionRequest) (*domain.Question, error)
	Get(ctx context.Context, questionID string) (*domain.Question, error)
	List(ctx context.Context) ([]domain.Question, error)
	// Vote records a vote and publishes question.voted targeting the author.
	// Self-votes are published too; the notification layer drops them.
	Vote(ctx context.Context, questionID, actorUserID string) (*domain.Question, error)
}

type questionStore interface {
	Put(ctx context.Context, q *domain.Question) error
	Get(ctx context.Context, questionID string) (*domain.Question, error)
	AddVote(ctx context.Context, questionID string) error
	Scan(ctx context.Context) ([]domain.Question, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// publisher is the slice of the event bus this service needs.
type publisher interface {
	Publish(evt domain.Event)
}

type service struct {
	repo  questionStore
	users userStore
	bus   publisher
}

func NewService(repo questionStore, users userStore, bus publisher) Service {
	return &service{repo: repo, users: users, bus: bus}
}

func (s *service) Create(ctx context.Context, authorUserID string, req domain.CreateQuestionRequest) (*domain.Question, error) {
	now := time.Now().UTC()
	q := &domain.Question{
		QuestionID:   id.New(),
		AuthorUserID: authorUserID,
		Subject:      req.Subject,
		Content:      req.Content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *service) Get(ctx context.Context, questionID string) (*domain.Question, error) {
	return s.repo.Get(ctx, questionID)
}

func (s *service) List(ctx context.Context) ([]domain.Question, error) {
	return s.repo.Scan(ctx)
}

func (s *service) Vote(ctx context.Context, questionID, actorUserID string) (*domain.Question, error) {
	q, err := s.repo.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddVote(ctx, questionID); err != nil {
		return nil, err
	}
	q.Votes++

	actorName := actorUserID
	if actor, err := s.users.Get(ctx, actorUserID); err == nil {
		actorName = actor.Username
	}
	s.bus.Publish(domain.Event{
		Type:         domain.EventQuestionVoted,
		ActorUserID:  actorUserID,
		TargetUserID: q.AuthorUserID,
		ResourceType: domain.ResourceQuestion,
		ResourceID:   q.QuestionID,
		Message:      fmt.Sprintf("%s voted on your question %q", actorName, q.Subject),
		OccurredAt:   time.Now().UTC(),
	})
	return q, nil
}
