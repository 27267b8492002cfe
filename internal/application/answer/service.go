package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/qna-api/internal/domain"
	"github.com/qna-api/internal/pkg/id"
)

type Service interface {
	// Create stores an answer under a question and publishes answer.created
	// targeting the question's author.
	Create(ctx context.Context, questionID, authorUserID string, req domain.CreateAnswerRequest) (*domain.Answer, error)
	ListByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error)
	// Vote records a vote and publishes answer.voted targeting the answer's
	// author.
	Vote(ctx context.Context, answerID, actorUserID string) (*domain.Answer, error)
}

type answerStore interface {
	Put(ctx context.Context, a *domain.Answer) error
	Get(ctx context.Context, answerID string) (*domain.Answer, error)
	ListByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error)
	AddVote(ctx context.Context, answerID string) error
}

type questionStore interface {
	Get(ctx context.Context, questionID string) (*domain.Question, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type publisher interface {
	Publish(evt domain.Event)
}

type service struct {
	repo      answerStore
	questions questionStore
	users     userStore
	bus       publisher
}

func NewService(repo answerStore, questions questionStore, users userStore, bus publisher) Service {
	return &service{repo: repo, questions: questions, users: users, bus: bus}
}

func (s *service) Create(ctx context.Context, questionID, authorUserID string, req domain.CreateAnswerRequest) (*domain.Answer, error) {
	q, err := s.questions.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &domain.Answer{
		AnswerID:     id.New(),
		QuestionID:   questionID,
		AuthorUserID: authorUserID,
		Content:      req.Content,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, a); err != nil {
		return nil, err
	}

	s.bus.Publish(domain.Event{
		Type:         domain.EventAnswerCreated,
		ActorUserID:  authorUserID,
		TargetUserID: q.AuthorUserID,
		ResourceType: domain.ResourceQuestion,
		ResourceID:   q.QuestionID,
		Message:      fmt.Sprintf("%s answered your question %q", s.displayName(ctx, authorUserID), q.Subject),
		OccurredAt:   now,
	})
	return a, nil
}

func (s *service) ListByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	return s.repo.ListByQuestion(ctx, questionID)
}

func (s *service) Vote(ctx context.Context, answerID, actorUserID string) (*domain.Answer, error) {
	a, err := s.repo.Get(ctx, answerID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddVote(ctx, answerID); err != nil {
		return nil, err
	}
	a.Votes++

	s.bus.Publish(domain.Event{
		Type:         domain.EventAnswerVoted,
		ActorUserID:  actorUserID,
		TargetUserID: a.AuthorUserID,
		ResourceType: domain.ResourceAnswer,
		ResourceID:   a.AnswerID,
		Message:      fmt.Sprintf("%s voted on your answer", s.displayName(ctx, actorUserID)),
		OccurredAt:   time.Now().UTC(),
	})
	return a, nil
}

// displayName falls back to the raw id when the user lookup fails; the event
// must go out either way.
func (s *service) displayName(ctx context.Context, userID string) string {
	if u, err := s.users.Get(ctx, userID); err == nil {
		return u.Username
	}
	return userID
}
