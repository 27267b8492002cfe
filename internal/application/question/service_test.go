package question

import (
	"context"
	"errors"
	"testing"

	"github.com/qna-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockQuestionStore struct{ mock.Mock }

func (m *mockQuestionStore) Put(ctx context.Context, q *domain.Question) error {
	return m.Called(ctx, q).Error(0)
}
func (m *mockQuestionStore) Get(ctx context.Context, questionID string) (*domain.Question, error) {
	args := m.Called(ctx, questionID)
	if q, _ := args.Get(0).(*domain.Question); q != nil {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockQuestionStore) AddVote(ctx context.Context, questionID string) error {
	return m.Called(ctx, questionID).Error(0)
}
func (m *mockQuestionStore) Scan(ctx context.Context) ([]domain.Question, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Question), args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// capturingBus records published events synchronously.
type capturingBus struct{ events []domain.Event }

func (b *capturingBus) Publish(evt domain.Event) { b.events = append(b.events, evt) }

// --- Create ---

func TestCreate_FillsIdentityAndTimestamps(t *testing.T) {
	qs := &mockQuestionStore{}
	qs.On("Put", mock.Anything, mock.AnythingOfType("*domain.Question")).Return(nil)

	svc := NewService(qs, &mockUserStore{}, &capturingBus{})
	q, err := svc.Create(context.Background(), "u1", domain.CreateQuestionRequest{
		Subject: "How do goroutines work?",
		Content: "Asking for a friend.",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, q.QuestionID)
	assert.Equal(t, "u1", q.AuthorUserID)
	assert.False(t, q.CreatedAt.IsZero())
	qs.AssertExpectations(t)
}

// --- Vote ---

func TestVote_PublishesEventTargetingAuthor(t *testing.T) {
	qs := &mockQuestionStore{}
	us := &mockUserStore{}
	bus := &capturingBus{}
	qs.On("Get", mock.Anything, "q1").
		Return(&domain.Question{QuestionID: "q1", AuthorUserID: "author", Subject: "Generics?", Votes: 2}, nil)
	qs.On("AddVote", mock.Anything, "q1").Return(nil)
	us.On("Get", mock.Anything, "voter").Return(&domain.User{UserID: "voter", Username: "bob"}, nil)

	svc := NewService(qs, us, bus)
	q, err := svc.Vote(context.Background(), "q1", "voter")

	require.NoError(t, err)
	assert.Equal(t, 3, q.Votes)
	require.Len(t, bus.events, 1)
	evt := bus.events[0]
	assert.Equal(t, domain.EventQuestionVoted, evt.Type)
	assert.Equal(t, "voter", evt.ActorUserID)
	assert.Equal(t, "author", evt.TargetUserID)
	assert.Equal(t, domain.ResourceQuestion, evt.ResourceType)
	assert.Equal(t, "q1", evt.ResourceID)
	assert.Equal(t, `bob voted on your question "Generics?"`, evt.Message)
}

func TestVote_SelfVoteStillPublishes(t *testing.T) {
	qs := &mockQuestionStore{}
	us := &mockUserStore{}
	bus := &capturingBus{}
	qs.On("Get", mock.Anything, "q1").
		Return(&domain.Question{QuestionID: "q1", AuthorUserID: "u1", Subject: "s"}, nil)
	qs.On("AddVote", mock.Anything, "q1").Return(nil)
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Username: "alice"}, nil)

	svc := NewService(qs, us, bus)
	_, err := svc.Vote(context.Background(), "q1", "u1")

	require.NoError(t, err)
	// Producers always publish; suppression happens downstream.
	require.Len(t, bus.events, 1)
	assert.Equal(t, bus.events[0].ActorUserID, bus.events[0].TargetUserID)
}

func TestVote_UnknownQuestion(t *testing.T) {
	qs := &mockQuestionStore{}
	bus := &capturingBus{}
	qs.On("Get", mock.Anything, "gone").Return(nil, domain.ErrNotFound)

	svc := NewService(qs, &mockUserStore{}, bus)
	_, err := svc.Vote(context.Background(), "gone", "u1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Empty(t, bus.events)
}

func TestVote_ActorLookupFailureFallsBackToID(t *testing.T) {
	qs := &mockQuestionStore{}
	us := &mockUserStore{}
	bus := &capturingBus{}
	qs.On("Get", mock.Anything, "q1").
		Return(&domain.Question{QuestionID: "q1", AuthorUserID: "author", Subject: "s"}, nil)
	qs.On("AddVote", mock.Anything, "q1").Return(nil)
	us.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := NewService(qs, us, bus)
	_, err := svc.Vote(context.Background(), "q1", "ghost")

	require.NoError(t, err)
	require.Len(t, bus.events, 1)
	assert.Contains(t, bus.events[0].Message, "ghost voted on")
}
