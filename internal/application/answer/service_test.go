package answer

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

type mockAnswerStore struct{ mock.Mock }

func (m *mockAnswerStore) Put(ctx context.Context, a *domain.Answer) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAnswerStore) Get(ctx context.Context, answerID string) (*domain.Answer, error) {
	args := m.Called(ctx, answerID)
	if a, _ := args.Get(0).(*domain.Answer); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAnswerStore) ListByQuestion(ctx context.Context, questionID string) ([]domain.Answer, error) {
	args := m.Called(ctx, questionID)
	return args.Get(0).([]domain.Answer), args.Error(1)
}
func (m *mockAnswerStore) AddVote(ctx context.Context, answerID string) error {
	return m.Called(ctx, answerID).Error(0)
}

type mockQuestionStore struct{ mock.Mock }

func (m *mockQuestionStore) Get(ctx context.Context, questionID string) (*domain.Question, error) {
	args := m.Called(ctx, questionID)
	if q, _ := args.Get(0).(*domain.Question); q != nil {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type capturingBus struct{ events []domain.Event }

func (b *capturingBus) Publish(evt domain.Event) { b.events = append(b.events, evt) }

// --- Create ---

func TestCreate_PublishesAnswerCreatedTargetingQuestionAuthor(t *testing.T) {
	as := &mockAnswerStore{}
	qs := &mockQuestionStore{}
	us := &mockUserStore{}
	bus := &capturingBus{}
	qs.On("Get", mock.Anything, "q1").
		Return(&domain.Question{QuestionID: "q1", AuthorUserID: "asker", Subject: "Channels?"}, nil)
	as.On("Put", mock.Anything, mock.AnythingOfType("*domain.Answer")).Return(nil)
	us.On("Get", mock.Anything, "helper").Return(&domain.User{Username: "carol"}, nil)

	svc := NewService(as, qs, us, bus)
	a, err := svc.Create(context.Background(), "q1", "helper", domain.CreateAnswerRequest{Content: "Use select."})

	require.NoError(t, err)
	assert.NotEmpty(t, a.AnswerID)
	assert.Equal(t, "q1", a.QuestionID)

	require.Len(t, bus.events, 1)
	evt := bus.events[0]
	assert.Equal(t, domain.EventAnswerCreated, evt.Type)
	assert.Equal(t, "helper", evt.ActorUserID)
	assert.Equal(t, "asker", evt.TargetUserID)
	assert.Equal(t, domain.ResourceQuestion, evt.ResourceType)
	assert.Equal(t, "q1", evt.ResourceID)
	assert.Equal(t, `carol answered your question "Channels?"`, evt.Message)
}

func TestCreate_UnknownQuestion(t *testing.T) {
	qs := &mockQuestionStore{}
	bus := &capturingBus{}
	qs.On("Get", mock.Anything, "gone").Return(nil, domain.ErrNotFound)

	svc := NewService(&mockAnswerStore{}, qs, &mockUserStore{}, bus)
	_, err := svc.Create(context.Background(), "gone", "u1", domain.CreateAnswerRequest{Content: "c"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Empty(t, bus.events)
}

// --- Vote ---

func TestVote_PublishesAnswerVotedTargetingAnswerAuthor(t *testing.T) {
	as := &mockAnswerStore{}
	us := &mockUserStore{}
	bus := &capturingBus{}
	as.On("Get", mock.Anything, "a1").
		Return(&domain.Answer{AnswerID: "a1", QuestionID: "q1", AuthorUserID: "helper", Votes: 1}, nil)
	as.On("AddVote", mock.Anything, "a1").Return(nil)
	us.On("Get", mock.Anything, "voter").Return(&domain.User{Username: "bob"}, nil)

	svc := NewService(as, &mockQuestionStore{}, us, bus)
	a, err := svc.Vote(context.Background(), "a1", "voter")

	require.NoError(t, err)
	assert.Equal(t, 2, a.Votes)

	require.Len(t, bus.events, 1)
	evt := bus.events[0]
	assert.Equal(t, domain.EventAnswerVoted, evt.Type)
	assert.Equal(t, "helper", evt.TargetUserID)
	assert.Equal(t, domain.ResourceAnswer, evt.ResourceType)
	assert.Equal(t, "a1", evt.ResourceID)
	assert.Equal(t, "bob voted on your answer", evt.Message)
}

func TestVote_StoreFailureDoesNotPublish(t *testing.T) {
	as := &mockAnswerStore{}
	bus := &capturingBus{}
	as.On("Get", mock.Anything, "a1").
		Return(&domain.Answer{AnswerID: "a1", AuthorUserID: "helper"}, nil)
	as.On("AddVote", mock.Anything, "a1").Return(errors.New("dynamo down"))

	svc := NewService(as, &mockQuestionStore{}, &mockUserStore{}, bus)
	_, err := svc.Vote(context.Background(), "a1", "voter")

	require.Error(t, err)
	assert.Empty(t, bus.events)
}

func TestListByQuestion_PassesThrough(t *testing.T) {
	as := &mockAnswerStore{}
	rows := []domain.Answer{{AnswerID: "a1"}, {AnswerID: "a2"}}
	as.On("ListByQuestion", mock.Anything, "q1").Return(rows, nil)

	svc := NewService(as, &mockQuestionStore{}, &mockUserStore{}, &capturingBus{})
	got, err := svc.ListByQuestion(context.Background(), "q1")

	require.NoError(t, err)
	assert.Equal(t, rows, got)
}
