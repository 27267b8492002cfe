package domain

import "time"

// EventType identifies a kind of domain event.
type EventType string

const (
	EventQuestionVoted EventType = "question.voted"
	EventAnswerCreated EventType = "answer.created"
	EventAnswerVoted   EventType = "answer.voted"
)

// EventTypes lists every known event type, in declaration order. Used to
// register a handler for all kinds at once.
var EventTypes = []EventType{
	EventQuestionVoted,
	EventAnswerCreated,
	EventAnswerVoted,
}

// Resource types an event can reference.
const (
	ResourceQuestion = "question"
	ResourceAnswer   = "answer"
)

// Event is an immutable description of something that happened in the
// business logic. Events are transient: they exist only on the bus and are
// never persisted. Actor and target may be the same user; in that case the
// notification layer produces nothing.
type Event struct {
	Type         EventType
	ActorUserID  string
	TargetUserID string
	ResourceType string
	ResourceID   string
	Message      string
	OccurredAt   time.Time
}
