package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/qna-api/internal/domain"
	"github.com/qna-api/internal/pkg/id"
)

// Service is the persistence boundary of the notification subsystem: create a
// row, page a user's list, reconcile a time window, mark read.
type Service interface {
	// Create persists a notification and returns it with the actor's
	// username resolved. Returns (nil, nil) when recipient == actor: a user
	// is never notified about their own action.
	Create(ctx context.Context, p CreateParams) (*domain.Notification, error)
	// ListSince returns notifications with created_at strictly after since
	// for the given users, ascending, actors resolved. This is the
	// reconciliation query used by the poller.
	ListSince(ctx context.Context, since time.Time, userIDs []string) ([]domain.Notification, error)
	List(ctx context.Context, userID string, offset, limit int) (*domain.NotificationPage, error)
	MarkRead(ctx context.Context, userID string, notificationIDs []string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// CreateParams carries everything needed to persist one notification.
type CreateParams struct {
	UserID       string // recipient
	ActorUserID  string
	EventType    string
	ResourceType string
	ResourceID   string
	Message      string
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.Notification, error)
	Counts(ctx context.Context, userID string) (total, unread int, err error)
	ListSince(ctx context.Context, since time.Time, userIDs []string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	ListUnreadIDs(ctx context.Context, userID string) ([]string, error)
}

type userStore interface {
	BatchGet(ctx context.Context, userIDs []string) (map[string]domain.User, error)
}

type service struct {
	repo  notificationStore
	users userStore
}

func NewService(repo notificationStore, users userStore) Service {
	return &service{repo: repo, users: users}
}

func (s *service) Create(ctx context.Context, p CreateParams) (*domain.Notification, error) {
	if p.UserID == p.ActorUserID {
		return nil, nil
	}
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         p.UserID,
		ActorUserID:    p.ActorUserID,
		EventType:      p.EventType,
		ResourceType:   p.ResourceType,
		ResourceID:     p.ResourceID,
		Message:        p.Message,
		IsRead:         false,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, fmt.Errorf("put notification: %w", err)
	}
	// Best effort: the row is already durable, a missing display name only
	// degrades the pushed payload.
	if users, err := s.users.BatchGet(ctx, []string{n.ActorUserID}); err == nil {
		if u, ok := users[n.ActorUserID]; ok {
			n.ActorUsername = u.Username
		}
	}
	return n, nil
}

func (s *service) ListSince(ctx context.Context, since time.Time, userIDs []string) ([]domain.Notification, error) {
	rows, err := s.repo.ListSince(ctx, since, userIDs)
	if err != nil {
		return nil, err
	}
	if err := s.resolveActors(ctx, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *service) List(ctx context.Context, userID string, offset, limit int) (*domain.NotificationPage, error) {
	total, unread, err := s.repo.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	if err := s.resolveActors(ctx, rows); err != nil {
		return nil, err
	}
	return &domain.NotificationPage{
		Total:         total,
		UnreadCount:   unread,
		Notifications: rows,
	}, nil
}

// MarkRead marks the given notifications read. Ids that do not exist or
// belong to another user are skipped, matching the ownership rule without
// leaking which ids exist. Re-marking a read row is a no-op.
func (s *service) MarkRead(ctx context.Context, userID string, notificationIDs []string) error {
	for _, nid := range notificationIDs {
		n, err := s.repo.Get(ctx, nid)
		if err != nil {
			continue
		}
		if n.UserID != userID || n.IsRead {
			continue
		}
		if err := s.repo.MarkRead(ctx, nid); err != nil {
			return fmt.Errorf("mark read %s: %w", nid, err)
		}
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID string) error {
	ids, err := s.repo.ListUnreadIDs(ctx, userID)
	if err != nil {
		return err
	}
	for _, nid := range ids {
		if err := s.repo.MarkRead(ctx, nid); err != nil {
			return fmt.Errorf("mark read %s: %w", nid, err)
		}
	}
	return nil
}

// resolveActors fills ActorUsername on each row with one BatchGet round trip.
func (s *service) resolveActors(ctx context.Context, rows []domain.Notification) error {
	if len(rows) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, n := range rows {
		if _, ok := seen[n.ActorUserID]; !ok {
			seen[n.ActorUserID] = struct{}{}
			ids = append(ids, n.ActorUserID)
		}
	}
	users, err := s.users.BatchGet(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve actors: %w", err)
	}
	for i := range rows {
		if u, ok := users[rows[i].ActorUserID]; ok {
			rows[i].ActorUsername = u.Username
		}
	}
	return nil
}
