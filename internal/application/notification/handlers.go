package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/qna-api/internal/domain"
	"github.com/qna-api/internal/event"
)

// Sender pushes a payload to every live connection a user holds on this
// instance. Satisfied by *realtime.Hub.
type Sender interface {
	SendToUser(userID string, payload []byte) int
}

// Mailer is the slice of the SMTP mailer the email handler needs.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// Publisher is the slice of the SNS publisher the mirror handler needs.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

type userEmailStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Register subscribes the persist-and-push pipeline to every event type.
// For each event the handler writes the durable row, then pushes the
// serialized notification to the recipient's local connections. Connections
// on other instances are reached by their poller, not by this push.
func Register(bus *event.Bus, svc Service, sender Sender, logger *slog.Logger) {
	h := func(ctx context.Context, evt domain.Event) error {
		n, err := svc.Create(ctx, CreateParams{
			UserID:       evt.TargetUserID,
			ActorUserID:  evt.ActorUserID,
			EventType:    string(evt.Type),
			ResourceType: evt.ResourceType,
			ResourceID:   evt.ResourceID,
			Message:      evt.Message,
		})
		if err != nil {
			return fmt.Errorf("create notification: %w", err)
		}
		if n == nil {
			// self-directed event, nothing to deliver
			return nil
		}
		payload, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal notification %s: %w", n.NotificationID, err)
		}
		delivered := sender.SendToUser(n.UserID, payload)
		logger.Info("notification created",
			"notification_id", n.NotificationID,
			"user_id", n.UserID,
			"event_type", n.EventType,
			"local_connections", delivered,
		)
		return nil
	}
	for _, t := range domain.EventTypes {
		bus.Subscribe(t, h)
	}
}

// RegisterEmail subscribes a secondary channel that emails the recipient of
// each new answer. Best effort: a failed send is logged by the bus and never
// blocks or disturbs the real-time push handler.
func RegisterEmail(bus *event.Bus, mailer Mailer, users userEmailStore, logger *slog.Logger) {
	bus.Subscribe(domain.EventAnswerCreated, func(ctx context.Context, evt domain.Event) error {
		if evt.TargetUserID == evt.ActorUserID {
			return nil
		}
		u, err := users.Get(ctx, evt.TargetUserID)
		if err != nil {
			return fmt.Errorf("lookup recipient %s: %w", evt.TargetUserID, err)
		}
		if err := mailer.SendEmail(u.Email, "Your question has a new answer", evt.Message); err != nil {
			return fmt.Errorf("send email to %s: %w", evt.TargetUserID, err)
		}
		logger.Info("notification email sent", "user_id", evt.TargetUserID)
		return nil
	})
}

// RegisterMirror subscribes a handler that republishes every domain event to
// an external topic, for consumers outside this process (mobile push
// bridges, analytics).
func RegisterMirror(bus *event.Bus, pub Publisher, logger *slog.Logger) {
	h := func(ctx context.Context, evt domain.Event) error {
		msg, err := json.Marshal(map[string]string{
			"event_type":     string(evt.Type),
			"actor_user_id":  evt.ActorUserID,
			"target_user_id": evt.TargetUserID,
			"resource_type":  evt.ResourceType,
			"resource_id":    evt.ResourceID,
			"message":        evt.Message,
		})
		if err != nil {
			return err
		}
		if err := pub.Publish(ctx, string(msg)); err != nil {
			return fmt.Errorf("mirror event: %w", err)
		}
		return nil
	}
	for _, t := range domain.EventTypes {
		bus.Subscribe(t, h)
	}
	logger.Info("event mirror enabled")
}
