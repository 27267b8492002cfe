package domain

import "time"

// Notification is the durable record behind a real-time push. Created once,
// mutated only by the read-marking operations, never deleted by this service.
// ActorUsername is resolved from the users table at read time and is not
// stored on the item.
type Notification struct {
	NotificationID string    `json:"id"`
	UserID         string    `json:"user_id"`
	ActorUserID    string    `json:"actor_user_id"`
	ActorUsername  string    `json:"actor_username,omitempty"`
	EventType      string    `json:"event_type"`
	ResourceType   string    `json:"resource_type"`
	ResourceID     string    `json:"resource_id"`
	Message        string    `json:"message"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// NotificationPage is one page of a user's notification list.
type NotificationPage struct {
	Total         int            `json:"total"`
	UnreadCount   int            `json:"unread_count"`
	Notifications []Notification `json:"notifications"`
}

type MarkReadRequest struct {
	NotificationIDs []string `json:"notification_ids" validate:"required,min=1"`
}

type CreateNotificationRequest struct {
	UserID       string `json:"user_id" validate:"required"`
	EventType    string `json:"event_type" validate:"required"`
	ResourceType string `json:"resource_type" validate:"required"`
	ResourceID   string `json:"resource_id" validate:"required"`
	Message      string `json:"message" validate:"required"`
}
