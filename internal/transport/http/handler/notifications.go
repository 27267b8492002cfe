package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/qna-api/internal/application/notification"
	"github.com/qna-api/internal/domain"
	"github.com/qna-api/internal/pkg/validate"
	"github.com/qna-api/internal/realtime"
	"github.com/qna-api/internal/transport/http/middleware"
)

// Sender pushes a payload to a user's live connections.
type Sender interface {
	SendToUser(userID string, payload []byte) int
}

// HubStats exposes the hub's monitoring snapshot.
type HubStats interface {
	Snapshot() realtime.Stats
}

// WatermarkSource exposes the poller's reconciliation watermark.
type WatermarkSource interface {
	Watermark() time.Time
}

// NotificationHandler handles the notification REST endpoints.
type NotificationHandler struct {
	svc       notification.Service
	sender    Sender
	hub       HubStats
	watermark WatermarkSource
}

func NewNotificationHandler(svc notification.Service, sender Sender, hub HubStats, watermark WatermarkSource) *NotificationHandler {
	return &NotificationHandler{svc: svc, sender: sender, hub: hub, watermark: watermark}
}

// List returns one page of the caller's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, size := parsePagination(r)
	result, err := h.svc.List(r.Context(), claims.UserID, (page-1)*size, size)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// MarkRead marks the given notification ids as read for the caller. Ids that
// do not exist, belong to someone else, or are already read are skipped.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.MarkRead(r.Context(), claims.UserID, req.NotificationIDs); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.MarkAllRead(r.Context(), claims.UserID); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatsEnvelope is the admin monitoring snapshot.
type StatsEnvelope struct {
	ConnectedUsers   int            `json:"connected_users"`
	TotalConnections int            `json:"total_connections"`
	Users            map[string]int `json:"users"`
	Watermark        time.Time      `json:"watermark"`
}

// Stats reports live connection counts and the reconciliation watermark.
func (h *NotificationHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	snap := h.hub.Snapshot()
	writeJSON(w, http.StatusOK, StatsEnvelope{
		ConnectedUsers:   snap.ConnectedUsers,
		TotalConnections: snap.TotalConnections,
		Users:            snap.Users,
		Watermark:        h.watermark.Watermark(),
	})
}

// Create persists a notification for an arbitrary user and pushes it to their
// live connections. Admin only.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.svc.Create(r.Context(), notification.CreateParams{
		UserID:       req.UserID,
		ActorUserID:  claims.UserID,
		EventType:    req.EventType,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Message:      req.Message,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	if n == nil {
		// Recipient is the caller; nothing was created.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if payload, err := json.Marshal(n); err == nil {
		h.sender.SendToUser(n.UserID, payload)
	}
	writeJSON(w, http.StatusCreated, n)
}
