package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/qna-api/internal/realtime"
	"github.com/qna-api/internal/transport/http/middleware"
)

// StreamHandler serves the SSE notification stream. Auth comes from a token
// query parameter because EventSource clients cannot set headers; a Bearer
// header is accepted as a fallback for non-browser clients.
type StreamHandler struct {
	hub       *realtime.Hub
	verifier  middleware.TokenVerifier
	heartbeat time.Duration
}

func NewStreamHandler(hub *realtime.Hub, verifier middleware.TokenVerifier, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &StreamHandler{hub: hub, verifier: verifier, heartbeat: heartbeat}
}

func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			tokenStr = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if tokenStr == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := h.verifier.Verify(tokenStr)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	conn := h.hub.Connect(claims.UserID)
	defer h.hub.Disconnect(claims.UserID, conn)

	writeEvent(w, "connected", fmt.Sprintf(`{"user_id":%q}`, claims.UserID))
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case payload := <-conn.Messages():
			writeEvent(w, "notification", string(payload))
			flusher.Flush()
		case <-ticker.C:
			writeEvent(w, "heartbeat", `{"type":"ping"}`)
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE frame. Payloads are single-line JSON so no
// data-field splitting is needed.
func writeEvent(w http.ResponseWriter, event, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
