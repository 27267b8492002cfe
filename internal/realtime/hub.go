// Package realtime holds the per-instance delivery machinery: the connection
// hub that fans payloads out to a user's live streams, and the reconciliation
// poller that recovers notifications created on other instances.
package realtime

import (
	"log/slog"
	"sync"
)

// Conn is one live client stream. The owning transport handler drains
// Messages and writes each payload to the wire.
type Conn struct {
	userID string
	ch     chan []byte
}

// Messages returns the outbound payload channel for this connection.
func (c *Conn) Messages() <-chan []byte { return c.ch }

// UserID returns the user this connection belongs to.
func (c *Conn) UserID() string { return c.userID }

// Hub tracks which users hold live connections on this instance and fans
// payloads out to all of a user's connections (multi-tab, multi-device). The
// registry is strictly process-local: no instance knows about another
// instance's connections, and cross-instance delivery is the poller's job.
type Hub struct {
	logger *slog.Logger
	buffer int

	mu    sync.RWMutex
	conns map[string]map[*Conn]struct{}
}

// Stats is a point-in-time snapshot of the hub, for monitoring.
type Stats struct {
	ConnectedUsers   int            `json:"connected_users"`
	TotalConnections int            `json:"total_connections"`
	Users            map[string]int `json:"users"`
}

// NewHub creates a hub whose connections buffer up to buffer payloads each.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		logger: logger,
		buffer: buffer,
		conns:  make(map[string]map[*Conn]struct{}),
	}
}

// Connect registers a new connection for userID and returns it. The caller
// owns the physical transport and must call Disconnect when it tears down.
func (h *Hub) Connect(userID string) *Conn {
	c := &Conn{userID: userID, ch: make(chan []byte, h.buffer)}

	h.mu.Lock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*Conn]struct{})
		h.conns[userID] = set
	}
	set[c] = struct{}{}
	n := len(set)
	h.mu.Unlock()

	h.logger.Info("stream connected", "user_id", userID, "connections", n)
	return c
}

// Disconnect removes the connection. When it was the user's last one the
// user entry is dropped entirely, which keeps ConnectedUsers accurate and
// cheap. The connection's channel is never closed; senders only ever enqueue
// non-blocking, so a stale channel is simply garbage collected.
func (h *Hub) Disconnect(userID string, c *Conn) {
	h.mu.Lock()
	remaining := 0
	if set, ok := h.conns[userID]; ok {
		delete(set, c)
		remaining = len(set)
		if remaining == 0 {
			delete(h.conns, userID)
		}
	}
	h.mu.Unlock()

	h.logger.Info("stream disconnected", "user_id", userID, "connections", remaining)
}

// SendToUser enqueues payload on every connection registered for userID and
// returns how many connections received it. A user with no connection on
// this instance is a silent no-op: they may be connected elsewhere, or not at
// all. When a connection's buffer is full the oldest queued payload is
// dropped so a stalled client never blocks delivery to anyone else.
func (h *Hub) SendToUser(userID string, payload []byte) int {
	h.mu.RLock()
	set, ok := h.conns[userID]
	if !ok {
		h.mu.RUnlock()
		return 0
	}
	// Snapshot before enqueueing so a concurrent disconnect cannot mutate
	// the set mid-iteration.
	targets := make([]*Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if h.enqueue(c, payload) {
			delivered++
		} else {
			h.logger.Warn("stream buffer overflow, dropped oldest payload", "user_id", userID)
			delivered++
		}
	}
	return delivered
}

// enqueue pushes payload without ever blocking. On overflow it evicts the
// oldest queued payload and retries once; reports false when an eviction
// happened.
func (h *Hub) enqueue(c *Conn, payload []byte) bool {
	select {
	case c.ch <- payload:
		return true
	default:
	}
	select {
	case <-c.ch:
	default:
	}
	select {
	case c.ch <- payload:
	default:
	}
	return false
}

// ConnectedUsers returns a snapshot of user ids with at least one live
// connection on this instance. The poller uses it to restrict its query to
// users who can actually receive a push here.
func (h *Hub) ConnectedUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.conns))
	for id := range h.conns {
		users = append(users, id)
	}
	return users
}

// TotalConnections returns the number of live connections across all users.
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.conns {
		n += len(set)
	}
	return n
}

// Snapshot returns per-user connection counts for the stats endpoint.
func (h *Hub) Snapshot() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := Stats{Users: make(map[string]int, len(h.conns))}
	for id, set := range h.conns {
		s.Users[id] = len(set)
		s.TotalConnections += len(set)
	}
	s.ConnectedUsers = len(h.conns)
	return s
}
