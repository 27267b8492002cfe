package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/qna-api/internal/domain"
)

// NotificationSource is the store query the poller reconciles against.
// Implementations must return rows with created_at strictly after since,
// restricted to userIDs, in created_at ascending order.
type NotificationSource interface {
	ListSince(ctx context.Context, since time.Time, userIDs []string) ([]domain.Notification, error)
}

// Poller periodically queries the store for notifications created since its
// watermark, restricted to users connected to this instance, and pushes them
// through the hub. This is the path that delivers notifications whose
// producing event was handled on a different server instance. Combined with
// the direct push in the event handlers the result is at-least-once delivery
// per instance; clients de-duplicate by notification id.
type Poller struct {
	hub      *Hub
	source   NotificationSource
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	running   bool
	lastCheck time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewPoller(hub *Hub, source NotificationSource, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 1500 * time.Millisecond
	}
	return &Poller{hub: hub, source: source, interval: interval, logger: logger}
}

// Start launches the poll loop. Calling Start while already running is a
// logged no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.logger.Warn("notification poller already running")
		return
	}
	p.running = true
	p.lastCheck = time.Now().UTC()

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx)

	p.logger.Info("notification poller started", "interval", p.interval)
}

// Stop cancels the loop and waits for it to terminate. After Stop returns no
// further store query or push will happen, which clean shutdown relies on.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
	p.logger.Info("notification poller stopped")
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// cycle runs one reconciliation pass. Errors are logged and the watermark is
// left untouched so the next cycle retries the same window naturally.
func (p *Poller) cycle(ctx context.Context) {
	// Fast path: most users are not connected at any instant, so most
	// cycles never touch the store.
	users := p.hub.ConnectedUsers()
	if len(users) == 0 {
		return
	}

	since := p.Watermark()
	rows, err := p.source.ListSince(ctx, since, users)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error("reconciliation query failed", "error", err)
		return
	}

	// Advance the watermark on every successful cycle. With rows, use the
	// newest created_at so rows committed after the query but stamped before
	// now() are not skipped; without rows, use now() so the query window
	// cannot grow without bound during quiet periods.
	if len(rows) > 0 {
		p.setWatermark(maxCreatedAt(rows))
		p.logger.Info("reconciliation found new notifications", "count", len(rows))
	} else {
		p.setWatermark(time.Now().UTC())
		return
	}

	// Group by recipient, preserving the store's created_at ascending order
	// within each user so clients observe causal order.
	byUser := make(map[string][]domain.Notification)
	for _, n := range rows {
		byUser[n.UserID] = append(byUser[n.UserID], n)
	}
	for userID, list := range byUser {
		for _, n := range list {
			payload, err := json.Marshal(n)
			if err != nil {
				p.logger.Error("marshal notification failed", "notification_id", n.NotificationID, "error", err)
				continue
			}
			p.hub.SendToUser(userID, payload)
		}
	}
}

// Watermark returns the current last-check timestamp.
func (p *Poller) Watermark() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCheck
}

func (p *Poller) setWatermark(t time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.After(p.lastCheck) {
		p.lastCheck = t
	}
}

func maxCreatedAt(rows []domain.Notification) time.Time {
	max := rows[0].CreatedAt
	for _, n := range rows[1:] {
		if n.CreatedAt.After(max) {
			max = n.CreatedAt
		}
	}
	return max
}
