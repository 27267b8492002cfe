// Package event provides the in-process asynchronous bus that decouples
// business-logic producers from the notification pipeline. Publishing is
// fire-and-forget: handlers run in their own supervised goroutines and a
// failing handler never affects the publisher or its sibling handlers.
package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/qna-api/internal/domain"
)

// Handler processes one event. Errors are logged by the bus supervisor and
// never retried: the durable notification row is the source of truth, and the
// reconciliation poller recovers anything a failed handler missed.
type Handler func(ctx context.Context, evt domain.Event) error

// Bus routes events to subscribed handlers through a single dispatch
// goroutine. The intake channel is the explicit thread-safe handoff: any
// goroutine may call Publish, including request handlers that have no
// relationship to the bus's own goroutine.
type Bus struct {
	logger *slog.Logger

	mu       sync.Mutex
	handlers map[domain.EventType][]Handler
	started  bool

	intake   chan domain.Event
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup // in-flight handler goroutines
}

// NewBus creates a bus with the given intake buffer. Events published before
// Start queue in the buffer and are dispatched once the bus runs.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[domain.EventType][]Handler),
		intake:   make(chan domain.Event, buffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Subscribe registers a handler for an event type. Registration is
// append-only and must complete before Start; there is no unsubscribe.
func (b *Bus) Subscribe(t domain.EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		b.logger.Warn("subscribe after bus start ignored", "event_type", string(t))
		return
	}
	b.handlers[t] = append(b.handlers[t], h)
}

// Start launches the dispatch loop. ctx becomes the base context passed to
// every handler invocation; it is independent of any request context because
// handlers outlive the requests that trigger them.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		b.logger.Warn("event bus already started")
		return
	}
	b.started = true
	b.mu.Unlock()

	go b.run(ctx)
}

func (b *Bus) run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case evt := <-b.intake:
			b.dispatch(ctx, evt)
		case <-b.quit:
			// Drain anything accepted before shutdown so Publish followed
			// by Stop never silently loses the event.
			for {
				select {
				case evt := <-b.intake:
					b.dispatch(ctx, evt)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, evt domain.Event) {
	b.mu.Lock()
	handlers := b.handlers[evt.Type]
	b.mu.Unlock()
	for _, h := range handlers {
		b.wg.Add(1)
		go b.supervise(ctx, h, evt)
	}
}

// supervise runs one handler invocation, containing both errors and panics so
// a broken handler cannot take down the bus or its siblings.
func (b *Bus) supervise(ctx context.Context, h Handler, evt domain.Event) {
	defer b.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", string(evt.Type),
				"target_user_id", evt.TargetUserID,
				"panic", r,
			)
		}
	}()
	if err := h(ctx, evt); err != nil {
		b.logger.Error("event handler failed",
			"event_type", string(evt.Type),
			"target_user_id", evt.TargetUserID,
			"error", err,
		)
	}
}

// Publish hands the event to the dispatch goroutine and returns without
// waiting for handlers. Safe to call from any goroutine. During shutdown the
// event is dropped with a log line rather than blocking the caller.
func (b *Bus) Publish(evt domain.Event) {
	select {
	case <-b.quit:
		b.logger.Warn("event dropped, bus stopped", "event_type", string(evt.Type))
	default:
		select {
		case b.intake <- evt:
		case <-b.quit:
			b.logger.Warn("event dropped, bus stopped", "event_type", string(evt.Type))
		}
	}
}

// Stop terminates the dispatch loop and waits for every in-flight handler to
// finish. After Stop returns no handler is running and none will be started.
func (b *Bus) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.stopOnce.Do(func() { close(b.quit) })
	<-b.done
	b.wg.Wait()
}
