// Package dispatcher runs the post-commit hook list. Audit side entries,
// notification dispatch and advisory checks subscribe here; each hook is
// independently fault-isolated so a failing or panicking hook can never make
// a committed transition appear to have failed.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/procureops/requisition-engine/internal/domain/event"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Dispatcher routes committed-transition events to registered hooks
type Dispatcher interface {
	// Subscribe registers a hook for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a hook with a name for debugging
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Dispatch runs all hooks for the event sequentially. Hook errors and
	// panics are logged and swallowed; Dispatch itself never fails.
	Dispatch(ctx context.Context, evt *event.Event)

	// DispatchAsync runs the hooks in the background without waiting
	DispatchAsync(ctx context.Context, evt *event.Event)

	// Close stops accepting events and waits for in-flight async hooks
	Close() error
}

// hookDispatcher is the concrete implementation of Dispatcher
type hookDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   Logger
	timeout  time.Duration

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*hookDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *hookDispatcher) {
		d.logger = logger
	}
}

// WithHookTimeout bounds each hook invocation. A hung hook (for example a
// stalled notification backend) is cut off at the deadline instead of
// delaying the approval response.
func WithHookTimeout(timeout time.Duration) Option {
	return func(d *hookDispatcher) {
		d.timeout = timeout
	}
}

// New creates a new hook dispatcher
func New(opts ...Option) Dispatcher {
	d := &hookDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		timeout:  5 * time.Second,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Subscribe registers a hook with an auto-generated name
func (d *hookDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.RLock()
	n := len(d.handlers[eventType])
	d.mu.RUnlock()
	d.SubscribeNamed(eventType, fmt.Sprintf("hook-%d", n), handler)
}

// SubscribeNamed registers a hook with a specific name for debugging
func (d *hookDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})

	if d.logger != nil {
		d.logger.Info("Hook registered",
			"event_type", eventType,
			"hook", name,
		)
	}
}

// Dispatch runs all hooks for the event sequentially, fault-isolated
func (d *hookDispatcher) Dispatch(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		if d.logger != nil {
			d.logger.Error("Dispatcher closed, dropping event",
				"event_type", evt.Type, "event_id", evt.ID)
		}
		return
	}

	d.mu.RLock()
	handlers := append([]HandlerInfo(nil), d.handlers[evt.Type]...)
	d.mu.RUnlock()

	for _, info := range handlers {
		d.runIsolated(ctx, evt, info)
	}
}

// DispatchAsync runs the hooks in the background
func (d *hookDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	if d.closed.Load() {
		if d.logger != nil {
			d.logger.Error("Dispatcher closed, dropping event",
				"event_type", evt.Type, "event_id", evt.ID)
		}
		return
	}

	d.mu.RLock()
	handlers := append([]HandlerInfo(nil), d.handlers[evt.Type]...)
	d.mu.RUnlock()

	for _, info := range handlers {
		d.wg.Add(1)
		go func(h HandlerInfo) {
			defer d.wg.Done()
			// Detach from the request context; the caller's request may
			// complete before the hook does.
			d.runIsolated(context.Background(), evt, h)
		}(info)
	}
}

// Close stops accepting events and waits for in-flight async hooks
func (d *hookDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}
	d.wg.Wait()
	return nil
}

// runIsolated executes one hook with timeout and panic recovery, logging any
// failure instead of returning it
func (d *hookDispatcher) runIsolated(ctx context.Context, evt *event.Event, info HandlerInfo) {
	hookCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("hook panic: %v", r)
			}
		}()
		return info.Handler(hookCtx, evt)
	}()

	if err != nil && d.logger != nil {
		d.logger.Error("Post-commit hook failed",
			"event_type", evt.Type,
			"event_id", evt.ID,
			"hook", info.Name,
			"error", err,
		)
	}
}
