package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procureops/requisition-engine/internal/domain/event"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

func TestDispatch_RunsAllHooksInOrder(t *testing.T) {
	d := New(WithLogger(nopLogger{}))

	var order []string
	d.SubscribeNamed(event.TypeStatusChanged, "first", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "first")
		return nil
	})
	d.SubscribeNamed(event.TypeStatusChanged, "second", func(ctx context.Context, evt *event.Event) error {
		order = append(order, "second")
		return nil
	})

	d.Dispatch(context.Background(), event.New(event.TypeStatusChanged, 1, "u-1", nil))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatch_HookErrorIsSwallowed(t *testing.T) {
	d := New(WithLogger(nopLogger{}))

	var secondRan bool
	d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
		return errors.New("notification backend down")
	})
	d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
		secondRan = true
		return nil
	})

	// Must not panic or abort remaining hooks.
	d.Dispatch(context.Background(), event.New(event.TypeStatusChanged, 1, "u-1", nil))

	assert.True(t, secondRan, "a failing hook must not stop later hooks")
}

func TestDispatch_HookPanicIsRecovered(t *testing.T) {
	d := New(WithLogger(nopLogger{}))

	d.Subscribe(event.TypeStepApproved, func(ctx context.Context, evt *event.Event) error {
		panic("boom")
	})

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), event.New(event.TypeStepApproved, 1, "u-1", nil))
	})
}

func TestDispatch_HookTimeoutBoundsHangingHook(t *testing.T) {
	d := New(WithLogger(nopLogger{}), WithHookTimeout(20*time.Millisecond))

	d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return nil
		}
	})

	start := time.Now()
	d.Dispatch(context.Background(), event.New(event.TypeStatusChanged, 1, "u-1", nil))
	assert.Less(t, time.Since(start), time.Second, "a hanging hook must be cut off at the deadline")
}

func TestDispatchAsync_RunsHooksAndCloseWaits(t *testing.T) {
	d := New(WithLogger(nopLogger{}))

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)
	d.Subscribe(event.TypeRequisitionSubmitted, func(ctx context.Context, evt *event.Event) error {
		defer wg.Done()
		count.Add(1)
		return nil
	})

	d.DispatchAsync(context.Background(), event.New(event.TypeRequisitionSubmitted, 1, "u-1", nil))
	wg.Wait()

	require.NoError(t, d.Close())
	assert.Equal(t, int32(1), count.Load())
}

func TestDispatch_AfterCloseDropsEvent(t *testing.T) {
	d := New(WithLogger(nopLogger{}))

	var ran bool
	d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
		ran = true
		return nil
	})

	require.NoError(t, d.Close())
	d.Dispatch(context.Background(), event.New(event.TypeStatusChanged, 1, "u-1", nil))

	assert.False(t, ran)
	assert.Error(t, d.Close(), "double close should error")
}
