package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHooksRunInPriorityOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	r.AddHookWithPriority("engine", PriorityEngine, record("engine"))
	r.AddHookWithPriority("http", PriorityIngress, record("http"))
	r.AddHook("first-default", record("first-default"))
	r.AddHook("second-default", record("second-default"))
	r.AddHookWithPriority("workers", PriorityWorkers, record("workers"))

	assert.Equal(t, 5, r.Len())
	r.Shutdown(context.Background())

	assert.Equal(t, []string{"http", "first-default", "second-default", "workers", "engine"}, order)
	assert.Zero(t, r.Len())
}

func TestFailingHooksDoNotStopShutdown(t *testing.T) {
	r := NewRegistry()
	ran := 0
	r.AddHookWithPriority("panics", 1, func(context.Context) error { panic("boom") })
	r.AddHookWithPriority("errors", 2, func(context.Context) error { return errors.New("busy") })
	r.AddHookWithPriority("last", 3, func(context.Context) error {
		ran++
		return nil
	})

	r.Shutdown(context.Background())
	assert.Equal(t, 1, ran)

	// hooks run once
	r.Shutdown(context.Background())
	assert.Equal(t, 1, ran)
}

func TestHooksReceiveContext(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var deadline bool
	r.AddHook("ctx", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	r.Shutdown(ctx)
	assert.True(t, deadline)
}

func TestWaitForSignalReturnsOnContextDone(t *testing.T) {
	r := NewRegistry()
	called := make(chan struct{})
	r.AddHook("engine", func(ctx context.Context) error {
		assert.NoError(t, ctx.Err())
		close(called)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.WaitForSignal(ctx)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("hook did not run")
	}
}
