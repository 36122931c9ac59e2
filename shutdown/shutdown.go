// Package shutdown runs teardown hooks in priority order, lowest first.
// Hooks are owned by a Registry rather than package state so each
// application context tears down only what it registered.
package shutdown

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flanksource/commons/logger"
)

const (
	PriorityIngress = 0
	PriorityDefault = 100
	PriorityWorkers = 200
	PriorityEngine  = 300
)

type Hook struct {
	label    string
	priority int
	seq      int
	fn       func(ctx context.Context) error
	index    int // for heap interface
}

type HookHeap []*Hook

func (h HookHeap) Len() int { return len(h) }
func (h HookHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h HookHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *HookHeap) Push(x interface{}) {
	n := len(*h)
	item := x.(*Hook)
	item.index = n
	*h = append(*h, item)
}

func (h *HookHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // avoid memory leak
	item.index = -1 // for safety
	*h = old[0 : n-1]
	return item
}

type Registry struct {
	mu    sync.Mutex
	hooks HookHeap
	seq   int
	log   logger.Logger
	once  sync.Once
}

func NewRegistry() *Registry {
	return &Registry{log: logger.GetLogger("shutdown")}
}

// AddHook registers a hook with default priority.
func (r *Registry) AddHook(label string, fn func(ctx context.Context) error) {
	r.AddHookWithPriority(label, PriorityDefault, fn)
}

// AddHookWithPriority registers a hook. Hooks of equal priority run in
// registration order.
func (r *Registry) AddHookWithPriority(label string, priority int, fn func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	heap.Push(&r.hooks, &Hook{
		label:    label,
		priority: priority,
		seq:      r.seq,
		fn:       fn,
	})
}

// Len is the number of hooks waiting to run.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hooks.Len()
}

// Shutdown executes and removes every registered hook. Hook errors and
// panics are logged and do not stop later hooks.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.hooks) == 0 {
		return
	}

	r.log.Debugf("Executing %d shutdown hooks", len(r.hooks))

	for r.hooks.Len() > 0 {
		hook := heap.Pop(&r.hooks).(*Hook)
		r.log.Debugf("Executing shutdown hook: %s (priority=%d)", hook.label, hook.priority)

		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Errorf("Panic in shutdown hook %s: %v", hook.label, rec)
				}
			}()
			if err := hook.fn(ctx); err != nil {
				r.log.Warnf("Shutdown hook %s failed: %v", hook.label, err)
			}
		}()
	}

	r.log.Debugf("All shutdown hooks executed")
}

// WaitForSignal blocks until SIGINT or SIGTERM, runs the hooks and returns.
// A second signal exits immediately.
func (r *Registry) WaitForSignal(ctx context.Context) {
	r.once.Do(func() {
		sigChan := make(chan os.Signal, 2)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "\nReceived %s, shutting down (press Ctrl+C again to force exit)\n", sig)
		case <-ctx.Done():
		}

		done := make(chan struct{})
		go func() {
			select {
			case <-sigChan:
				fmt.Fprintf(os.Stderr, "\nForce exit\n")
				os.Exit(1)
			case <-done:
			}
		}()

		r.Shutdown(context.WithoutCancel(ctx))
		close(done)
	})
}
