// Package batch runs many conversions with bounded concurrency and
// aggregates their outcome.
package batch

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute/api"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Item is the outcome of one input.
type Item struct {
	Name      string
	Status    Status
	Result    *api.Result
	Err       error
	startTime time.Time
	endTime   time.Time
}

func (i *Item) Duration() time.Duration {
	if i.startTime.IsZero() {
		return 0
	}
	if i.endTime.IsZero() {
		return time.Since(i.startTime)
	}
	return i.endTime.Sub(i.startTime)
}

// Func converts a single named input.
type Func func(ctx context.Context, name string) (*api.Result, error)

// Group is a completed batch; Items keep input order.
type Group struct {
	Items     []*Item
	startTime time.Time
	endTime   time.Time
}

// Run calls fn for every name with at most concurrency calls in flight;
// zero or less uses GOMAXPROCS. A failed item never stops the others.
// Items not started before ctx is done are marked cancelled.
func Run(ctx context.Context, names []string, concurrency int, fn Func) *Group {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	g := &Group{Items: make([]*Item, len(names)), startTime: time.Now()}
	for i, name := range names {
		g.Items[i] = &Item{Name: name, Status: StatusPending}
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for _, item := range g.Items {
		if !acquire(ctx, sem) {
			item.Status = StatusCancelled
			item.Err = ctx.Err()
			continue
		}

		wg.Add(1)
		item.Status = StatusRunning
		item.startTime = time.Now()
		go func(item *Item) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := fn(ctx, item.Name)
			item.endTime = time.Now()
			item.Result, item.Err = result, err
			switch {
			case err == nil:
				item.Status = StatusSuccess
			case errors.Is(err, context.Canceled):
				item.Status = StatusCancelled
			default:
				item.Status = StatusFailed
			}
			logger.Debugf("%s: %s in %s", item.Name, item.Status, item.Duration())
		}(item)
	}
	wg.Wait()
	g.endTime = time.Now()
	return g
}

func acquire(ctx context.Context, sem chan struct{}) bool {
	select {
	case sem <- struct{}{}:
		if ctx.Err() != nil {
			<-sem
			return false
		}
		return true
	case <-ctx.Done():
		return false
	}
}

// Status is success only when every item succeeded.
func (g *Group) Status() Status {
	if len(g.Items) == 0 {
		return StatusSuccess
	}
	hasFailed, hasCancelled := false, false
	for _, item := range g.Items {
		switch item.Status {
		case StatusFailed:
			hasFailed = true
		case StatusCancelled:
			hasCancelled = true
		}
	}
	if hasFailed {
		return StatusFailed
	}
	if hasCancelled {
		return StatusCancelled
	}
	return StatusSuccess
}

func (g *Group) Duration() time.Duration {
	return g.endTime.Sub(g.startTime)
}

// Count returns the number of items with the given status.
func (g *Group) Count(s Status) int {
	n := 0
	for _, item := range g.Items {
		if item.Status == s {
			n++
		}
	}
	return n
}

// Err joins the errors of every unsuccessful item.
func (g *Group) Err() error {
	var errs []error
	for _, item := range g.Items {
		if item.Err != nil {
			errs = append(errs, item.Err)
		}
	}
	return errors.Join(errs...)
}
