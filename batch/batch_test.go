package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flanksource/transmute/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBoundsConcurrency(t *testing.T) {
	var running, peak int32
	fn := func(ctx context.Context, name string) (*api.Result, error) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return api.NewResult([]byte(name), api.PNG, name+".png"), nil
	}

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	g := Run(context.Background(), names, 3, fn)

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, StatusSuccess, g.Status())
	assert.Equal(t, len(names), g.Count(StatusSuccess))
	for i, item := range g.Items {
		assert.Equal(t, names[i], item.Name)
		assert.Equal(t, names[i], string(item.Result.Bytes()))
		assert.Greater(t, item.Duration(), time.Duration(0))
	}
	assert.NoError(t, g.Err())
}

func TestRunKeepsGoingAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	fn := func(ctx context.Context, name string) (*api.Result, error) {
		if name == "bad" {
			return nil, boom
		}
		return api.NewResult(nil, api.TXT, name), nil
	}

	g := Run(context.Background(), []string{"one", "bad", "two"}, 1, fn)
	assert.Equal(t, StatusFailed, g.Status())
	assert.Equal(t, 2, g.Count(StatusSuccess))
	assert.Equal(t, StatusFailed, g.Items[1].Status)
	assert.ErrorIs(t, g.Err(), boom)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	g := Run(ctx, []string{"a", "b"}, 1, func(ctx context.Context, name string) (*api.Result, error) {
		called = true
		return nil, nil
	})
	require.False(t, called)
	assert.Equal(t, StatusCancelled, g.Status())
	assert.Equal(t, 2, g.Count(StatusCancelled))
	assert.ErrorIs(t, g.Err(), context.Canceled)
}

func TestRunEmpty(t *testing.T) {
	g := Run(context.Background(), nil, 0, nil)
	assert.Equal(t, StatusSuccess, g.Status())
	assert.NoError(t, g.Err())
}
