package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerIdempotent(t *testing.T) {
	tr := NewTracker()
	tr.Track("input.png")
	tr.Track("input.png")
	assert.Equal(t, 1, tr.Len())
	assert.True(t, tr.Contains("input.png"))

	tr.Untrack("missing")
	tr.Untrack("input.png")
	tr.Untrack("input.png")
	assert.Equal(t, 0, tr.Len())
}

func TestTrackerDrain(t *testing.T) {
	tr := NewTracker()
	tr.Track("output.jpeg")
	tr.Track("input.png")

	assert.Equal(t, []string{"input.png", "output.jpeg"}, tr.Drain())
	assert.Equal(t, 0, tr.Len())
	assert.Empty(t, tr.Drain())
	assert.NotNil(t, tr.Drain())

	tr.Track("input.png")
	assert.Equal(t, []string{"input.png"}, tr.List())
}

func TestTrackerDrainWhileTracking(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	seen := make(chan []string, 100)
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tr.Track(fmt.Sprintf("id-%03d", i))
		}(i)
		go func() {
			defer wg.Done()
			seen <- tr.Drain()
		}()
	}
	wg.Wait()
	close(seen)

	// every id ends up either drained exactly once or still tracked
	counts := map[string]int{}
	for ids := range seen {
		for _, id := range ids {
			counts[id]++
		}
	}
	for _, id := range tr.Drain() {
		counts[id]++
	}
	assert.Len(t, counts, 100)
	for id, n := range counts {
		assert.Equal(t, 1, n, id)
	}
}

func TestTrackerConcurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i%26))
			tr.Track(id)
			tr.Contains(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 26, tr.Len())
}
