package engine

import (
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Tracker records identifiers currently resident in engine storage.
//
// The set itself is thread-unsafe; mu guards it so Drain can read and clear
// in one step.
type Tracker struct {
	mu  sync.Mutex
	ids mapset.Set[string]
}

func NewTracker() *Tracker {
	return &Tracker{ids: mapset.NewThreadUnsafeSet[string]()}
}

// Track adds id; tracking an id twice is a no-op.
func (t *Tracker) Track(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids.Add(id)
}

// Untrack removes id; absent ids are ignored.
func (t *Tracker) Untrack(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids.Remove(id)
}

func (t *Tracker) Contains(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ids.Contains(id)
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ids.Cardinality()
}

// List returns the tracked ids in lexical order.
func (t *Tracker) List() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sorted()
}

// Drain returns every tracked id in lexical order and empties the set.
func (t *Tracker) Drain() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := t.sorted()
	t.ids.Clear()
	return ids
}

func (t *Tracker) sorted() []string {
	ids := t.ids.ToSlice()
	sort.Strings(ids)
	return ids
}
