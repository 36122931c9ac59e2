package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute/api"
)

// Manager owns zero or one engine instance.
//
// A Manager is safe for concurrent use. It is created by the application
// and passed to whoever needs the engine; there is no package-level
// instance.
type Manager struct {
	load Loader
	name string
	log  logger.Logger

	mu       sync.Mutex
	engine   Engine
	ready    bool
	gen      uint64
	inflight *initCall
	loads    int

	// cmd serialises engine commands; the runtime handles one at a time.
	cmd     chan struct{}
	tracked *Tracker
}

// initCall is a one-shot broadcast shared by every caller waiting on the
// same initialisation.
type initCall struct {
	done chan struct{}
	gen  uint64
	err  error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for lifecycle events and cleanup failures.
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithName labels the engine in logs and errors.
func WithName(name string) Option {
	return func(m *Manager) {
		m.name = name
	}
}

func NewManager(load Loader, opts ...Option) *Manager {
	m := &Manager{
		load:    load,
		name:    "engine",
		cmd:     make(chan struct{}, 1),
		tracked: NewTracker(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.GetLogger(m.name)
	}
	return m
}

// EnsureReady returns a handle to the ready engine, initialising it first if
// needed. Callers arriving while an initialisation is in flight wait for
// that same attempt. A failed attempt is reported to every waiter as
// EngineInitFailed and the next call starts a fresh one.
//
// Cancelling ctx only stops this caller from waiting; the initialisation
// itself keeps running for the others. A caller whose ctx is already done
// never starts one.
func (m *Manager) EnsureReady(ctx context.Context) (*Handle, error) {
	m.mu.Lock()
	if m.ready {
		h := &Handle{m: m, gen: m.gen}
		m.mu.Unlock()
		return h, nil
	}
	call := m.inflight
	if call == nil {
		if err := ctx.Err(); err != nil {
			m.mu.Unlock()
			return nil, err
		}
		call = &initCall{done: make(chan struct{})}
		m.inflight = call
		m.loads++
		go m.initialize(context.WithoutCancel(ctx), call)
	}
	m.mu.Unlock()

	select {
	case <-call.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if call.err != nil {
		return nil, call.err
	}
	return &Handle{m: m, gen: call.gen}, nil
}

func (m *Manager) initialize(ctx context.Context, call *initCall) {
	start := time.Now()
	eng, err := m.safeLoad(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(call.done)

	m.inflight = nil
	if err == nil && eng == nil {
		err = fmt.Errorf("loader returned no engine")
	}
	if err != nil {
		m.log.Warnf("%s initialisation failed after %s: %v", m.name, time.Since(start), err)
		call.err = api.NewError(api.CodeEngineInitFailed, "load "+m.name, err)
		return
	}
	m.engine = eng
	m.ready = true
	m.gen++
	call.gen = m.gen
	m.log.Debugf("%s ready in %s", m.name, time.Since(start))
}

func (m *Manager) safeLoad(ctx context.Context) (eng Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during load: %v", r)
		}
	}()
	return m.load(ctx)
}

// Engine returns a handle to the ready engine, or EngineNotReady when
// EnsureReady has not succeeded since the last Shutdown.
func (m *Manager) Engine() (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, api.NewError(api.CodeEngineNotReady, m.name+" is not initialised", nil)
	}
	return &Handle{m: m, gen: m.gen}, nil
}

// Ready reports whether an engine instance is live.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// Loads returns how many initialisations have been started.
func (m *Manager) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

// Tracked lists identifiers currently resident in engine storage.
func (m *Manager) Tracked() []string {
	return m.tracked.List()
}

// Shutdown tears the engine down: it waits for the running command, removes
// every tracked file, then terminates the instance. Removal and termination
// failures are logged and never returned. Shutdown is a no-op when no engine
// is ready and may be called any number of times; EnsureReady starts a new
// instance afterwards.
//
// If ctx ends while a command is still running, Shutdown returns ctx.Err()
// and leaves the engine untouched; call it again to finish the teardown.
func (m *Manager) Shutdown(ctx context.Context) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil
	}

	eng := m.engine
	m.engine = nil
	m.ready = false

	ids := m.tracked.Drain()
	for _, id := range ids {
		if err := eng.RemoveFile(ctx, id); err != nil {
			m.log.Warnf("%s: removing %s during shutdown: %v", m.name, id, err)
		}
	}
	if err := eng.Terminate(ctx); err != nil {
		m.log.Warnf("%s: terminate: %v", m.name, err)
	}
	m.inflight = nil
	m.log.Debugf("%s shut down, released %d files", m.name, len(ids))
	return nil
}

func (m *Manager) acquire(ctx context.Context) error {
	select {
	case m.cmd <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) release() {
	<-m.cmd
}

// current returns the live engine if generation gen is still the active one.
func (m *Manager) current(gen uint64) (Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready || m.gen != gen {
		return nil, api.NewError(api.CodeEngineNotReady, m.name+" was shut down", nil)
	}
	return m.engine, nil
}
