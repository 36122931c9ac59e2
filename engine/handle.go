package engine

import "context"

// Handle is a reference to one generation of a Manager's engine. Once that
// generation is shut down every operation fails with EngineNotReady.
//
// Writes and removals keep the manager's tracker in step with engine
// storage: a successful WriteFile tracks the name and a successful
// RemoveFile untracks it.
type Handle struct {
	m   *Manager
	gen uint64
}

func (h *Handle) WriteFile(ctx context.Context, name string, data []byte) error {
	return h.do(ctx, func(eng Engine) error {
		if err := eng.WriteFile(ctx, name, data); err != nil {
			return err
		}
		h.m.tracked.Track(name)
		return nil
	})
}

func (h *Handle) ReadFile(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := h.do(ctx, func(eng Engine) error {
		var err error
		data, err = eng.ReadFile(ctx, name)
		return err
	})
	return data, err
}

func (h *Handle) RemoveFile(ctx context.Context, name string) error {
	return h.do(ctx, func(eng Engine) error {
		if err := eng.RemoveFile(ctx, name); err != nil {
			return err
		}
		h.m.tracked.Untrack(name)
		return nil
	})
}

func (h *Handle) Execute(ctx context.Context, argv []string) error {
	return h.do(ctx, func(eng Engine) error {
		return eng.Execute(ctx, argv)
	})
}

// track records a file the engine produced on its own, such as a command's
// output. Nothing is recorded once the generation has been shut down.
func (h *Handle) track(name string) bool {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	if !h.m.ready || h.m.gen != h.gen {
		return false
	}
	h.m.tracked.Track(name)
	return true
}

func (h *Handle) do(ctx context.Context, op func(Engine) error) error {
	if err := h.m.acquire(ctx); err != nil {
		return err
	}
	defer h.m.release()

	eng, err := h.m.current(h.gen)
	if err != nil {
		return err
	}
	return op(eng)
}
