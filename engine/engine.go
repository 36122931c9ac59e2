// Package engine owns the lifecycle of a codec engine: an expensive,
// asynchronously initialised conversion runtime that works on files kept in
// its own private storage.
//
// A Manager holds at most one engine instance. Concurrent EnsureReady calls
// converge on a single initialisation, every file written into engine
// storage is tracked until removed, and Shutdown removes whatever is left
// before terminating the engine.
//
//	m := engine.NewManager(native.Load)
//	defer m.Shutdown(ctx)
//
//	h, err := m.EnsureReady(ctx)
//	if err != nil {
//	    return err
//	}
//	out, err := engine.Invoke(ctx, h, pngBytes, "png", "jpeg")
package engine

import "context"

// Engine is the command interface of a codec runtime. Names are flat
// identifiers inside the engine's private storage, never host paths.
type Engine interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	RemoveFile(ctx context.Context, name string) error
	// Execute runs one conversion command. argv names the input and output
	// identifiers, e.g. ["-i", "input.png", "output.jpeg"].
	Execute(ctx context.Context, argv []string) error
	// Terminate releases the runtime. The engine is unusable afterwards.
	Terminate(ctx context.Context) error
}

// Loader brings up a new engine instance.
type Loader func(ctx context.Context) (Engine, error)

// Diagnoser is implemented by engine errors that carry the runtime's own
// output, such as a codec's stderr.
type Diagnoser interface {
	Diagnostic() string
}
