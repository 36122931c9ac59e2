package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// fakeEngine is an in-memory Engine whose Execute copies the input file to
// the output file.
type fakeEngine struct {
	mu         sync.Mutex
	files      map[string][]byte
	terminated bool

	failWrite     error
	failExec      error
	failRead      error
	failRemove    error
	failTerminate error
	// skipOutput makes Execute succeed without producing the output file.
	skipOutput bool
	// execHook runs inside Execute before the copy.
	execHook func()
}

type diagError struct{ text string }

func (e *diagError) Error() string      { return "exit status 1" }
func (e *diagError) Diagnostic() string { return e.text }

func newFakeEngine() *fakeEngine {
	return &fakeEngine{files: map[string][]byte{}}
}

func (f *fakeEngine) WriteFile(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return f.failWrite
	}
	f.files[name] = append([]byte(nil), data...)
	return nil
}

func (f *fakeEngine) ReadFile(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead != nil {
		return nil, f.failRead
	}
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: file does not exist", name)
	}
	return data, nil
}

func (f *fakeEngine) RemoveFile(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemove != nil {
		return f.failRemove
	}
	if _, ok := f.files[name]; !ok {
		return fmt.Errorf("%s: file does not exist", name)
	}
	delete(f.files, name)
	return nil
}

func (f *fakeEngine) Execute(_ context.Context, argv []string) error {
	if f.execHook != nil {
		f.execHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExec != nil {
		return f.failExec
	}
	if len(argv) != 3 || argv[0] != "-i" {
		return errors.New("bad argv")
	}
	data, ok := f.files[argv[1]]
	if !ok {
		return &diagError{text: argv[1] + ": No such file or directory"}
	}
	if !f.skipOutput {
		f.files[argv[2]] = append([]byte("converted:"), data...)
	}
	return nil
}

func (f *fakeEngine) Terminate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = true
	return f.failTerminate
}

func (f *fakeEngine) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *fakeEngine) isTerminated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminated
}

// staticLoader always returns eng.
func staticLoader(eng Engine) Loader {
	return func(context.Context) (Engine, error) {
		return eng, nil
	}
}
