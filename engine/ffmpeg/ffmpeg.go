// Package ffmpeg is a codec engine backed by an external ffmpeg binary. Its
// private storage is a temporary directory that commands run inside, so
// engine identifiers are plain relative file names.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute/engine"
	"github.com/flanksource/transmute/exec"
)

// Option configures the engine.
type Option func(*options)

type options struct {
	binary string
	tmpDir string
	args   []string
}

// WithBinary sets the ffmpeg executable; defaults to "ffmpeg" on PATH.
func WithBinary(path string) Option {
	return func(o *options) {
		o.binary = path
	}
}

// WithTempDir sets the parent of the engine's storage directory.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tmpDir = dir
	}
}

// WithArgs adds global arguments placed before every command, e.g.
// "-threads 1".
func WithArgs(args ...string) Option {
	return func(o *options) {
		o.args = append(o.args, args...)
	}
}

// Engine implements engine.Engine.
type Engine struct {
	binary  string
	version string
	dir     string
	args    []string
	log     logger.Logger
}

// Loader returns an engine.Loader that resolves the binary, checks its
// version and creates the storage directory.
func Loader(opts ...Option) engine.Loader {
	return func(ctx context.Context) (engine.Engine, error) {
		o := options{binary: "ffmpeg"}
		for _, opt := range opts {
			opt(&o)
		}
		bin, err := exec.LookPath(o.binary)
		if err != nil {
			return nil, fmt.Errorf("ffmpeg: %w", err)
		}

		log := logger.GetLogger("ffmpeg")
		check := exec.Command(bin, "-hide_banner", "-version").WithLogger(log)
		if err := check.Run(ctx); err != nil {
			return nil, fmt.Errorf("ffmpeg: version check %s: %w", bin, err)
		}
		version := parseVersion(check.Stdout.String())

		dir, err := os.MkdirTemp(o.tmpDir, "transmute-ffmpeg-")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg: create storage: %w", err)
		}
		log.Debugf("loaded %s (%s), storage %s", bin, version, dir)
		return &Engine{binary: bin, version: version, dir: dir, args: o.args, log: log}, nil
	}
}

// parseVersion extracts "6.1.1" from "ffmpeg version 6.1.1 Copyright ...".
func parseVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "version" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return "unknown"
}

// Version is the version reported by the binary when the engine was loaded.
func (e *Engine) Version() string { return e.version }

// Dir is the engine's storage directory.
func (e *Engine) Dir() string { return e.dir }

func (e *Engine) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("ffmpeg: invalid file name %q", name)
	}
	return filepath.Join(e.dir, name), nil
}

func (e *Engine) WriteFile(_ context.Context, name string, data []byte) error {
	p, err := e.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

func (e *Engine) ReadFile(_ context.Context, name string) ([]byte, error) {
	p, err := e.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (e *Engine) RemoveFile(_ context.Context, name string) error {
	p, err := e.path(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// Execute runs the binary inside the storage directory. Arguments that look
// like paths are refused so a command cannot reach outside storage.
func (e *Engine) Execute(ctx context.Context, argv []string) error {
	for _, arg := range argv {
		if strings.ContainsAny(arg, `/\`) {
			return fmt.Errorf("ffmpeg: argument %q refers outside engine storage", arg)
		}
	}
	args := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, e.args...)
	args = append(args, argv...)
	return exec.Command(e.binary, args...).
		WithCwd(e.dir).
		WithLogger(e.log).
		Run(ctx)
}

// Terminate removes the storage directory and everything left in it.
func (e *Engine) Terminate(context.Context) error {
	if err := os.RemoveAll(e.dir); err != nil {
		return fmt.Errorf("ffmpeg: remove storage: %w", err)
	}
	return nil
}
