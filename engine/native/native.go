// Package native is an in-process codec engine. Its private storage is an
// in-memory file table and its command line mirrors ffmpeg's
// "-i input output" form, with the output format taken from the output
// name's extension.
package native

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute/api"
	"github.com/flanksource/transmute/engine"
	"github.com/spf13/pflag"
)

// ErrTerminated is returned by every operation after Terminate.
var ErrTerminated = errors.New("native: engine terminated")

// CommandError is a failed Execute; Diagnostic is what a codec would print.
type CommandError struct {
	Text string
}

func (e *CommandError) Error() string      { return "native: " + e.Text }
func (e *CommandError) Diagnostic() string { return e.Text }

// Option configures the engine.
type Option func(*options)

// WithJPEGQuality sets the default JPEG quality (1-100). Commands may
// override it with -q.
func WithJPEGQuality(q int) Option {
	return func(o *options) {
		o.jpegQuality = q
	}
}

// WithSVGSize sets the raster size used for SVGs without a view box.
func WithSVGSize(px int) Option {
	return func(o *options) {
		o.svgSize = px
	}
}

// WithMaxSize clamps the longest edge of rasterised SVGs.
func WithMaxSize(px int) Option {
	return func(o *options) {
		o.maxSize = px
	}
}

func defaultOptions() options {
	return options{jpegQuality: 90, svgSize: 512, maxSize: 8192}
}

// Engine implements engine.Engine.
type Engine struct {
	opts   options
	codecs *registry
	log    logger.Logger

	mu     sync.Mutex
	files  map[string][]byte
	closed bool
}

// Load brings up an engine with default options.
func Load(ctx context.Context) (engine.Engine, error) {
	return Loader()(ctx)
}

// Loader returns an engine.Loader that builds and self-tests the codec
// registry.
func Loader(opts ...Option) engine.Loader {
	return func(ctx context.Context) (engine.Engine, error) {
		o := defaultOptions()
		for _, opt := range opts {
			opt(&o)
		}
		if o.jpegQuality < 1 || o.jpegQuality > 100 {
			return nil, fmt.Errorf("native: jpeg quality %d out of range 1-100", o.jpegQuality)
		}
		if o.svgSize <= 0 || o.maxSize <= 0 {
			return nil, fmt.Errorf("native: raster sizes must be positive")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		codecs := newRegistry()
		if err := codecs.selfTest(o); err != nil {
			return nil, fmt.Errorf("native: codec self test: %w", err)
		}
		return &Engine{
			opts:   o,
			codecs: codecs,
			log:    logger.GetLogger("native"),
			files:  map[string][]byte{},
		}, nil
	}
}

// Decodes lists the formats the engine can read.
func Decodes() []api.Format {
	return sortedKeys(newRegistry().decoders)
}

// Encodes lists the formats the engine can write.
func Encodes() []api.Format {
	return sortedKeys(newRegistry().encoders)
}

func sortedKeys[V any](m map[api.Format]V) []api.Format {
	out := make([]api.Format, 0, len(m))
	for f := range m {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("native: invalid file name %q", name)
	}
	return nil
}

func (e *Engine) WriteFile(_ context.Context, name string, data []byte) error {
	if err := validName(name); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrTerminated
	}
	e.files[name] = bytes.Clone(data)
	return nil
}

func (e *Engine) ReadFile(_ context.Context, name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrTerminated
	}
	data, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("native: %s: %w", name, fs.ErrNotExist)
	}
	return bytes.Clone(data), nil
}

func (e *Engine) RemoveFile(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrTerminated
	}
	if _, ok := e.files[name]; !ok {
		return fmt.Errorf("native: %s: %w", name, fs.ErrNotExist)
	}
	delete(e.files, name)
	return nil
}

// Files lists the names currently stored.
func (e *Engine) Files() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.files))
	for name := range e.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute parses argv ("-i input [-q quality] output") and converts.
func (e *Engine) Execute(ctx context.Context, argv []string) error {
	flags := pflag.NewFlagSet("native", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	input := flags.StringP("input", "i", "", "input file")
	quality := flags.IntP("quality", "q", e.opts.jpegQuality, "jpeg quality")
	if err := flags.Parse(argv); err != nil {
		return &CommandError{Text: err.Error()}
	}
	if *input == "" || flags.NArg() != 1 {
		return &CommandError{Text: "usage: -i <input> [-q quality] <output>"}
	}
	output := flags.Arg(0)
	if err := validName(output); err != nil {
		return &CommandError{Text: err.Error()}
	}
	if *quality < 1 || *quality > 100 {
		return &CommandError{Text: fmt.Sprintf("quality %d out of range 1-100", *quality)}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrTerminated
	}
	src, ok := e.files[*input]
	e.mu.Unlock()
	if !ok {
		return &CommandError{Text: *input + ": No such file or directory"}
	}

	from := formatOf(*input)
	to := formatOf(output)
	dec, ok := e.codecs.decoders[from]
	if !ok {
		return &CommandError{Text: fmt.Sprintf("%s: no decoder for format %q", *input, from)}
	}
	enc, ok := e.codecs.encoders[to]
	if !ok {
		return &CommandError{Text: fmt.Sprintf("%s: no encoder for format %q", output, to)}
	}

	o := e.opts
	o.jpegQuality = *quality
	img, err := dec(bytes.NewReader(src), o)
	if err != nil {
		return &CommandError{Text: fmt.Sprintf("%s: invalid data found when processing input: %v", *input, err)}
	}
	var buf bytes.Buffer
	if err := enc(&buf, img, o); err != nil {
		return &CommandError{Text: fmt.Sprintf("%s: encoding failed: %v", output, err)}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrTerminated
	}
	e.files[output] = buf.Bytes()
	e.log.Debugf("%s (%d bytes) -> %s (%d bytes)", *input, len(src), output, buf.Len())
	return nil
}

// Terminate drops every stored file; the engine cannot be used afterwards.
func (e *Engine) Terminate(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrTerminated
	}
	e.closed = true
	e.files = nil
	return nil
}

func formatOf(name string) api.Format {
	f, _ := api.ParseFormat(path.Ext(name))
	return f
}
