// Package transmute converts files between image and document formats.
//
// Image pairs go through a lazily started codec engine; document pairs
// (DOCX, PDF, TXT) go through the document assembler. Inputs larger than the
// configured limit are rejected before any decoding starts.
//
//	c := transmute.New()
//	defer c.Close(ctx)
//
//	res, err := c.Convert(ctx, transmute.Request{Data: data, Filename: "photo.png", To: api.JPEG})
package transmute

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute/api"
	"github.com/flanksource/transmute/document"
	"github.com/flanksource/transmute/engine"
	"github.com/flanksource/transmute/engine/native"
)

// DefaultMaxSize is the default input limit, 10 MiB.
const DefaultMaxSize int64 = 10 << 20

// Request is one conversion. From is optional and derived from Filename's
// extension when empty.
type Request struct {
	Data     []byte
	Filename string
	From     api.Format
	To       api.Format
}

type Converter struct {
	maxSize   int64
	engine    *engine.Manager
	assembler *document.Assembler
	log       logger.Logger
}

type Option func(*Converter)

// WithMaxSize sets the input limit in bytes; zero or less disables it.
func WithMaxSize(n int64) Option {
	return func(c *Converter) {
		c.maxSize = n
	}
}

// WithEngine sets the manager used for image conversions.
func WithEngine(m *engine.Manager) Option {
	return func(c *Converter) {
		c.engine = m
	}
}

func WithAssembler(a *document.Assembler) Option {
	return func(c *Converter) {
		c.assembler = a
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

// New returns a converter backed by the in-process codec engine unless
// WithEngine is given. The engine is not started until the first image
// conversion.
func New(opts ...Option) *Converter {
	c := &Converter{
		maxSize: DefaultMaxSize,
		log:     logger.GetLogger("transmute"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.engine == nil {
		c.engine = engine.NewManager(native.Load, engine.WithName("native"))
	}
	if c.assembler == nil {
		// the default layout always validates
		c.assembler, _ = document.NewAssembler()
	}
	return c
}

func (c *Converter) MaxSize() int64 { return c.maxSize }

// Engine returns the manager used for image conversions.
func (c *Converter) Engine() *engine.Manager { return c.engine }

func (c *Converter) checkSize(size int64) error {
	if c.maxSize > 0 && size > c.maxSize {
		return api.TooLarge(size, c.maxSize)
	}
	return nil
}

// CanConvert returns the UnsupportedConversion error for pairs that cannot
// be routed, nil otherwise. Image pairs always route to the engine, which
// decides per command.
func CanConvert(from, to api.Format) error {
	switch {
	case from.Family() == api.FamilyImage && to.Family() == api.FamilyImage:
		return nil
	case from.Family() == api.FamilyDocument && to.Family() == api.FamilyDocument:
		return document.Lookup(from, to).Err()
	}
	return api.Unsupported(from, to, api.ReasonImpossible)
}

// Convert runs one conversion. The size limit is checked first, then the
// pair is routed by format family.
func (c *Converter) Convert(ctx context.Context, req Request) (*api.Result, error) {
	if err := c.checkSize(int64(len(req.Data))); err != nil {
		return nil, err
	}

	from := req.From
	if from == "" {
		from, _ = api.FormatOf(req.Filename)
	}
	from, _ = api.ParseFormat(string(from))
	to, _ := api.ParseFormat(string(req.To))
	if err := CanConvert(from, to); err != nil {
		return nil, err
	}

	name := api.OutputName(req.Filename, to)
	c.log.Debugf("converting %s (%s, %d bytes) to %s", req.Filename, from, len(req.Data), to)

	if from.Family() == api.FamilyImage {
		h, err := c.engine.EnsureReady(ctx)
		if err != nil {
			return nil, err
		}
		out, err := engine.Invoke(ctx, h, req.Data, string(from), string(to))
		if err != nil {
			return nil, err
		}
		return api.NewResult(out, to, name), nil
	}

	rendered, err := c.assembler.Render(ctx, req.Data, from, to)
	if err != nil {
		return nil, err
	}
	res := api.NewResult(rendered.Data, to, name)
	res.Pages = rendered.Pages
	return res, nil
}

// ConvertFile converts the file at path. Oversized files are rejected
// before they are read.
func (c *Converter) ConvertFile(ctx context.Context, path string, to api.Format) (*api.Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if err := c.checkSize(info.Size()); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.Convert(ctx, Request{Data: data, Filename: filepath.Base(path), To: to})
}

// Close shuts the engine down, removing anything left in its storage.
func (c *Converter) Close(ctx context.Context) error {
	return c.engine.Shutdown(ctx)
}
