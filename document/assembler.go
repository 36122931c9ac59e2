// Package document converts between DOCX, PDF and plain text. Each
// (source, target) pair is resolved to a route: paged targets are decoded
// to text, paginated and rendered, plain-text targets are decoded only, and
// plain-text sources are encoded directly.
package document

import (
	"context"
	"fmt"

	"github.com/flanksource/commons/logger"
	"github.com/flanksource/transmute/api"
	"github.com/flanksource/transmute/layout"
)

// Renderer selects how paged PDF output is drawn.
type Renderer string

const (
	// RendererPositioned draws each line at its laid-out coordinates.
	RendererPositioned Renderer = "positioned"
	// RendererFlow feeds the wrapped lines to a grid layout that breaks
	// pages itself.
	RendererFlow Renderer = "flow"
)

// ParseRenderer accepts "positioned" or "flow"; empty selects positioned.
func ParseRenderer(s string) (Renderer, error) {
	switch Renderer(s) {
	case "", RendererPositioned:
		return RendererPositioned, nil
	case RendererFlow:
		return RendererFlow, nil
	}
	return "", fmt.Errorf("unknown renderer %q, expected %s or %s", s, RendererPositioned, RendererFlow)
}

// Rendered is the output of one assembly.
type Rendered struct {
	Data []byte
	// Pages is the number of output pages for paged targets, zero otherwise.
	Pages int
}

type Assembler struct {
	layout   layout.Config
	renderer Renderer
	log      logger.Logger

	text     map[api.Format]TextDecoder
	markup   map[api.Format]MarkupDecoder
	encoders map[api.Format]TextEncoder
	pages    PageEncoder
	lines    LineEncoder
	creator  string
}

type Option func(*Assembler)

// WithLayout sets the page geometry used for paged targets.
func WithLayout(cfg layout.Config) Option {
	return func(a *Assembler) {
		a.layout = cfg
	}
}

func WithRenderer(r Renderer) Option {
	return func(a *Assembler) {
		a.renderer = r
	}
}

func WithLogger(log logger.Logger) Option {
	return func(a *Assembler) {
		a.log = log
	}
}

// WithCreator sets the creator recorded in PDF metadata by the default PDF
// encoders.
func WithCreator(creator string) Option {
	return func(a *Assembler) {
		a.creator = creator
	}
}

// WithPageEncoder replaces the encoder used by the positioned renderer.
func WithPageEncoder(enc PageEncoder) Option {
	return func(a *Assembler) {
		a.pages = enc
	}
}

// WithLineEncoder replaces the encoder used by the flow renderer.
func WithLineEncoder(enc LineEncoder) Option {
	return func(a *Assembler) {
		a.lines = enc
	}
}

// NewAssembler returns an assembler writing PDFs with PDF unless other
// encoders are given. The layout is validated here so a bad page geometry
// is reported as a configuration error rather than per conversion.
func NewAssembler(opts ...Option) (*Assembler, error) {
	a := &Assembler{
		layout:   layout.DefaultConfig(),
		renderer: RendererPositioned,
		log:      logger.GetLogger("document"),
		text: map[api.Format]TextDecoder{
			api.DOCX: DOCX{},
			api.TXT:  PlainText{},
		},
		markup: map[api.Format]MarkupDecoder{
			api.DOCX: DOCX{},
		},
		encoders: map[api.Format]TextEncoder{
			api.DOCX: DOCX{},
			api.TXT:  PlainText{},
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	pdf := PDF{Creator: a.creator}
	if a.pages == nil {
		a.pages = pdf
	}
	if a.lines == nil {
		a.lines = pdf
	}
	if err := a.layout.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseRenderer(string(a.renderer)); err != nil {
		return nil, err
	}
	return a, nil
}

// Layout returns the page geometry used for paged targets.
func (a *Assembler) Layout() layout.Config {
	return a.layout
}

// Assemble converts data from one document format to another.
func (a *Assembler) Assemble(ctx context.Context, data []byte, from, to api.Format) ([]byte, error) {
	out, err := a.Render(ctx, data, from, to)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Render is Assemble that also reports the page count of paged output.
func (a *Assembler) Render(ctx context.Context, data []byte, from, to api.Format) (*Rendered, error) {
	route := Lookup(from, to)
	if err := route.Err(); err != nil {
		return nil, err
	}
	a.log.Debugf("%s -> %s via %s route (%d bytes)", from, to, route.Kind, len(data))

	switch route.Kind {
	case RoutePaged:
		return a.paged(ctx, data, from)
	case RouteText:
		text, err := a.decodeText(ctx, data, from)
		if err != nil {
			return nil, err
		}
		return &Rendered{Data: []byte(text)}, nil
	case RouteDirect:
		text, err := a.decodeText(ctx, data, from)
		if err != nil {
			return nil, err
		}
		enc, ok := a.encoders[to]
		if !ok {
			return nil, api.Unsupported(from, to, api.ReasonUnimplemented)
		}
		out, err := enc.EncodeText(ctx, text)
		if err != nil {
			return nil, api.NewError(api.CodeEncodeFailed, "encode "+string(to), err)
		}
		return &Rendered{Data: out}, nil
	}
	return nil, api.Unsupported(from, to, api.ReasonImpossible)
}

func (a *Assembler) decodeText(ctx context.Context, data []byte, from api.Format) (string, error) {
	dec, ok := a.text[from]
	if !ok {
		return "", api.NewError(api.CodeDecodeFailed, "decode "+string(from), fmt.Errorf("no text decoder"))
	}
	text, err := dec.DecodeText(ctx, data)
	if err != nil {
		return "", api.NewError(api.CodeDecodeFailed, "decode "+string(from), err)
	}
	return text, nil
}

// pagedText prefers the rich rendition so headings and breaks survive,
// falling back to plain text.
func (a *Assembler) pagedText(ctx context.Context, data []byte, from api.Format) (string, error) {
	dec, ok := a.markup[from]
	if !ok {
		return a.decodeText(ctx, data, from)
	}
	markup, err := dec.DecodeMarkup(ctx, data)
	if err != nil {
		return "", api.NewError(api.CodeDecodeFailed, "decode "+string(from), err)
	}
	text, err := StripMarkup(markup)
	if err != nil {
		return "", api.NewError(api.CodeDecodeFailed, "strip markup", err)
	}
	return text, nil
}

func (a *Assembler) paged(ctx context.Context, data []byte, from api.Format) (*Rendered, error) {
	text, err := a.pagedText(ctx, data, from)
	if err != nil {
		return nil, err
	}
	pages, err := layout.Paginate(text, a.layout)
	if err != nil {
		// unreachable with a layout validated by NewAssembler
		return nil, fmt.Errorf("paginate: %w", err)
	}

	switch a.renderer {
	case RendererFlow:
		out, err := a.lines.EncodeLines(ctx, layout.Lines(pages), a.layout)
		if err != nil {
			return nil, api.NewError(api.CodeEncodeFailed, "encode pdf", err)
		}
		n, err := PageCount(out)
		if err != nil {
			a.log.Warnf("failed to count pages of rendered pdf: %v", err)
		}
		return &Rendered{Data: out, Pages: n}, nil
	default:
		out, err := a.pages.EncodePages(ctx, pages, a.layout)
		if err != nil {
			return nil, api.NewError(api.CodeEncodeFailed, "encode pdf", err)
		}
		return &Rendered{Data: out, Pages: len(pages)}, nil
	}
}
