package document

import (
	"context"

	"github.com/flanksource/transmute/layout"
)

// TextDecoder extracts plain text, one paragraph per line.
type TextDecoder interface {
	DecodeText(ctx context.Context, data []byte) (string, error)
}

// MarkupDecoder extracts an HTML-like rich text rendition.
type MarkupDecoder interface {
	DecodeMarkup(ctx context.Context, data []byte) (string, error)
}

// PageEncoder renders laid-out pages.
type PageEncoder interface {
	EncodePages(ctx context.Context, pages []layout.Page, cfg layout.Config) ([]byte, error)
}

// LineEncoder renders a flat sequence of lines, leaving page breaking to
// the encoder.
type LineEncoder interface {
	EncodeLines(ctx context.Context, lines []string, cfg layout.Config) ([]byte, error)
}

// TextEncoder renders plain text, one paragraph per line.
type TextEncoder interface {
	EncodeText(ctx context.Context, text string) ([]byte, error)
}
