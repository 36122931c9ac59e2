// Package layout reflows plain text into fixed-size pages of positioned
// lines. Line breaking is a greedy fit against a fixed character budget, so
// the output depends only on the text and the Config.
package layout

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Config describes the page geometry in points. Y grows upwards from the
// bottom edge of the page.
type Config struct {
	MarginX    float64 `json:"marginX" yaml:"marginX"`
	MarginY    float64 `json:"marginY" yaml:"marginY"`
	FontSize   float64 `json:"fontSize" yaml:"fontSize"`
	LineHeight float64 `json:"lineHeight" yaml:"lineHeight"` // multiplier of FontSize
	// CharsPerLine is the line budget in runes.
	CharsPerLine int     `json:"charsPerLine" yaml:"charsPerLine"`
	PageWidth    float64 `json:"pageWidth" yaml:"pageWidth"`
	PageHeight   float64 `json:"pageHeight" yaml:"pageHeight"`
}

// A4 page size in points.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

func DefaultConfig() Config {
	return Config{
		MarginX:      50,
		MarginY:      50,
		FontSize:     12,
		LineHeight:   1.2,
		CharsPerLine: 90,
		PageWidth:    A4Width,
		PageHeight:   A4Height,
	}
}

// Validate reports non-positive settings and pages too short to hold a
// single line.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"marginX", c.MarginX},
		{"marginY", c.MarginY},
		{"fontSize", c.FontSize},
		{"lineHeight", c.LineHeight},
		{"charsPerLine", float64(c.CharsPerLine)},
		{"pageWidth", c.PageWidth},
		{"pageHeight", c.PageHeight},
	}
	for _, f := range fields {
		if !(f.value > 0) {
			return fmt.Errorf("layout: %s must be positive, got %v", f.name, f.value)
		}
	}
	if c.Top() < c.Floor() {
		return fmt.Errorf("layout: page height %v cannot fit one line of size %v within margins of %v",
			c.PageHeight, c.FontSize, c.MarginY)
	}
	if 2*c.MarginX >= c.PageWidth {
		return fmt.Errorf("layout: horizontal margins %v leave no room on a page %v wide", c.MarginX, c.PageWidth)
	}
	return nil
}

// Top is the Y of the first line on a page.
func (c Config) Top() float64 { return c.PageHeight - c.MarginY }

// Floor is the lowest cursor position that still accepts a line.
func (c Config) Floor() float64 { return c.MarginY + c.FontSize }

// Leading is the vertical advance between lines.
func (c Config) Leading() float64 { return c.FontSize * c.LineHeight }

// ParagraphSpacing is the extra advance after each paragraph.
func (c Config) ParagraphSpacing() float64 { return c.FontSize * 0.5 }

// TextLine is a line of text placed at baseline Y.
type TextLine struct {
	Content string  `json:"content"`
	Y       float64 `json:"y"`
}

type Page struct {
	Number int        `json:"number"`
	Lines  []TextLine `json:"lines"`
}

// Text joins the page's lines with newlines.
func (p Page) Text() string {
	lines := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = l.Content
	}
	return strings.Join(lines, "\n")
}

type paginator struct {
	cfg    Config
	pages  []Page
	page   Page
	cursor float64
}

func (p *paginator) newPage() {
	p.page = Page{Number: len(p.pages) + 1}
	p.cursor = p.cfg.Top()
}

func (p *paginator) place(line string) {
	if p.cursor < p.cfg.Floor() {
		p.pages = append(p.pages, p.page)
		p.newPage()
	}
	p.page.Lines = append(p.page.Lines, TextLine{Content: line, Y: p.cursor})
	p.cursor -= p.cfg.Leading()
}

// Paginate splits text into paragraphs on "\n", wraps each paragraph to
// cfg.CharsPerLine and places the lines top to bottom, opening a new page
// whenever the cursor drops below the bottom margin plus one font size.
//
// An empty paragraph advances the cursor by one line. Every paragraph is
// followed by half a font size of extra space. Empty input yields a single
// page with no lines.
func Paginate(text string, cfg Config) ([]Page, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &paginator{cfg: cfg}
	p.newPage()
	for _, paragraph := range strings.Split(text, "\n") {
		lines := Wrap(strings.TrimSuffix(paragraph, "\r"), cfg.CharsPerLine)
		if len(lines) == 0 {
			p.cursor -= cfg.Leading()
		}
		for _, line := range lines {
			p.place(line)
		}
		p.cursor -= cfg.ParagraphSpacing()
	}
	if len(p.page.Lines) > 0 || len(p.pages) == 0 {
		p.pages = append(p.pages, p.page)
	}
	return p.pages, nil
}

// Wrap greedily packs the whitespace-separated words of paragraph into
// lines of at most n runes. A word longer than n gets a line of its own and
// is never split. Blank paragraphs produce no lines.
func Wrap(paragraph string, n int) []string {
	var lines []string
	var cur strings.Builder
	curLen := 0
	for _, word := range strings.Fields(paragraph) {
		wl := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+wl > n {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += wl
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// Lines flattens pages into their line contents.
func Lines(pages []Page) []string {
	var out []string
	for _, p := range pages {
		for _, l := range p.Lines {
			out = append(out, l.Content)
		}
	}
	return out
}
