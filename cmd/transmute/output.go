package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/flanksource/transmute"
	"github.com/flanksource/transmute/batch"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

type styles struct {
	success lipgloss.Style
	failed  lipgloss.Style
	warning lipgloss.Style
	info    lipgloss.Style
	header  lipgloss.Style
}

// newStyles renders for w. Colors are dropped when w is not a terminal or
// noColor is set.
func newStyles(w io.Writer, noColor bool) styles {
	renderer := lipgloss.NewRenderer(w)
	if noColor || !isTerminal(w) {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return styles{
		success: renderer.NewStyle().Foreground(lipgloss.Color("10")),
		failed:  renderer.NewStyle().Foreground(lipgloss.Color("9")),
		warning: renderer.NewStyle().Foreground(lipgloss.Color("11")),
		info:    renderer.NewStyle().Foreground(lipgloss.Color("8")),
		header:  renderer.NewStyle().Bold(true),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func humanBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := int64(n) / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func printItem(w io.Writer, s styles, item *batch.Item, output string) {
	switch item.Status {
	case batch.StatusSuccess:
		detail := humanBytes(item.Result.Len())
		if item.Result.Pages > 0 {
			detail += fmt.Sprintf(", %d pages", item.Result.Pages)
		}
		fmt.Fprintf(w, "%s %s → %s %s\n",
			s.success.Render("✓"), item.Name, output,
			s.info.Render(fmt.Sprintf("(%s, %s)", detail, item.Duration().Round(time.Millisecond))))
	case batch.StatusCancelled:
		fmt.Fprintf(w, "%s %s %s\n", s.warning.Render("⊘"), item.Name, s.info.Render("cancelled"))
	default:
		fmt.Fprintf(w, "%s %s: %v\n", s.failed.Render("✗"), item.Name, item.Err)
	}
}

func printSummary(w io.Writer, s styles, g *batch.Group) {
	parts := []string{s.success.Render(fmt.Sprintf("%d converted", g.Count(batch.StatusSuccess)))}
	if n := g.Count(batch.StatusFailed); n > 0 {
		parts = append(parts, s.failed.Render(fmt.Sprintf("%d failed", n)))
	}
	if n := g.Count(batch.StatusCancelled); n > 0 {
		parts = append(parts, s.warning.Render(fmt.Sprintf("%d cancelled", n)))
	}
	fmt.Fprintf(w, "%s in %s\n", strings.Join(parts, ", "), g.Duration().Round(time.Millisecond))
}

func printCatalog(w io.Writer, s styles, c transmute.Catalog) {
	fmt.Fprintln(w, s.header.Render("Images"))
	for _, f := range c.Images {
		fmt.Fprintf(w, "  %-6s %s\n", f, s.info.Render(f.MimeType()))
	}
	fmt.Fprintln(w, s.header.Render("Documents"))
	for _, f := range c.Documents {
		fmt.Fprintf(w, "  %-6s %s\n", f, s.info.Render(f.MimeType()))
	}
	fmt.Fprintln(w, s.header.Render("Document routes"))
	for _, r := range c.Routes {
		kind := s.success
		if !r.Supported() {
			kind = s.failed
		}
		fmt.Fprintf(w, "  %-5s → %-5s %s\n", r.From, r.To, kind.Render(string(r.Kind)))
	}
}
