package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelector = "p, h1, h2, h3, h4, h5, h6, li, pre, blockquote"

// StripMarkup reduces HTML-like markup to plain text with one line per
// block element. Markup without block elements yields its text content.
func StripMarkup(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", err
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("script, style").Remove()

	blocks := doc.Find(blockSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		// nested blocks are emitted by their outermost ancestor
		return s.ParentsFiltered(blockSelector).Length() == 0
	})
	if blocks.Length() == 0 {
		return doc.Text(), nil
	}

	lines := make([]string, 0, blocks.Length())
	blocks.Each(func(_ int, s *goquery.Selection) {
		lines = append(lines, s.Text())
	})
	return strings.Join(lines, "\n"), nil
}
