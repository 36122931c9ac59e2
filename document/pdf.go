package document

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/flanksource/transmute/layout"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/jung-kurt/gofpdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	pdfFont = "Helvetica"
	// mmPerPt converts layout points to maroto's millimetres.
	mmPerPt = 25.4 / 72
)

// PDF writes documents with the standard Helvetica font. Characters outside
// Windows-1252 are rendered as '.'.
type PDF struct {
	Creator string
}

// EncodePages draws every line at its laid-out position, one PDF page per
// layout page.
func (p PDF) EncodePages(ctx context.Context, pages []layout.Page, cfg layout.Config) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: cfg.PageWidth, Ht: cfg.PageHeight},
	})
	pdf.SetMargins(cfg.MarginX, cfg.MarginY, cfg.MarginX)
	pdf.SetAutoPageBreak(false, cfg.MarginY)
	if p.Creator != "" {
		pdf.SetCreator(p.Creator, true)
	}
	pdf.SetFont(pdfFont, "", cfg.FontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pdf.AddPage()
		for _, line := range page.Lines {
			// layout Y grows upwards, PDF text origin is top-left
			pdf.Text(cfg.MarginX, cfg.PageHeight-line.Y, tr(line.Content))
		}
	}
	if len(pages) == 0 {
		pdf.AddPage()
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeLines lays lines out as a flowing grid of rows and lets the grid
// break pages.
func (p PDF) EncodeLines(ctx context.Context, lines []string, cfg layout.Config) ([]byte, error) {
	builder := config.NewBuilder().
		WithDimensions(cfg.PageWidth*mmPerPt, cfg.PageHeight*mmPerPt).
		WithLeftMargin(cfg.MarginX * mmPerPt).
		WithRightMargin(cfg.MarginX * mmPerPt).
		WithTopMargin(cfg.MarginY * mmPerPt).
		WithBottomMargin(cfg.MarginY * mmPerPt).
		WithDefaultFont(&props.Font{Family: fontfamily.Helvetica, Size: cfg.FontSize})
	if p.Creator != "" {
		builder = builder.WithCreator(p.Creator, true)
	}
	m := maroto.New(builder.Build())

	height := cfg.FontSize * cfg.LineHeight * mmPerPt
	rows := make([]core.Row, 0, len(lines)+1)
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := row.New(height)
		if line != "" {
			r.Add(col.New(12).Add(text.New(line, props.Text{Size: cfg.FontSize})))
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		rows = append(rows, row.New(height))
	}
	m.AddRows(rows...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

var disableConfigDir sync.Once

// PageCount parses a PDF and returns its number of pages.
func PageCount(data []byte) (int, error) {
	disableConfigDir.Do(pdfapi.DisableConfigDir)
	return pdfapi.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
}
