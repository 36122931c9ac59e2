package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"
)

const documentPart = "word/document.xml"

// DOCX reads the main document part of a WordprocessingML package and
// writes minimal single-section packages.
type DOCX struct{}

type paragraph struct {
	heading bool
	text    strings.Builder
}

func (DOCX) paragraphs(data []byte) ([]*paragraph, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	part, err := zr.Open(documentPart)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", documentPart, err)
	}
	defer part.Close()

	var (
		paras  []*paragraph
		cur    *paragraph
		inText bool
	)
	dec := xml.NewDecoder(part)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", documentPart, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				cur = &paragraph{}
				paras = append(paras, cur)
			case "pStyle":
				if cur != nil && strings.HasPrefix(strings.ToLower(attr(t, "val")), "heading") {
					cur.heading = true
				}
			case "t":
				inText = true
			case "tab":
				if cur != nil {
					cur.text.WriteByte('\t')
				}
			case "br", "cr":
				if cur != nil {
					cur.text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				cur = nil
			}
		case xml.CharData:
			if inText && cur != nil {
				cur.text.Write(t)
			}
		}
	}
	return paras, nil
}

func attr(e xml.StartElement, local string) string {
	for _, a := range e.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// DecodeText returns one line per paragraph.
func (d DOCX) DecodeText(_ context.Context, data []byte) (string, error) {
	paras, err := d.paragraphs(data)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(paras))
	for i, p := range paras {
		lines[i] = p.text.String()
	}
	return strings.Join(lines, "\n"), nil
}

// DecodeMarkup renders paragraphs as <p> and heading paragraphs as <h1>.
// Line breaks inside a paragraph become <br/>.
func (d DOCX) DecodeMarkup(_ context.Context, data []byte) (string, error) {
	paras, err := d.paragraphs(data)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, p := range paras {
		tag := "p"
		if p.heading {
			tag = "h1"
		}
		text := html.EscapeString(p.text.String())
		text = strings.ReplaceAll(text, "\n", "<br/>")
		fmt.Fprintf(&sb, "<%s>%s</%s>", tag, text, tag)
	}
	return sb.String(), nil
}

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
		`</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
		`</Relationships>`

	documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	documentFooter = `<w:sectPr/></w:body></w:document>`
)

// EncodeText writes one paragraph per line of text. Tabs become w:tab.
func (DOCX) EncodeText(_ context.Context, text string) ([]byte, error) {
	var body bytes.Buffer
	body.WriteString(documentHeader)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			body.WriteString("<w:p/>")
			continue
		}
		body.WriteString("<w:p><w:r>")
		for i, run := range strings.Split(line, "\t") {
			if i > 0 {
				body.WriteString("<w:tab/>")
			}
			if run == "" {
				continue
			}
			body.WriteString(`<w:t xml:space="preserve">`)
			if err := xml.EscapeText(&body, []byte(run)); err != nil {
				return nil, err
			}
			body.WriteString("</w:t>")
		}
		body.WriteString("</w:r></w:p>")
	}
	body.WriteString(documentFooter)

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	parts := []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{documentPart, body.Bytes()},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
