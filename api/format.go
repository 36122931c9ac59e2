package api

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Format is a lower-case file extension without the leading dot.
type Format string

// Family groups formats that share a conversion backend.
type Family string

const (
	FamilyUnknown  Family = ""
	FamilyImage    Family = "image"
	FamilyDocument Family = "document"
)

// Image formats handled by the codec engines.
const (
	BMP  Format = "bmp"
	EPS  Format = "eps"
	GIF  Format = "gif"
	ICO  Format = "ico"
	JPEG Format = "jpeg"
	JPG  Format = "jpg"
	ODD  Format = "odd"
	PNG  Format = "png"
	PSD  Format = "psd"
	SVG  Format = "svg"
	TGA  Format = "tga"
	TIFF Format = "tiff"
	WEBP Format = "webp"
)

// Document formats handled by the document assembler.
const (
	DOCX Format = "docx"
	PDF  Format = "pdf"
	TXT  Format = "txt"
)

type formatInfo struct {
	family Family
	mime   string
}

var formats = map[Format]formatInfo{
	BMP:  {FamilyImage, "image/bmp"},
	EPS:  {FamilyImage, "application/postscript"},
	GIF:  {FamilyImage, "image/gif"},
	ICO:  {FamilyImage, "image/x-icon"},
	JPEG: {FamilyImage, "image/jpeg"},
	JPG:  {FamilyImage, "image/jpeg"},
	ODD:  {FamilyImage, "application/vnd.oasis.opendocument.graphics"},
	PNG:  {FamilyImage, "image/png"},
	PSD:  {FamilyImage, "image/vnd.adobe.photoshop"},
	SVG:  {FamilyImage, "image/svg+xml"},
	TGA:  {FamilyImage, "image/x-tga"},
	TIFF: {FamilyImage, "image/tiff"},
	WEBP: {FamilyImage, "image/webp"},

	DOCX: {FamilyDocument, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	PDF:  {FamilyDocument, "application/pdf"},
	TXT:  {FamilyDocument, "text/plain; charset=utf-8"},
}

// ParseFormat normalises an extension or format name ("PNG", ".png", "png").
// Unknown names are returned normalised with ok=false.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	_, ok := formats[f]
	return f, ok
}

// FormatOf returns the format implied by a filename's extension.
func FormatOf(filename string) (Format, bool) {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "", false
	}
	return ParseFormat(ext)
}

// Stem returns the filename without directory and extension.
func Stem(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (f Format) String() string { return string(f) }

// Ext returns the extension with a leading dot.
func (f Format) Ext() string { return "." + string(f) }

func (f Format) Family() Family {
	return formats[f].family
}

// MimeType falls back to application/octet-stream for unknown formats.
func (f Format) MimeType() string {
	if info, ok := formats[f]; ok {
		return info.mime
	}
	return "application/octet-stream"
}

// Formats lists the known formats of a family in lexical order. An empty
// family lists every known format.
func Formats(family Family) []Format {
	all := lo.Filter(lo.Keys(formats), func(f Format, _ int) bool {
		return family == FamilyUnknown || formats[f].family == family
	})
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}
