package api

import (
	"bytes"
	"io"
	"os"
)

// Result holds converted bytes together with the metadata needed to deliver
// them: MIME type and suggested filename.
type Result struct {
	data     []byte
	MimeType string
	Filename string
	Format   Format
	// Pages is the number of laid-out pages for paged document output, zero
	// otherwise.
	Pages int
}

func NewResult(data []byte, format Format, filename string) *Result {
	return &Result{
		data:     data,
		MimeType: format.MimeType(),
		Filename: filename,
		Format:   format,
	}
}

// Bytes returns the converted content.
func (r *Result) Bytes() []byte {
	return r.data
}

func (r *Result) Len() int {
	return len(r.data)
}

func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo implements io.WriterTo.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// WriteToFile writes the content to path, creating it if needed.
func (r *Result) WriteToFile(path string, perm os.FileMode) error {
	return os.WriteFile(path, r.data, perm)
}

// OutputName builds the suggested download name <stem>.<ext>.
func OutputName(source string, to Format) string {
	stem := Stem(source)
	if stem == "" {
		stem = "converted"
	}
	return stem + to.Ext()
}
