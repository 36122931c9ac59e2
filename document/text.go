package document

import (
	"bytes"
	"context"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PlainText reads and writes UTF-8 text.
type PlainText struct{}

// DecodeText drops a leading byte order mark and replaces invalid UTF-8
// with U+FFFD.
func (PlainText) DecodeText(_ context.Context, data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	return strings.ToValidUTF8(string(data), "�"), nil
}

func (PlainText) EncodeText(_ context.Context, text string) ([]byte, error) {
	return []byte(text), nil
}
