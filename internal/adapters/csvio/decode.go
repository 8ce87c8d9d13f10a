// Package csvio reads raw race exports and encodes the normalized race,
// team and standings tables kept by the CSV store.
package csvio

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode reads r fully and returns its content as UTF-8 without a BOM.
// UTF-16 is detected from the BOM, or from NUL bytes in the first code
// unit when the export carries none.
func Decode(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	var endian unicode.Endianness
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], nil
	case bytes.HasPrefix(data, bomUTF16LE):
		data, endian = data[len(bomUTF16LE):], unicode.LittleEndian
	case bytes.HasPrefix(data, bomUTF16BE):
		data, endian = data[len(bomUTF16BE):], unicode.BigEndian
	case len(data) >= 2 && data[0] != 0 && data[1] == 0:
		endian = unicode.LittleEndian
	case len(data) >= 2 && data[0] == 0 && data[1] != 0:
		endian = unicode.BigEndian
	default:
		return data, nil
	}

	out, _, err := transform.Bytes(unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("%w: utf-16: %w", ErrDecode, err)
	}
	return out, nil
}

// SniffDelimiter picks tab when the header line contains one, else comma.
func SniffDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.IndexByte(header, '\t') >= 0 {
		return '\t'
	}
	return ','
}
