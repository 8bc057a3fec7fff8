package core

// decode.go turns raw upload bytes into UTF-8 text before CSV parsing.
//
// Spreadsheet exports from Windows tools arrive in a few encodings:
//   - UTF-8 with or without a BOM
//   - UTF-16 LE/BE with a BOM ("Unicode text" exports)
//   - Windows-1252 with no BOM (older "CSV" exports in Spanish locales)
//
// BOM-prefixed input is decoded per its BOM. BOM-less input that is not valid
// UTF-8 is treated as Windows-1252.

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

func hasBOM(data []byte) bool {
	return bytes.HasPrefix(data, bomUTF8) ||
		bytes.HasPrefix(data, bomUTF16LE) ||
		bytes.HasPrefix(data, bomUTF16BE)
}

// decodeText returns data as UTF-8 with any BOM removed.
func decodeText(data []byte) ([]byte, error) {
	if !hasBOM(data) {
		if utf8.Valid(data) {
			return data, nil
		}
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode windows-1252: %v", ErrFileRead, err)
		}
		return out, nil
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode text: %v", ErrFileRead, err)
	}
	return out, nil
}
