package content

import (
	"bytes"
	"unicode/utf8"
)

const sniffLen = 8192

var boms = [][]byte{
	{0xEF, 0xBB, 0xBF},       // UTF-8
	{0xFF, 0xFE},             // UTF-16 LE
	{0xFE, 0xFF},             // UTF-16 BE
	{0xFF, 0xFE, 0x00, 0x00}, // UTF-32 LE
	{0x00, 0x00, 0xFE, 0xFF}, // UTF-32 BE
}

// IsTextContent classifies a byte buffer as text or binary by inspecting at
// most the first 8 KiB. Empty input counts as text.
func IsTextContent(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}

	for _, bom := range boms {
		if bytes.HasPrefix(data, bom) {
			return true
		}
	}

	if bytes.IndexByte(data, 0x00) >= 0 {
		return false
	}

	if utf8.Valid(data) {
		return true
	}

	var printable, control, high int
	for _, b := range data {
		switch {
		case b == '\t' || b == '\n' || b == '\r':
			printable++
		case b >= 0x20 && b < 0x7F:
			printable++
		case b < 0x20 || b == 0x7F:
			control++
		default:
			high++
		}
	}

	total := float64(len(data))
	printableRatio := float64(printable) / total
	if printableRatio > 0.80 {
		return true
	}
	if float64(high)/total > 0.50 {
		return false
	}
	return printableRatio > 0.60 && float64(control)/total < 0.10
}
