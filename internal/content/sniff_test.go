package content

import (
	"bytes"
	"testing"
)

func TestIsTextContent(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"empty", nil, true},
		{"plain ascii", []byte("hello world\n"), true},
		{"utf8 bom", []byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, true},
		{"utf16le bom", []byte{0xFF, 0xFE, 'h', 0x00}, true},
		{"nul byte", []byte{'h', 'i', 0x00, 'x'}, false},
		{"valid utf8 multibyte", []byte("héllo wörld ☺"), true},
		{"mostly printable latin1", append(bytes.Repeat([]byte("abcdefghi"), 10), 0xE9), true},
		{"mostly high bytes", bytes.Repeat([]byte{0xC0, 0xC1, 0xF5}, 100), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTextContent(tt.data); got != tt.want {
				t.Errorf("IsTextContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTextContentOnlyChecksPrefix(t *testing.T) {
	// A NUL beyond the 8 KiB sniff window must not flip the verdict.
	data := append(bytes.Repeat([]byte("a"), sniffLen), 0x00)
	if !IsTextContent(data) {
		t.Fatal("expected text verdict when NUL sits past the sniff window")
	}
}

func TestIsTextContentControlHeavy(t *testing.T) {
	// Invalid UTF-8 with too many control bytes fails the fallback rule.
	data := make([]byte, 0, 100)
	for i := 0; i < 70; i++ {
		data = append(data, 'a')
	}
	for i := 0; i < 15; i++ {
		data = append(data, 0x01)
	}
	for i := 0; i < 15; i++ {
		data = append(data, 0xC0) // invalid as UTF-8 lead without continuation
	}
	if IsTextContent(data) {
		t.Fatal("expected binary verdict for control-heavy invalid UTF-8")
	}
}
