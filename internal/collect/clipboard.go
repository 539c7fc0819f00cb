// Package collect provides the thin adapters that read from the
// environment: clipboard, stdin, and the audio recorder. Everything here
// hides behind interfaces so assembly logic stays testable.
package collect

import (
	"os"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
)

// SystemClipboard adapts the platform clipboard. The underlying library
// is text-only, so the image probe always reports no image; image paste
// still works by passing a file path instead.
type SystemClipboard struct{}

func (SystemClipboard) ReadImage() ([]byte, bool, error) {
	return nil, false, nil
}

func (SystemClipboard) ReadText() (string, error) {
	return clipboard.ReadAll()
}

func (SystemClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

func (SystemClipboard) Clear() error {
	return clipboard.WriteAll("")
}

// StdinIsPiped reports whether stdin carries piped data rather than a
// terminal.
func StdinIsPiped() bool {
	fd := os.Stdin.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}
