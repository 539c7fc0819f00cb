// Package content assembles heterogeneous local input (roles, prompt text,
// clipboard, stdin, files, recorded audio) into the ordered sequence of
// sources and parts a model request is built from.
package content

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies what produced a Source.
type Kind int

const (
	KindHistory Kind = iota
	KindRole
	KindPrompt
	KindAudio
	KindClipboardText
	KindClipboardImage
	KindStdin
	KindTextFile
	KindMediaFile
)

func (k Kind) String() string {
	switch k {
	case KindHistory:
		return "history"
	case KindRole:
		return "role"
	case KindPrompt:
		return "prompt"
	case KindAudio:
		return "audio"
	case KindClipboardText:
		return "clipboard_text"
	case KindClipboardImage:
		return "clipboard_image"
	case KindStdin:
		return "stdin"
	case KindTextFile:
		return "text_file"
	case KindMediaFile:
		return "media_file"
	default:
		return "unknown"
	}
}

// Source is one collected input. Which fields are set depends on Kind:
// Text for textual kinds, Path for file-backed kinds, Data for payloads
// that were read during collection (clipboard images, recorded audio).
type Source struct {
	Kind   Kind
	Name   string // role or task name
	IsTask bool   // role loaded from the tasks directory
	Path   string
	Text   string
	Data   []byte
	MIME   string
}

// Part is a single unit of model input derived from a Source. Exactly one
// of Text or Data is populated; Data carries its MIME type.
type Part struct {
	Text string
	MIME string
	Data []byte
}

// IsBinary reports whether the part carries raw bytes rather than text.
func (p Part) IsBinary() bool { return p.MIME != "" }

// part renders the source as model input, wrapping text with a provenance
// header so the model can tell where each block came from.
func (s Source) part() (Part, error) {
	switch s.Kind {
	case KindHistory:
		return Part{}, fmt.Errorf("history source has no part projection")
	case KindRole:
		label := "Role"
		if s.IsTask {
			label = "Task"
		}
		return Part{Text: fmt.Sprintf("### %s: %s\n%s\n", label, s.Name, s.Text)}, nil
	case KindPrompt:
		return Part{Text: fmt.Sprintf("### Prompt\n\n%s", s.Text)}, nil
	case KindAudio:
		data, mime, err := readMedia(s.Path)
		if err != nil {
			return Part{}, err
		}
		return Part{MIME: mime, Data: data}, nil
	case KindClipboardText:
		return Part{Text: fmt.Sprintf("### Content from: clipboard\n\n%s", s.Text)}, nil
	case KindClipboardImage:
		return Part{MIME: "image/png", Data: s.Data}, nil
	case KindStdin:
		return Part{Text: fmt.Sprintf("### Content from: stdin\n\n%s", s.Text)}, nil
	case KindTextFile:
		return Part{Text: fmt.Sprintf("### Content from: %s\n\n%s\n", s.Path, s.Text)}, nil
	case KindMediaFile:
		data, mime, err := readMedia(s.Path)
		if err != nil {
			return Part{}, err
		}
		return Part{MIME: mime, Data: data}, nil
	default:
		return Part{}, fmt.Errorf("unknown source kind %d", s.Kind)
	}
}

// Parts projects the sequence into model-input parts, one per source.
// History sources are skipped; they travel as prior messages, not parts.
func Parts(sources []Source) ([]Part, error) {
	parts := make([]Part, 0, len(sources))
	for _, s := range sources {
		if s.Kind == KindHistory {
			continue
		}
		p, err := s.part()
		if err != nil {
			return nil, fmt.Errorf("projecting %s source: %w", s.Kind, err)
		}
		parts = append(parts, p)
	}
	return parts, nil
}

// JoinText concatenates the text parts for persistence as a message body.
func JoinText(parts []Part) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if !p.IsBinary() {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// MediaMIME maps a media file extension to its MIME type. The boolean is
// false for extensions outside the supported set.
func MediaMIME(path string) (string, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg", true
	case "png":
		return "image/png", true
	case "webp":
		return "image/webp", true
	case "heic":
		return "image/heic", true
	case "pdf":
		return "application/pdf", true
	case "ogg", "opus":
		return "audio/ogg", true
	case "mp3":
		return "audio/mpeg", true
	case "m4a":
		return "audio/mp4", true
	case "mp4":
		return "video/mp4", true
	default:
		return "", false
	}
}

// IsAudioMIME reports whether a MIME type from the media table is audio.
func IsAudioMIME(mime string) bool {
	return strings.HasPrefix(mime, "audio/")
}
