package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoInput is returned when assembly produces an empty sequence.
var ErrNoInput = errors.New("no input provided: supply a prompt, files, clipboard, stdin, or audio")

// audioPlaceholderPrompt stands in for the prompt when the user records
// audio without typing anything.
const audioPlaceholderPrompt = "Your instructions are in the recorded audio"

// Clipboard reads from and writes to the system clipboard.
type Clipboard interface {
	// ReadImage returns image bytes when the clipboard holds an image.
	// ok is false when it holds something else.
	ReadImage() (data []byte, ok bool, err error)
	ReadText() (string, error)
	Clear() error
}

// Recorder captures audio and returns the path of the recorded file.
type Recorder interface {
	Record(ctx context.Context) (string, error)
}

// Options is the input snapshot a Builder assembles from.
type Options struct {
	Prompt          string
	Roles           []string
	Files           []string
	Images          []string
	UseClipboard    bool
	RecordAudio     bool
	ClipboardOutput bool
	StdinPiped      bool
	Stdin           io.Reader
}

// Builder assembles collected inputs into an ordered source sequence.
// The order is fixed: history, roles, prompt, audio, clipboard, stdin,
// then file arguments in the order given.
type Builder struct {
	Clipboard Clipboard
	Recorder  Recorder
	RolesDir  string
	TasksDir  string
	Log       *zap.Logger
}

// Build collects every requested input. Unreadable or unclassifiable
// inputs are skipped with a warning; the only fatal outcomes are an audio
// recording failure, an unsupported image extension, and an empty result.
// historyText, when non-empty, marks resumed-conversation context and is
// always the first source.
func (b *Builder) Build(ctx context.Context, opts Options, historyText string) ([]Source, error) {
	var sources []Source
	var warns *multierror.Error

	if historyText != "" {
		sources = append(sources, Source{Kind: KindHistory, Text: historyText})
	}

	for _, name := range opts.Roles {
		src, err := b.loadRole(name)
		if err != nil {
			warns = multierror.Append(warns, err)
			continue
		}
		sources = append(sources, src)
	}

	prompt := opts.Prompt
	if strings.TrimSpace(prompt) == "" && opts.RecordAudio {
		prompt = audioPlaceholderPrompt
	}
	if strings.TrimSpace(prompt) != "" {
		sources = append(sources, Source{Kind: KindPrompt, Text: prompt})
	}

	if opts.RecordAudio {
		path, err := b.Recorder.Record(ctx)
		if err != nil {
			if opts.ClipboardOutput && b.Clipboard != nil {
				if cerr := b.Clipboard.Clear(); cerr != nil {
					b.Log.Warn("failed to clear clipboard", zap.Error(cerr))
				}
			}
			return nil, fmt.Errorf("audio recording failed: %w", err)
		}
		sources = append(sources, Source{Kind: KindAudio, Path: path})
	}

	if opts.UseClipboard {
		if src, ok := b.readClipboard(&warns); ok {
			sources = append(sources, src)
		}
	}

	if opts.StdinPiped && opts.Stdin != nil {
		data, err := io.ReadAll(opts.Stdin)
		if err != nil {
			warns = multierror.Append(warns, fmt.Errorf("reading stdin: %w", err))
		} else if text := string(data); strings.TrimSpace(text) != "" {
			sources = append(sources, Source{Kind: KindStdin, Text: text})
		}
	}

	for _, arg := range opts.Files {
		sources = append(sources, b.collectFileArg(arg, &warns)...)
	}

	for _, img := range opts.Images {
		if _, ok := MediaMIME(img); !ok {
			return nil, fmt.Errorf("unsupported image extension: %s", img)
		}
		sources = append(sources, Source{Kind: KindMediaFile, Path: img})
	}

	if err := warns.ErrorOrNil(); err != nil {
		b.Log.Warn("some inputs were skipped", zap.Error(err))
	}

	if len(sources) == 0 || (len(sources) == 1 && sources[0].Kind == KindHistory) {
		return nil, ErrNoInput
	}
	return sources, nil
}

func (b *Builder) loadRole(name string) (Source, error) {
	rolePath := filepath.Join(b.RolesDir, name+".md")
	if data, err := os.ReadFile(rolePath); err == nil {
		return Source{Kind: KindRole, Name: name, Path: rolePath, Text: string(data)}, nil
	}
	taskPath := filepath.Join(b.TasksDir, name+".md")
	if data, err := os.ReadFile(taskPath); err == nil {
		return Source{Kind: KindRole, Name: name, IsTask: true, Path: taskPath, Text: string(data)}, nil
	}
	return Source{}, fmt.Errorf("role %q not found in %s or %s", name, b.RolesDir, b.TasksDir)
}

// readClipboard probes for an image first. A probe error falls back to a
// second-chance text read rather than failing the run.
func (b *Builder) readClipboard(warns **multierror.Error) (Source, bool) {
	data, ok, err := b.Clipboard.ReadImage()
	if err == nil && ok {
		return Source{Kind: KindClipboardImage, Data: data}, true
	}
	if err != nil {
		b.Log.Debug("clipboard image probe failed, trying text", zap.Error(err))
	}
	text, terr := b.Clipboard.ReadText()
	if terr != nil {
		*warns = multierror.Append(*warns, fmt.Errorf("reading clipboard: %w", terr))
		return Source{}, false
	}
	if strings.TrimSpace(text) == "" {
		return Source{}, false
	}
	return Source{Kind: KindClipboardText, Text: text}, true
}

// File reads within one argument are independent of each other, so they
// fan out and rejoin here; nothing downstream sees a partial read.
const maxConcurrentReads = 8

func (b *Builder) collectFileArg(arg string, warns **multierror.Error) []Source {
	info, err := os.Stat(arg)
	if err != nil {
		*warns = multierror.Append(*warns, fmt.Errorf("stat %s: %w", arg, err))
		return nil
	}

	paths := []string{arg}
	if info.IsDir() {
		var skipped []string
		paths, skipped, err = CollectFilesRecursive(arg)
		if err != nil {
			*warns = multierror.Append(*warns, err)
			return nil
		}
		for _, s := range skipped {
			*warns = multierror.Append(*warns, fmt.Errorf("skipping unreadable entry: %s", s))
		}
	}

	srcs := make([]*Source, len(paths))
	errs := make([]error, len(paths))
	var g errgroup.Group
	g.SetLimit(maxConcurrentReads)
	for i, path := range paths {
		g.Go(func() error {
			srcs[i], errs[i] = b.readFileSource(path)
			return nil
		})
	}
	_ = g.Wait()

	var out []Source
	for i := range paths {
		if errs[i] != nil {
			*warns = multierror.Append(*warns, errs[i])
			continue
		}
		out = append(out, *srcs[i])
	}
	return out
}

func (b *Builder) readFileSource(path string) (*Source, error) {
	if _, ok := MediaMIME(path); ok {
		return &Source{Kind: KindMediaFile, Path: path}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !IsTextContent(data) {
		return nil, fmt.Errorf("skipping binary file: %s", path)
	}
	return &Source{Kind: KindTextFile, Path: path, Text: string(data)}, nil
}
