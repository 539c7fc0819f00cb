package collect

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// FFmpegRecorder captures microphone audio to an opus file via ffmpeg.
// Recording runs until the user presses Enter.
type FFmpegRecorder struct {
	Device string // capture device override; platform default when empty
	Input  io.Reader
	Log    *zap.Logger
}

func (r *FFmpegRecorder) Record(ctx context.Context) (string, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return "", fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}

	out := filepath.Join(os.TempDir(), fmt.Sprintf("quill-%d.ogg", time.Now().UnixNano()))
	args := append(r.captureArgs(), "-c:a", "libopus", "-b:a", "32k", "-y", out)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting ffmpeg: %w", err)
	}

	fmt.Fprintln(os.Stderr, "Recording... press Enter to stop.")
	in := r.Input
	if in == nil {
		in = os.Stdin
	}
	if _, err := bufio.NewReader(in).ReadString('\n'); err != nil && err != io.EOF {
		r.Log.Warn("stopped waiting for Enter", zap.Error(err))
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		r.Log.Warn("could not signal ffmpeg, killing it", zap.Error(err))
		_ = cmd.Process.Kill()
	}
	// ffmpeg exits nonzero when interrupted; the file on disk decides.
	_ = cmd.Wait()

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		return "", fmt.Errorf("recording produced no audio at %s", out)
	}
	r.Log.Debug("recorded audio", zap.String("path", out), zap.Int64("bytes", info.Size()))
	return out, nil
}

func (r *FFmpegRecorder) captureArgs() []string {
	device := r.Device
	switch runtime.GOOS {
	case "darwin":
		if device == "" {
			device = ":0"
		}
		return []string{"-f", "avfoundation", "-i", device}
	case "windows":
		if device == "" {
			device = "audio=Microphone"
		}
		return []string{"-f", "dshow", "-i", device}
	default:
		if device == "" {
			device = "default"
		}
		return []string{"-f", "alsa", "-i", device}
	}
}
