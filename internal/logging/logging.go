// Package logging builds the process logger. Everything goes to stderr so
// the model response on stdout stays pipeable.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the base logger. Verbose lowers the level to debug and
// switches to development output.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Development = true
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// WithConversationFile tees the logger into a per-conversation log file.
// Used when file logging is enabled; failures fall back to the base
// logger rather than blocking the run.
func WithConversationFile(base *zap.Logger, dir, conversationID string) *zap.Logger {
	if err := os.MkdirAll(dir, 0755); err != nil {
		base.Warn("cannot create log dir", zap.String("dir", dir), zap.Error(err))
		return base
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.log", conversationID))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		base.Warn("cannot open log file", zap.String("path", path), zap.Error(err))
		return base
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(enc),
		zapcore.AddSync(f),
		zap.DebugLevel,
	)
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}
