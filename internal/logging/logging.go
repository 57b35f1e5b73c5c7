// Package logging builds the zap logger shared by both commands.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// New returns a console logger writing to w, usually stderr. verbose lowers
// the level to Debug; dev switches to zap's development settings (caller,
// stack traces). Levels are colored when w is a terminal.
func New(w io.Writer, verbose, dev bool, appName string) *zap.Logger {
	f, ok := w.(*os.File)
	color := ok && isTerminal(f)
	return NewWithWriter(w, verbose, dev, color).With(zap.String("app", appName))
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, verbose, dev, color bool) *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	if dev {
		cfg = zap.NewDevelopmentEncoderConfig()
	}
	cfg.TimeKey = ""
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zapcore.InfoLevel
	if verbose || dev {
		level = zapcore.DebugLevel
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), level)
	opts := []zap.Option{zap.ErrorOutput(zapcore.AddSync(w))}
	if dev {
		opts = append(opts, zap.Development(), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}
	return zap.New(core, opts...)
}

// Sync flushes the logger. Syncing a terminal or pipe returns EINVAL on
// Linux, which is not worth reporting at exit.
func Sync(logger *zap.Logger) {
	_ = logger.Sync()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
