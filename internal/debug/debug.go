package debug

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/ccsearch/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// IsDebugEnabled returns true if debug logging is forced on by the build flag
// or the DEBUG environment variable, regardless of verbosity
func IsDebugEnabled() bool {
	if EnableDebug == "true" {
		return true
	}

	// Allow runtime override via environment variable
	if os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true" {
		return true
	}

	return false
}

// LevelForVerbosity maps the -V verbosity level onto a log level.
// 0 only reports warnings and failures, 1 adds progress, 2+ is debug.
func LevelForVerbosity(verbosity int) zapcore.Level {
	if IsDebugEnabled() {
		return zapcore.DebugLevel
	}
	switch {
	case verbosity <= 0:
		return zapcore.WarnLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// NewLogger builds the process logger. Output goes to w (stderr when nil);
// stdout is reserved for result lines.
func NewLogger(verbosity int, jsonOutput bool, w io.Writer) *zap.Logger {
	if w == nil {
		w = os.Stderr
	}

	var encoder zapcore.Encoder
	if jsonOutput {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.TimeKey = ""
		cfg.CallerKey = ""
		encoder = zapcore.NewConsoleEncoder(cfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), zap.NewAtomicLevelAt(LevelForVerbosity(verbosity)))
	return zap.New(core)
}

// Component tags a logger with the pipeline component it belongs to
func Component(logger *zap.Logger, name string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.Named(name)
}

// Nop returns a logger that discards everything; used when callers pass nil
func Nop() *zap.Logger {
	return zap.NewNop()
}

// OrNop returns logger, or a discarding logger if it is nil
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
