package logger

import (
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents logging severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a config string ("debug", "info", ...) to a Level.
// Unknown values fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN", "warning":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format selects the encoder used for log lines.
type Format int

const (
	// FormatConsole writes human-readable lines, used by the CLI commands.
	FormatConsole Format = iota
	// FormatJSON writes one JSON object per line, used by the server.
	FormatJSON
)

// Logger provides levelled logging for the studio on top of zap
type Logger struct {
	z *zap.Logger
	s *zap.SugaredLogger
}

// New creates a new logger writing to out
func New(out io.Writer, minLevel Level, prefix string) *Logger {
	return NewWithFormat(out, minLevel, prefix, FormatConsole)
}

// NewWithFormat creates a logger with an explicit encoder format
func NewWithFormat(out io.Writer, minLevel Level, prefix string, format Format) *Logger {
	if out == nil {
		out = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	var enc zapcore.Encoder
	if format == FormatJSON {
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encCfg.ConsoleSeparator = " "
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(out)), minLevel.zapLevel())
	z := zap.New(core)
	if prefix != "" {
		z = z.Named(prefix)
	}
	return &Logger{z: z, s: z.Sugar()}
}

// Default returns a default logger to stdout
func Default() *Logger {
	return New(os.Stdout, LevelInfo, "")
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	z := zap.NewNop()
	return &Logger{z: z, s: z.Sugar()}
}

// WithPrefix creates a sub-logger with an additional prefix
func (l *Logger) WithPrefix(prefix string) *Logger {
	z := l.z.Named(prefix)
	return &Logger{z: z, s: z.Sugar()}
}

// Zap exposes the underlying structured logger for field-based logging
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.z.Sync()
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) {
	l.s.Debugf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...any) {
	l.s.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) {
	l.s.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.s.Errorf(format, args...)
}

// Step logs a named step with timing
func (l *Logger) Step(name string) func() {
	start := time.Now()
	l.Info("▶ Starting: %s", name)
	return func() {
		l.Info("✓ Completed: %s (took %v)", name, time.Since(start).Round(time.Millisecond))
	}
}

// Compilation logs compilation result
func (l *Logger) Compilation(success bool, path string, errors []string) {
	if success {
		l.Info("✓ Compiled successfully: %s", path)
	} else {
		l.Error("✗ Compilation failed: %s", path)
		for _, err := range errors {
			l.Error("  - %s", err)
		}
	}
}
