package logging

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// MirrorFunc receives every record written through a *Context method so log
// shippers can forward them without a second encoder pass.
type MirrorFunc func(ctx context.Context, level Level, msg string, args ...any)

// Logger wraps zap behind an slog-style key-value API. The zero value is not
// usable; construct with NewJSON, NewConsole, NewNop, or FromZap.
type Logger struct {
	zap    *zap.Logger
	synced atomic.Bool
}

var (
	defaultLogger atomic.Pointer[Logger]
	mirror        atomic.Pointer[MirrorFunc]
)

func init() {
	defaultLogger.Store(NewNop())
}

func ParseLevel(raw string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

// NewJSON builds a production logger writing one JSON record per line to
// stdout.
func NewJSON(level Level) *Logger {
	return FromZap(zap.New(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.Lock(os.Stdout), level),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	))
}

// NewConsole builds a human-readable logger for interactive use, writing to
// stderr so replies on stdout stay clean.
func NewConsole(level Level) *Logger {
	cfg := encoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	return FromZap(zap.New(
		zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level),
	))
}

func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{zap: z}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func Default() *Logger {
	if l := defaultLogger.Load(); l != nil {
		return l
	}
	return NewNop()
}

func SetDefault(l *Logger) {
	if l == nil {
		l = NewNop()
	}
	defaultLogger.Store(l)
}

// SetMirror installs fn as the process-wide log mirror. Pass nil to remove
// the current mirror.
func SetMirror(fn MirrorFunc) {
	if fn == nil {
		mirror.Store(nil)
		return
	}
	mirror.Store(&fn)
}

func (l *Logger) Zap() *zap.Logger {
	if l == nil || l.zap == nil {
		return zap.NewNop()
	}
	return l.zap
}

func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	if l.synced.CompareAndSwap(false, true) {
		return l.zap.Sync()
	}
	return nil
}

func (l *Logger) With(args ...any) *Logger {
	if l == nil {
		return NewNop()
	}
	return &Logger{zap: l.zap.With(zapFields(args)...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.write(nil, LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.write(nil, LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.write(nil, LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.write(nil, LevelError, msg, args) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelDebug, msg, args)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelInfo, msg, args)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelWarn, msg, args)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.write(ctx, LevelError, msg, args)
}

func (l *Logger) write(ctx context.Context, level Level, msg string, args []any) {
	logger := l
	if logger == nil {
		logger = Default()
	}

	fields := zapFields(args)
	if ctx != nil {
		fields = append(fields, traceFields(ctx)...)
		if fn := mirror.Load(); fn != nil {
			(*fn)(ctx, level, msg, args...)
		}
	}

	if ce := logger.zap.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func traceFields(ctx context.Context) []zap.Field {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	}
}

func zapFields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = "arg"
		}

		if i+1 >= len(args) {
			out = append(out, zap.Any(key, nil))
			break
		}

		if err, ok := args[i+1].(error); ok {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, args[i+1]))
	}

	return out
}
