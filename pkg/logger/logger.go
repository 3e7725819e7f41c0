// Package logger wraps zap with request-scoped fields taken from the context.
package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "bakehouse/internal/core/context"
)

// Logger is a sugared zap logger. Methods returning *Logger never mutate the receiver.
type Logger struct {
	*zap.SugaredLogger
}

type loggerKey struct{}

// Config selects level and encoding. Development switches to a colored
// console encoder; otherwise entries are JSON lines on stdout.
type Config struct {
	Level       string
	Development bool
	// Service, when set, is attached to every entry as "service".
	Service string
}

// New builds a Logger. Unknown levels fall back to info.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	core := zapcore.NewCore(encoder(cfg.Development), zapcore.Lock(os.Stdout), level)
	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}

	l := zap.New(core, opts...)
	if cfg.Service != "" {
		l = l.With(zap.String("service", cfg.Service))
	}
	return &Logger{l.Sugar()}, nil
}

func encoder(dev bool) zapcore.Encoder {
	if dev {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(ec)
}

var (
	fallbackOnce sync.Once
	fallback     *Logger
)

// Default is the process-wide logger used when the context carries none.
func Default() *Logger {
	fallbackOnce.Do(func() {
		fallback, _ = New(Config{Level: "info"})
	})
	return fallback
}

// NewFromZap wraps an existing zap logger (tests, observers).
func NewFromZap(l *zap.Logger) *Logger {
	return &Logger{l.Sugar()}
}

// NewNop discards everything.
func NewNop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// contextFields extracts trace and user identifiers as key/value pairs.
func contextFields(ctx context.Context) []any {
	var kv []any
	if trace := appctx.GetTrace(ctx); trace != nil {
		kv = append(kv, "trace_id", trace.TraceID, "request_id", trace.RequestID)
	}
	if user := appctx.GetUser(ctx); user != nil {
		kv = append(kv, "user_id", user.UserID)
	}
	return kv
}

// WithContext attaches trace_id, request_id and user_id when present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	kv := contextFields(ctx)
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l.SugaredLogger.With(keysAndValues...)}
}

// WithComponent names the subsystem producing the entries ("worker", "events").
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// WithLogger stores l in ctx for FromContext.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the request logger enriched with context fields,
// or Default when none was stored.
func FromContext(ctx context.Context) *Logger {
	l, ok := ctx.Value(loggerKey{}).(*Logger)
	if !ok {
		l = Default()
	}
	return l.WithContext(ctx)
}

func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Debugw(msg, keysAndValues...)
}

func Info(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Infow(msg, keysAndValues...)
}

func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Warnw(msg, keysAndValues...)
}

func Error(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Errorw(msg, keysAndValues...)
}

// Fatal logs and terminates the process.
func Fatal(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Fatalw(msg, keysAndValues...)
}
