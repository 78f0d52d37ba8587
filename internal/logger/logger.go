// Package logger wraps a process-wide zap logger with optional Sentry
// forwarding. Errors and fatals become Sentry events; lower levels are
// kept as breadcrumbs attached to those events.
package logger

import (
	"context"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls the global logger built by Initialize.
type Config struct {
	// Debug switches to the development encoder and enables the
	// debug level.
	Debug bool

	// SentryDSN enables event forwarding when non-empty.
	SentryDSN string

	// BreadcrumbLevel is the minimum level recorded as a Sentry
	// breadcrumb. Zero value means info.
	BreadcrumbLevel zapcore.Level

	// Tags are attached to every forwarded Sentry event.
	Tags map[string]string
}

var (
	// global is never nil; before Initialize it is a no-op logger so
	// package-level helpers are safe to call from tests.
	global = zap.NewNop()

	hub *sentry.Client
)

// Initialize replaces the global logger. Call once at process start.
func Initialize(cfg Config) error {
	base, err := buildZap(cfg.Debug)
	if err != nil {
		return err
	}

	if cfg.SentryDSN == "" {
		global = base
		return nil
	}

	hub, err = sentry.NewClient(sentry.ClientOptions{
		Dsn:   cfg.SentryDSN,
		Debug: cfg.Debug,
	})
	if err != nil {
		return err
	}

	breadcrumbLevel := cfg.BreadcrumbLevel
	if breadcrumbLevel == zapcore.InvalidLevel {
		breadcrumbLevel = zapcore.InfoLevel
	}

	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   breadcrumbLevel,
		Tags:              cfg.Tags,
	}, zapsentry.NewSentryClientFromClient(hub))
	if err != nil {
		return err
	}

	global = zapsentry.AttachCoreToLogger(core, base)
	return nil
}

func buildZap(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build(zap.AddCallerSkip(1))
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	return cfg.Build(zap.AddCallerSkip(1))
}

// Flush drains buffered Sentry events, typically on shutdown.
func Flush(timeout time.Duration) {
	if hub != nil {
		hub.Flush(timeout)
	}
	_ = global.Sync()
}

// FromContext binds the Sentry scope carried by ctx, if any, so events
// logged through the returned logger join the request's trace.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return global
	}
	return global.With(zapsentry.Context(ctx))
}

// Default returns the global logger without any context scope.
func Default() *zap.Logger {
	return global
}

func Info(msg string, fields ...zap.Field) {
	global.Info(msg, fields...)
}

func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Info(msg, fields...)
}

// Error reports err as the log message. A nil err still emits an event
// so a bad call site is visible instead of silent.
func Error(err error, fields ...zap.Field) {
	global.Error(message(err), fields...)
}

func ErrorCtx(ctx context.Context, err error, fields ...zap.Field) {
	FromContext(ctx).Error(message(err), fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	global.Fatal(msg, fields...)
}

func FatalCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Fatal(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	global.Warn(msg, fields...)
}

func WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Warn(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	global.Debug(msg, fields...)
}

func DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Debug(msg, fields...)
}

func message(err error) string {
	if err == nil {
		return "error with no cause"
	}
	return err.Error()
}
