package logger

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the process wide logger. It is a no-op logger until InitLogger runs,
// so packages and tests can log unconditionally.
var L = zap.NewNop()

type ctxKey struct{}

// InitLogger replaces L. level is one of debug, info, warn, error; anything
// else falls back to info. Production mode logs JSON, otherwise a colored
// console.
func InitLogger(level string, isProduction bool) error {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
		fmt.Fprintf(os.Stderr, "Warning: invalid log level %q, using info\n", level)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if isProduction {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize zap logger: %w", err)
	}
	L = l.Named("loot")

	L.Info("Logger initialized", zap.String("level", zapLevel.String()), zap.Bool("productionMode", isProduction))
	return nil
}

// NewContext returns a copy of ctx whose logger carries fields, on top of any
// fields already attached to ctx.
func NewContext(ctx context.Context, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, ctxKey{}, From(ctx).With(fields...))
}

// From returns the request scoped logger of ctx, or L.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
			return l
		}
	}
	return L
}

// Sync flushes buffered log entries. Call it before the process exits.
func Sync() {
	_ = L.Sync()
}
