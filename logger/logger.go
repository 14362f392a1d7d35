package logger

import (
	"go.uber.org/zap"
)

// Logger is the keyval logging interface the pipeline runner writes to.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// ZapAdapter adapts a Zap logger to the pipeline's Logger interface
type ZapAdapter struct {
	zapLogger *zap.Logger
}

// NewZapAdapter creates a new ZapAdapter
func NewZapAdapter(zapLogger *zap.Logger) *ZapAdapter {
	return &ZapAdapter{zapLogger: zapLogger}
}

// NewDefault builds a production Zap logger wrapped in a ZapAdapter.
func NewDefault(debug bool) (*ZapAdapter, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZapAdapter(z), nil
}

// Sync flushes buffered log entries.
func (z *ZapAdapter) Sync() error {
	return z.zapLogger.Sync()
}

// Debug logs a debug message
func (z *ZapAdapter) Debug(msg string, keyvals ...any) {
	z.zapLogger.Debug(msg, zapFields(keyvals)...)
}

// Info logs an info message
func (z *ZapAdapter) Info(msg string, keyvals ...any) {
	z.zapLogger.Info(msg, zapFields(keyvals)...)
}

// Warn logs a warning message
func (z *ZapAdapter) Warn(msg string, keyvals ...any) {
	z.zapLogger.Warn(msg, zapFields(keyvals)...)
}

// Error logs an error message
func (z *ZapAdapter) Error(msg string, keyvals ...any) {
	z.zapLogger.Error(msg, zapFields(keyvals)...)
}

// zapFields converts key-value pairs into Zap fields
func zapFields(keyvals []any) []zap.Field {
	fields := make([]zap.Field, 0, len(keyvals)/2)
	for i := 0; i < len(keyvals)-1; i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = "unknown_key"
		}
		fields = append(fields, zap.Any(key, keyvals[i+1]))
	}
	return fields
}
