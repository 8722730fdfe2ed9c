// Package logger configures the process-wide zap logger.
package logger

import (
	"context"
	"os"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

// Conf selects level, encoding and an optional rotated log file.
type Conf struct {
	Level      string `mapstructure:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" json:"format" validate:"omitempty,oneof=json console"`
	Output     string `mapstructure:"output" json:"output" validate:"omitempty,oneof=stdout stderr"`
	File       string `mapstructure:"file" json:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days" validate:"gte=0"`
}

var global atomic.Pointer[zap.Logger]

func init() { global.Store(zap.NewNop()) }

// SetUp builds a logger from c and installs it as the global logger.
func SetUp(c Conf) (*zap.Logger, error) {
	l, err := New(c)
	if err != nil {
		return nil, err
	}
	global.Store(l)
	zap.ReplaceGlobals(l)
	return l, nil
}

// New builds a logger from c without installing it.
func New(c Conf) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(c.Level))); err != nil {
			return nil, errors.Wrapf(err, "log level %q", c.Level)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch strings.ToLower(c.Format) {
	case "", "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, errors.Errorf("log format %q", c.Format)
	}

	var ws zapcore.WriteSyncer
	switch strings.ToLower(c.Output) {
	case "", "stdout":
		ws = zapcore.Lock(os.Stdout)
	case "stderr":
		ws = zapcore.Lock(os.Stderr)
	default:
		return nil, errors.Errorf("log output %q", c.Output)
	}
	if c.File != "" {
		ws = zapcore.NewMultiWriteSyncer(ws, zapcore.AddSync(&lumberjack.Logger{
			Filename:   c.File,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
			Compress:   true,
		}))
	}
	return zap.New(zapcore.NewCore(enc, ws, level), zap.AddCaller()), nil
}

// L returns the global logger.
func L() *zap.Logger { return global.Load() }

// NewContext returns a copy of ctx carrying the request id.
func NewContext(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqID)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithContext returns the global logger annotated with the request id in ctx.
func WithContext(ctx context.Context) *zap.Logger {
	l := L()
	if id := RequestID(ctx); id != "" {
		return l.With(zap.String("req_id", id))
	}
	return l
}
