package logutil

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

var defaultLogger = zap.NewNop()

type LogConfig struct {
	File      string `json:"file"`
	Level     string `json:"level"`
	FileCount int    `json:"file_count"`
	FileSize  int    `json:"file_size"`
	KeepDays  int    `json:"keep_days"`
	Console   bool   `json:"console"`
}

func Init(cfg LogConfig) {
	level := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
		level = parsed
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var cores []zapcore.Core
	if cfg.File != "" {
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.FileSize,
			MaxBackups: cfg.FileCount,
			MaxAge:     cfg.KeepDays,
		})
		cores = append(cores, zapcore.NewCore(encoder, writer, level))
	}
	if cfg.Console || cfg.File == "" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level))
	}
	defaultLogger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

// WithLogger returns a context carrying the given logger; GetLogger recovers
// it, falling back to the process-wide logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func GetLogger(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	return defaultLogger
}

func Sync() {
	_ = defaultLogger.Sync()
}
