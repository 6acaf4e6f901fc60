package bootstrap

import (
	"strings"

	"NoticeBoard/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger. dev gets a console encoder with
// caller info, every other environment logs JSON.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Env == "dev" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(parseLevel(cfg.LogLevel))

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "noticeboard"), zap.String("env", cfg.Env)), nil
}

// parseLevel falls back to info for anything zap does not recognise.
func parseLevel(lvl string) zapcore.Level {
	l, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(lvl)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}
