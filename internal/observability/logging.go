// Package observability builds the process logger.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/fazenda/internal/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "fazenda"

// NewLogger builds the logger for one save slot. Every entry carries the
// service name and the storage backend and slot it acts on. Sampling is
// off, so repeated level-up and save-failure entries are all kept.
//
// Precondition: cfg.Logging.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Logging.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.Config, opts ...zap.Option) (*zap.Logger, error) {
	lc := cfg.Logging
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", lc.Level, err)
	}

	var zapCfg zap.Config
	switch lc.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", lc.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Sampling = nil
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	logger, err := zapCfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.With(
		zap.String("service", ServiceName),
		zap.String("backend", cfg.Storage.Backend),
		zap.String("slot", cfg.Storage.Slot),
	), nil
}
