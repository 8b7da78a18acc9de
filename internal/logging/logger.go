// Package logging builds the service logger and fans log entries out to
// dashboard subscribers over the event bus.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Development switches to the console encoder with colored levels.
	Development bool
	// Bus, when set, tees every entry at BusLevel or above onto the
	// scraper_logs topic so dashboards can tail the run.
	Bus Publisher
	// BusLevel gates what the bus receives. The zero value is InfoLevel.
	BusLevel zapcore.Level
}

// New builds the service's zap.Logger. Without a Bus it logs locally only.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if opts.Bus != nil {
		logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, NewBusCore(opts.Bus, opts.BusLevel))
		}))
	}
	return logger, nil
}
