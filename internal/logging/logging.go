// Package logging builds the zap logger shared by a cfpaths run.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger level and encoding
type Options struct {
	Level   string // debug, info, warn, error
	Format  string // json or console
	Verbose bool
	Quiet   bool
}

// New builds a logger writing to stderr, keeping stdout free for reports.
// Verbose forces debug, Quiet forces error; Verbose wins if both are set.
func New(opts Options) (*zap.Logger, error) {
	level, err := resolveLevel(opts)
	if err != nil {
		return nil, err
	}

	var config zap.Config
	switch strings.ToLower(opts.Format) {
	case "", "json":
		config = zap.NewProductionConfig()
	case "console":
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func resolveLevel(opts Options) (zapcore.Level, error) {
	switch {
	case opts.Verbose:
		return zapcore.DebugLevel, nil
	case opts.Quiet:
		return zapcore.ErrorLevel, nil
	case opts.Level == "":
		return zapcore.InfoLevel, nil
	}

	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	return level, nil
}
