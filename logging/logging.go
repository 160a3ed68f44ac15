// Package logging builds the process logger.
package logging

import (
	"go.uber.org/zap"
)

// New returns a zap logger. Format "json" selects the production encoder;
// anything else the human-readable development encoder. An unknown level
// falls back to info.
func New(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		atomic = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = atomic
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.InitialFields = map[string]interface{}{
		"service": "text-expander",
	}
	return cfg.Build()
}
