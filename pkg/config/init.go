package config

import (
	"fmt"

	"github.com/danghamo/twieo/pkg/logger"
)

// Initialize loads configuration from path (empty for the search paths)
// and installs the global logger
func Initialize(path string) (*Config, *logger.Logger, error) {
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Log.Level),
		Environment: cfg.Log.Environment,
		Encoding:    cfg.Log.Encoding,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.SetGlobalLogger(appLogger)

	return cfg, appLogger, nil
}
