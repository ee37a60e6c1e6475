package app

import (
	"strings"

	"github.com/Goodness5/Vortexis-Backend/pkg/logger"
)

// ConfigureLogging initialises the global logger from server settings, defaulting to info level JSON output.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{Level: level, Format: strings.TrimSpace(cfg.LogFormat)})
}
