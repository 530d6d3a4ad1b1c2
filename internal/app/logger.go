package app

import (
	"github.com/teamsync/teamsync/pkg/logger"
)

// ConfigureLogging installs the process logger for service from the server settings.
func ConfigureLogging(cfg ServerConfig, service string) error {
	return logger.Init(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: service})
}
