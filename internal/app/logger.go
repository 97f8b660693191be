package app

import "github.com/dbelyakov/realvista/pkg/logger"

// ConfigureLogging initialises the global logger at the configured level.
func ConfigureLogging(level string) error {
	return logger.Init(level)
}
