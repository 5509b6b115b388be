package conf

import "github.com/tphakala/itemstore/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// It is fetched from the global logger on every call because the central
// logger is installed after configuration has been read.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
