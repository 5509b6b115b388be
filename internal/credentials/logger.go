package credentials

import "github.com/tphakala/itemstore/internal/logger"

// GetLogger returns the credentials module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("credentials")
}
