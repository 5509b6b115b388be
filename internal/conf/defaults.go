package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default scopes requested for the sheet backend.
const (
	ScopeSpreadsheets = "https://www.googleapis.com/auth/spreadsheets"
	ScopeDrive        = "https://www.googleapis.com/auth/drive"
)

// setDefaultConfig registers a default for every configuration key
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "itemstore")
	viper.SetDefault("main.basedir", "")

	// Logging
	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/itemstore.log")
	viper.SetDefault("logging.file_output.max_size", 100)
	viper.SetDefault("logging.file_output.max_age", 30)
	viper.SetDefault("logging.file_output.max_rotated_files", 10)
	viper.SetDefault("logging.file_output.compress", true)
	viper.SetDefault("logging.file_output.level", "info")

	// Web server
	viper.SetDefault("webserver.port", "8000")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.corsorigins", []string{})
	viper.SetDefault("webserver.readtimeout", 30*time.Second)
	viper.SetDefault("webserver.writetimeout", 30*time.Second)

	// Security
	viper.SetDefault("security.sessionsecret", "")
	viper.SetDefault("security.jwtsecret", "")
	viper.SetDefault("security.accesstokenttl", 5*time.Minute)
	viper.SetDefault("security.refreshtokenttl", 24*time.Hour)
	viper.SetDefault("security.sessionduration", 7*24*time.Hour)
	viper.SetDefault("security.basicauth", true)
	viper.SetDefault("security.loginratelimit", 10)
	viper.SetDefault("security.usercachettl", time.Minute)

	// Relational backend
	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "itemstore.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "itemstore")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.database", "itemstore")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.passwordfile", "")

	// Sheet backend
	viper.SetDefault("sheets.enabled", false)
	viper.SetDefault("sheets.backend", "google")
	viper.SetDefault("sheets.spreadsheetid", "")
	viper.SetDefault("sheets.worksheet", "")
	viper.SetDefault("sheets.credentialsfile", "credentials.json")
	viper.SetDefault("sheets.tokenfile", "")
	viper.SetDefault("sheets.scopes", []string{ScopeSpreadsheets, ScopeDrive})
	viper.SetDefault("sheets.timeout", 30*time.Second)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "127.0.0.1:8090")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.dsnfile", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)
}
