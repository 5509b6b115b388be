// env.go - environment variable overrides for itemstore
package conf

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "ITEMSTORE_DEBUG", validateEnvBool},
		{"main.basedir", "ITEMSTORE_BASEDIR", nil},

		// Web server
		{"webserver.port", "ITEMSTORE_PORT", validateEnvPort},
		{"webserver.debug", "ITEMSTORE_WEBSERVER_DEBUG", validateEnvBool},

		// Security
		{"security.sessionsecret", "ITEMSTORE_SESSION_SECRET", nil},
		{"security.jwtsecret", "ITEMSTORE_JWT_SECRET", nil},
		{"security.basicauth", "ITEMSTORE_BASIC_AUTH", validateEnvBool},

		// Relational backend
		{"output.sqlite.enabled", "ITEMSTORE_SQLITE_ENABLED", validateEnvBool},
		{"output.sqlite.path", "ITEMSTORE_SQLITE_PATH", nil},
		{"output.mysql.enabled", "ITEMSTORE_MYSQL_ENABLED", validateEnvBool},
		{"output.mysql.username", "ITEMSTORE_MYSQL_USERNAME", nil},
		{"output.mysql.password", "ITEMSTORE_MYSQL_PASSWORD", nil},
		{"output.mysql.database", "ITEMSTORE_MYSQL_DATABASE", nil},
		{"output.mysql.host", "ITEMSTORE_MYSQL_HOST", validateEnvHost},
		{"output.mysql.port", "ITEMSTORE_MYSQL_PORT", validateEnvPort},

		// Sheet backend
		{"sheets.enabled", "ITEMSTORE_SHEETS_ENABLED", validateEnvBool},
		{"sheets.backend", "ITEMSTORE_SHEETS_BACKEND", validateEnvSheetsBackend},
		{"sheets.spreadsheetid", "ITEMSTORE_SPREADSHEET_ID", nil},
		{"sheets.worksheet", "ITEMSTORE_WORKSHEET", nil},
		{"sheets.credentialsfile", "ITEMSTORE_CREDENTIALS_FILE", nil},
		{"sheets.tokenfile", "ITEMSTORE_TOKEN_FILE", nil},

		// Telemetry
		{"telemetry.enabled", "ITEMSTORE_TELEMETRY_ENABLED", validateEnvBool},
		{"sentry.enabled", "ITEMSTORE_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "ITEMSTORE_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("port must be a number, got '%s'", value)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvHost(value string) error {
	if strings.ContainsAny(value, " /") {
		return fmt.Errorf("host must be a hostname or IP address, got '%s'", value)
	}
	if strings.Contains(value, ":") && net.ParseIP(value) == nil {
		return fmt.Errorf("host must not include a port, got '%s'", value)
	}
	return nil
}

func validateEnvSheetsBackend(value string) error {
	switch value {
	case SheetsBackendGoogle, SheetsBackendMemory:
		return nil
	}
	return fmt.Errorf("sheets backend must be %q or %q, got '%s'", SheetsBackendGoogle, SheetsBackendMemory, value)
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
