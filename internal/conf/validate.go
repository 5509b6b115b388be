package conf

import (
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
)

// Sheet backend identifiers.
const (
	SheetsBackendGoogle = "google"
	SheetsBackendMemory = "memory"
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateLoggingSettings,
		validateWebServerSettings,
		validateSecuritySettings,
		validateOutputSettings,
		validateSheetsSettings,
		validateTelemetrySettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLoggingSettings(settings *Settings) error {
	var errs []error
	check := func(field, level string) {
		if level != "" && !slices.Contains(validLogLevels, strings.ToLower(level)) {
			errs = append(errs, fmt.Errorf("logging: invalid %s level %q", field, level))
		}
	}

	check("default", settings.Logging.DefaultLevel)
	if settings.Logging.Console != nil {
		check("console", settings.Logging.Console.Level)
	}
	if settings.Logging.FileOutput != nil {
		check("file", settings.Logging.FileOutput.Level)
	}
	for module, level := range settings.Logging.ModuleLevels {
		check("module "+module, level)
	}
	return errors.Join(errs...)
}

func validateWebServerSettings(settings *Settings) error {
	port, err := strconv.Atoi(settings.WebServer.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver: port must be between 1 and 65535, got %q", settings.WebServer.Port)
	}
	return nil
}

func validateSecuritySettings(settings *Settings) error {
	s := &settings.Security
	var errs []error
	if s.AccessTokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("security: accesstokenttl must be positive"))
	}
	if s.RefreshTokenTTL < s.AccessTokenTTL {
		errs = append(errs, fmt.Errorf("security: refreshtokenttl must not be shorter than accesstokenttl"))
	}
	if s.SessionDuration <= 0 {
		errs = append(errs, fmt.Errorf("security: sessionduration must be positive"))
	}
	if s.LoginRateLimit < 0 {
		errs = append(errs, fmt.Errorf("security: loginratelimit must not be negative"))
	}
	return errors.Join(errs...)
}

func validateOutputSettings(settings *Settings) error {
	out := &settings.Output
	switch {
	case out.SQLite.Enabled && out.MySQL.Enabled:
		return fmt.Errorf("output: enable either sqlite or mysql, not both")
	case out.SQLite.Enabled:
		if out.SQLite.Path == "" {
			return fmt.Errorf("output: sqlite path is required")
		}
	case out.MySQL.Enabled:
		var missing []string
		for name, value := range map[string]string{
			"username": out.MySQL.Username,
			"database": out.MySQL.Database,
			"host":     out.MySQL.Host,
			"port":     out.MySQL.Port,
		} {
			if value == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			return fmt.Errorf("output: mysql settings missing: %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("output: no database backend enabled")
	}
	return nil
}

func validateSheetsSettings(settings *Settings) error {
	s := &settings.Sheets
	if !s.Enabled {
		return nil
	}
	switch s.Backend {
	case SheetsBackendMemory:
		return nil
	case SheetsBackendGoogle:
		var errs []error
		if s.SpreadsheetID == "" {
			errs = append(errs, fmt.Errorf("sheets: spreadsheetid is required"))
		}
		if s.CredentialsFile == "" {
			errs = append(errs, fmt.Errorf("sheets: credentialsfile is required"))
		}
		if len(s.Scopes) == 0 {
			errs = append(errs, fmt.Errorf("sheets: at least one scope is required"))
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("sheets: unknown backend %q", s.Backend)
	}
}

func validateTelemetrySettings(settings *Settings) error {
	var errs []error
	if settings.Telemetry.Enabled {
		if _, _, err := net.SplitHostPort(settings.Telemetry.Listen); err != nil {
			errs = append(errs, fmt.Errorf("telemetry: invalid listen address %q: %w", settings.Telemetry.Listen, err))
		}
	}
	if settings.Sentry.Enabled {
		if settings.Sentry.DSN == "" {
			errs = append(errs, fmt.Errorf("sentry: dsn is required when enabled"))
		}
		if settings.Sentry.SampleRate < 0 || settings.Sentry.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("sentry: samplerate must be between 0 and 1"))
		}
	}
	return errors.Join(errs...)
}
