// Package conf loads, validates and persists the itemstore configuration.
package conf

import (
	"crypto/rand"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// MainSettings holds the identity of this instance.
type MainSettings struct {
	Name    string `yaml:"name" mapstructure:"name"`       // instance name, used in health output
	BaseDir string `yaml:"basedir" mapstructure:"basedir"` // directory for local state such as the OAuth2 token
}

// WebServerSettings configures the HTTP listener.
type WebServerSettings struct {
	Port         string        `yaml:"port" mapstructure:"port"`
	Debug        bool          `yaml:"debug" mapstructure:"debug"`
	CORSOrigins  []string      `yaml:"corsorigins" mapstructure:"corsorigins"`
	ReadTimeout  time.Duration `yaml:"readtimeout" mapstructure:"readtimeout"`
	WriteTimeout time.Duration `yaml:"writetimeout" mapstructure:"writetimeout"`
}

// SecuritySettings configures caller authentication.
type SecuritySettings struct {
	SessionSecret   string        `yaml:"sessionsecret" mapstructure:"sessionsecret"`
	JWTSecret       string        `yaml:"jwtsecret" mapstructure:"jwtsecret"`
	AccessTokenTTL  time.Duration `yaml:"accesstokenttl" mapstructure:"accesstokenttl"`
	RefreshTokenTTL time.Duration `yaml:"refreshtokenttl" mapstructure:"refreshtokenttl"`
	SessionDuration time.Duration `yaml:"sessionduration" mapstructure:"sessionduration"`
	BasicAuth       bool          `yaml:"basicauth" mapstructure:"basicauth"`       // accept HTTP Basic credentials on API routes
	LoginRateLimit  int           `yaml:"loginratelimit" mapstructure:"loginratelimit"` // login attempts per minute per client IP
	UserCacheTTL    time.Duration `yaml:"usercachettl" mapstructure:"usercachettl"`
}

// SQLiteSettings configures the embedded database.
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// MySQLSettings configures a MySQL server connection.
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	// PasswordFile, when set, is read instead of Password.
	PasswordFile string `yaml:"passwordfile" mapstructure:"passwordfile"`
	Database string `yaml:"database" mapstructure:"database"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
}

// OutputSettings selects the relational backend.
type OutputSettings struct {
	SQLite SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql" mapstructure:"mysql"`
}

// SheetsSettings configures the spreadsheet backend.
type SheetsSettings struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend         string        `yaml:"backend" mapstructure:"backend"` // "google" or "memory"
	SpreadsheetID   string        `yaml:"spreadsheetid" mapstructure:"spreadsheetid"`
	Worksheet       string        `yaml:"worksheet" mapstructure:"worksheet"` // empty selects the first worksheet
	CredentialsFile string        `yaml:"credentialsfile" mapstructure:"credentialsfile"`
	TokenFile       string        `yaml:"tokenfile" mapstructure:"tokenfile"` // empty means <basedir>/token.json
	Scopes          []string      `yaml:"scopes" mapstructure:"scopes"`
	Timeout         time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TelemetrySettings configures the Prometheus endpoint.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

// SentrySettings configures error reporting.
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	DSN         string  `yaml:"dsn" mapstructure:"dsn"`
	DSNFile     string  `yaml:"dsnfile" mapstructure:"dsnfile"`
	Environment string  `yaml:"environment" mapstructure:"environment"`
	SampleRate  float64 `yaml:"samplerate" mapstructure:"samplerate"`
}

// Settings is the root of the configuration tree.
type Settings struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`

	Main      MainSettings         `yaml:"main" mapstructure:"main"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	WebServer WebServerSettings    `yaml:"webserver" mapstructure:"webserver"`
	Security  SecuritySettings     `yaml:"security" mapstructure:"security"`
	Output    OutputSettings       `yaml:"output" mapstructure:"output"`
	Sheets    SheetsSettings       `yaml:"sheets" mapstructure:"sheets"`
	Telemetry TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`
	Sentry    SentrySettings       `yaml:"sentry" mapstructure:"sentry"`

	// Version and BuildDate are set at link time, never read from the file.
	Version   string `yaml:"-" mapstructure:"-"`
	BuildDate string `yaml:"-" mapstructure:"-"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration from the default config paths.
func Load() (*Settings, error) {
	return LoadFile("")
}

// LoadFile reads the configuration from configFile, or from the default config
// paths when configFile is empty. A missing file is created from the embedded
// defaults. Environment variables override file values.
func LoadFile(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := configureEnvironmentVariables(); err != nil {
		GetLogger().Warn("environment configuration has issues", logger.Error(err))
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ensureSecrets(settings); err != nil {
		return nil, err
	}

	// after ensureSecrets so that resolved values are never written back
	if err := resolveSecretRefs(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults and reads the configuration file.
func initViper(configFile string) error {
	viper.SetConfigType("yaml")
	setDefaultConfig()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
			return createDefaultConfig(configFile)
		}
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(filepath.Join(configPaths[0], "config.yaml"))
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded default config to configPath and reads it.
func createDefaultConfig(configPath string) error {
	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, defaultConfig, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// ensureSecrets generates the session and JWT secrets on first start and
// persists them so that issued tokens survive a restart.
func ensureSecrets(settings *Settings) error {
	generated := false
	if settings.Security.SessionSecret == "" {
		settings.Security.SessionSecret = GenerateRandomSecret()
		generated = true
	}
	if settings.Security.JWTSecret == "" {
		settings.Security.JWTSecret = GenerateRandomSecret()
		generated = true
	}
	if !generated {
		return nil
	}

	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		return nil
	}
	if err := SaveYAMLConfig(configPath, settings); err != nil {
		return fmt.Errorf("error saving generated secrets: %w", err)
	}
	GetLogger().Info("generated missing security secrets", logger.String("path", configPath))
	return nil
}

// resolveSecretRefs expands ${VAR} references and secret files in the
// credential fields.
func resolveSecretRefs(settings *Settings) error {
	var err error
	mysql := &settings.Output.MySQL
	if mysql.Password, err = secrets.Resolve(mysql.PasswordFile, mysql.Password); err != nil {
		return err
	}
	if settings.Sentry.DSN, err = secrets.Resolve(settings.Sentry.DSNFile, settings.Sentry.DSN); err != nil {
		return err
	}
	if settings.Security.SessionSecret, err = secrets.ExpandString(settings.Security.SessionSecret); err != nil {
		return err
	}
	if settings.Security.JWTSecret, err = secrets.ExpandString(settings.Security.JWTSecret); err != nil {
		return err
	}
	return nil
}

// GetSettings returns the settings loaded by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath through a temporary file and a
// rename. Comments in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error setting config file permissions: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// GenerateRandomSecret returns 32 random bytes as unpadded base64url (43 characters).
func GenerateRandomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		GetLogger().Error("failed to generate random secret", logger.Error(err))
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// TokenFilePath returns where the OAuth2 token for the sheet backend is stored.
func (s *Settings) TokenFilePath() string {
	if s.Sheets.TokenFile != "" {
		return GetBasePath(s.Sheets.TokenFile)
	}
	return filepath.Join(s.BaseDir(), "token.json")
}

// BaseDir returns the directory for local state. It defaults to the directory
// holding the loaded config file.
func (s *Settings) BaseDir() string {
	if s.Main.BaseDir != "" {
		return GetBasePath(s.Main.BaseDir)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return filepath.Dir(used)
	}
	return "."
}
