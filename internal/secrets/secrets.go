// Package secrets resolves credential settings that reference the environment
// (${VAR}, ${VAR:-fallback}) or a mounted secret file such as /run/secrets/x.
// Secret values are never logged.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

const (
	// maxSecretFileSize caps secret file reads; secrets are tokens and passwords.
	maxSecretFileSize = 64 * 1024

	componentSecrets = "secrets"
)

// GetLogger returns the secrets package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module(componentSecrets)
}

// ExpandString replaces ${VAR} and ${VAR:-fallback} references with their
// environment values. A reference without a fallback to an unset variable is
// an error naming the variable.
func ExpandString(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if value := os.Getenv(name); value != "" {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missing, ", ")).
			Component(componentSecrets).
			Category(errors.CategoryConfiguration).
			Context("variables", strings.Join(missing, ",")).
			Build()
	}
	return expanded, nil
}

// ReadFile returns the contents of a secret file with trailing newlines
// removed. Files readable by group or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fileError(errors.NewStd("secret file path is empty"), path, "validate")
	}
	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", fileError(err, cleanPath, "stat")
	}
	if !info.Mode().IsRegular() {
		return "", fileError(errors.NewStd("not a regular file"), cleanPath, "stat")
	}
	if info.Size() > maxSecretFileSize {
		return "", fileError(errors.NewStd("secret file too large"), cleanPath, "stat")
	}

	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		GetLogger().Warn("secret file is readable by group or others",
			logger.String("path", cleanPath),
			logger.String("mode", perm.String()))
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", fileError(err, cleanPath, "read")
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError(errors.NewStd("secret file is empty"), cleanPath, "read")
	}
	return secret, nil
}

// Resolve picks the secret from filePath when set, otherwise expands value.
// Both empty resolves to "".
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	return ExpandString(value)
}

// MustResolve is Resolve for secrets that cannot be empty.
func MustResolve(field, filePath, value string) (string, error) {
	secret, err := Resolve(filePath, value)
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", errors.Newf("%s is required but not provided", field).
			Component(componentSecrets).
			Category(errors.CategoryConfiguration).
			Context("field", field).
			Build()
	}
	return secret, nil
}

func fileError(err error, path, operation string) error {
	category := errors.CategoryFileIO
	if os.IsNotExist(err) {
		category = errors.CategoryNotFound
	}
	return errors.New(err).
		Component(componentSecrets).
		Category(category).
		Context("path", path).
		Context("operation", operation).
		Build()
}
