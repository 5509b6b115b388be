// Package telemetry wires opt-in error reporting to Sentry.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

// flushTimeout bounds how long Flush waits for queued events.
const flushTimeout = 2 * time.Second

// GetLogger returns the telemetry package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry initializes the Sentry SDK and registers the error reporter. It
// does nothing unless Sentry is enabled and a DSN is configured.
func InitSentry(settings *conf.Settings) error {
	return initSentry(settings, nil)
}

// initSentry lets tests swap the transport.
func initSentry(settings *conf.Settings, transport sentry.Transport) error {
	if !settings.Sentry.Enabled {
		GetLogger().Debug("sentry telemetry is disabled")
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sampleRate := settings.Sentry.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}
	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       sampleRate,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          fmt.Sprintf("itemstore@%s", settings.Version),
		Transport:        transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	GetLogger().Info("sentry telemetry enabled",
		logger.String("environment", environment),
		logger.Float64("sample_rate", sampleRate))
	return nil
}

// applyPrivacyFilters strips host and user identity from an event before it
// leaves the process.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}

// Flush waits for queued events to be delivered.
func Flush() {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	if !sentry.Flush(flushTimeout) {
		GetLogger().Warn("sentry flush timed out", logger.Duration("timeout", flushTimeout))
	}
}
