// Package bootstrap opens the stores and services named in the settings. The
// commands share it so that serve and the seed scripts see the same backends.
package bootstrap

import (
	"context"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/credentials"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/httpclient"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/observability/metrics"
	"github.com/tphakala/itemstore/internal/sheets"
)

// defaultWorksheetTitle names the in-memory worksheet when none is configured.
const defaultWorksheetTitle = "Items"

// GetLogger returns the bootstrap package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("bootstrap")
}

// InitLogging installs the central logger described by the settings. The
// debug flag lowers the default level.
func InitLogging(settings *conf.Settings) (*logger.CentralLogger, error) {
	cfg := settings.Logging
	if settings.Debug {
		cfg.DefaultLevel = string(logger.LogLevelDebug)
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = cfg.DefaultLevel
			cfg.Console = &console
		}
	}

	central, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return nil, err
	}
	logger.SetGlobal(central)
	return central, nil
}

// OpenDatastore opens the enabled relational backend. It returns nil without
// an error when no backend is enabled.
func OpenDatastore(settings *conf.Settings) (datastore.Interface, error) {
	store := datastore.New(settings)
	if store == nil {
		GetLogger().Info("no relational backend enabled")
		return nil, nil
	}
	if err := store.Open(); err != nil {
		return nil, err
	}
	return store, nil
}

// RequireDatastore is OpenDatastore for commands that cannot run without one.
func RequireDatastore(settings *conf.Settings) (datastore.Interface, error) {
	store, err := OpenDatastore(settings)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.Newf("no database is enabled; set output.sqlite.enabled or output.mysql.enabled").
			Component("bootstrap").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return store, nil
}

// NewCredentialProvider builds the OAuth2 provider for the sheet backend. A
// nil consent makes the provider fail instead of prompting.
func NewCredentialProvider(settings *conf.Settings, consent credentials.Consent) (*credentials.Provider, error) {
	cfg, err := credentials.LoadConfig(conf.GetBasePath(settings.Sheets.CredentialsFile), settings.Sheets.Scopes...)
	if err != nil {
		return nil, err
	}
	return credentials.NewProvider(cfg, credentials.TokenFile{Path: settings.TokenFilePath()}, consent), nil
}

// NewHTTPClient returns the outbound client for Google calls, tagged with the
// running version.
func NewHTTPClient(settings *conf.Settings) *httpclient.Client {
	cfg := httpclient.DefaultConfig()
	if settings.Version != "" {
		cfg.UserAgent = "itemstore/" + settings.Version
	}
	if settings.Sheets.Timeout > 0 {
		cfg.DefaultTimeout = settings.Sheets.Timeout
	}
	return httpclient.New(&cfg)
}

// OpenSheets returns the sheet repository, or nil when the sheet backend is
// disabled. ctx must outlive the repository because token refreshes use it.
func OpenSheets(ctx context.Context, settings *conf.Settings, recorder metrics.Recorder, consent credentials.Consent) (*sheets.Repository, error) {
	if !settings.Sheets.Enabled {
		GetLogger().Info("sheet backend disabled")
		return nil, nil
	}

	log := GetLogger().With(logger.String("backend", settings.Sheets.Backend))

	var ws sheets.Worksheet
	switch settings.Sheets.Backend {
	case conf.SheetsBackendMemory:
		title := settings.Sheets.Worksheet
		if title == "" {
			title = defaultWorksheetTitle
		}
		ws = sheets.NewMemoryWorksheet(title)

	case conf.SheetsBackendGoogle:
		provider, err := NewCredentialProvider(settings, consent)
		if err != nil {
			return nil, err
		}
		ctx = NewHTTPClient(settings).OAuth2Context(ctx)
		client, err := provider.Client(ctx)
		if err != nil {
			return nil, err
		}

		openCtx := ctx
		if settings.Sheets.Timeout > 0 {
			var cancel context.CancelFunc
			openCtx, cancel = context.WithTimeout(ctx, settings.Sheets.Timeout)
			defer cancel()
		}
		google, err := sheets.OpenGoogleWorksheet(openCtx, client, settings.Sheets.SpreadsheetID, settings.Sheets.Worksheet)
		if err != nil {
			return nil, err
		}
		ws = google

	default:
		return nil, errors.Newf("unknown sheets backend %q", settings.Sheets.Backend).
			Component("bootstrap").
			Category(errors.CategoryConfiguration).
			Build()
	}

	log.Info("sheet backend ready", logger.String("worksheet", ws.Title()))
	return sheets.NewRepository(sheets.NewInstrumentedWorksheet(ws, recorder), logger.Global().Module("sheets")), nil
}
