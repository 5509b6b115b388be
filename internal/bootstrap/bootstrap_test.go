package bootstrap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/sheets"
)

func TestOpenDatastore(t *testing.T) {
	settings := &conf.Settings{}

	store, err := OpenDatastore(settings)
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = RequireDatastore(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))

	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/bootstrap.db"
	store, err = RequireDatastore(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenSheets(t *testing.T) {
	ctx := context.Background()
	settings := &conf.Settings{}

	repo, err := OpenSheets(ctx, settings, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, repo)

	settings.Sheets.Enabled = true
	settings.Sheets.Backend = conf.SheetsBackendMemory
	repo, err = OpenSheets(ctx, settings, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, "Items", repo.Worksheet().Title())

	name := "Bose Speaker"
	rec, err := repo.Create(ctx, sheets.Input{Name: &name}, "user9@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ID)

	settings.Sheets.Backend = "csv"
	_, err = OpenSheets(ctx, settings, nil, nil)
	require.Error(t, err)
}

func TestOpenSheetsGoogleWithoutCredentials(t *testing.T) {
	settings := &conf.Settings{}
	settings.Sheets.Enabled = true
	settings.Sheets.Backend = conf.SheetsBackendGoogle
	settings.Sheets.SpreadsheetID = "sheet-id"
	settings.Sheets.CredentialsFile = t.TempDir() + "/missing.json"
	settings.Sheets.Scopes = []string{conf.ScopeSpreadsheets}

	_, err := OpenSheets(context.Background(), settings, nil, nil)
	require.Error(t, err)
}

func TestInitLoggingDebug(t *testing.T) {
	previous := logger.Global()
	t.Cleanup(func() { logger.SetGlobal(previous) })

	settings := &conf.Settings{Debug: true}
	settings.Logging.Console = &logger.ConsoleOutput{Enabled: true, Level: "info"}

	central, err := InitLogging(settings)
	require.NoError(t, err)
	assert.Same(t, central, logger.Global())
	assert.Equal(t, "info", settings.Logging.Console.Level, "settings are not modified")
}

func TestNewHTTPClientUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Header.Get("User-Agent"))
	}))
	t.Cleanup(server.Close)

	settings := &conf.Settings{Version: "1.4.0"}
	client := NewHTTPClient(settings)
	t.Cleanup(client.Close)

	resp, err := client.StandardClient().Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "itemstore/1.4.0", string(body))
}
