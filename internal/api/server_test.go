package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/observability"
	"github.com/tphakala/itemstore/internal/security"
	"github.com/tphakala/itemstore/internal/sheets"
)

const serverSecret = "0123456789abcdef0123456789abcdef-server"

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.WebServer.Port = "0"
	settings.WebServer.Debug = true
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/server.db"
	settings.Security.JWTSecret = serverSecret
	settings.Security.SessionSecret = serverSecret
	settings.Security.LoginRateLimit = 10
	return settings
}

type serverEnv struct {
	server *Server
	sheet  *sheets.MemoryWorksheet
}

func setupServer(t *testing.T, settings *conf.Settings) *serverEnv {
	t.Helper()

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	hash, err := security.HashPassword("pass1234")
	require.NoError(t, err)
	for i := 1; i <= 2; i++ {
		require.NoError(t, store.CreateUser(context.Background(), &datastore.User{
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			PasswordHash: hash,
			IsActive:     true,
		}))
	}

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	ws := sheets.NewMemoryWorksheet("Items", []any{"id", "name", "description", "email"})
	server, err := New(settings,
		WithLogger(logger.NewDiscardLogger()),
		WithDataStore(store),
		WithSheets(sheets.NewRepository(ws, nil)),
		WithMetrics(m))
	require.NoError(t, err)

	return &serverEnv{server: server, sheet: ws}
}

func (env *serverEnv) do(method, target, body, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, req)
	return rec
}

func (env *serverEnv) login(t *testing.T, username string) string {
	t.Helper()
	rec := env.do(http.MethodPost, "/api/v2/auth/token",
		fmt.Sprintf(`{"username":%q,"password":"pass1234"}`, username), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var pair struct {
		Access string `json:"access"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.Access)
	return pair.Access
}

func TestServerItemsAreOwnerScoped(t *testing.T) {
	env := setupServer(t, testSettings(t))
	user1 := env.login(t, "user1")
	user2 := env.login(t, "user2")

	rec := env.do(http.MethodPost, "/api/v2/items", `{"name":"Laptop Dell XPS","description":"High-performance ultrabook"}`, user1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID    uint `json:"id"`
		Owner uint `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	rec = env.do(http.MethodGet, "/api/v2/items", "", user2)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	path := fmt.Sprintf("/api/v2/items/%d", created.ID)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, "", user2).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, path, "", user2).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, "", user1).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, "", user1).Code)
}

func TestServerSheetItems(t *testing.T) {
	env := setupServer(t, testSettings(t))
	user1 := env.login(t, "user1")

	rec := env.do(http.MethodPost, "/api/v2/sheet-items", `{"name":"Sony Headphones","description":"Noise-canceling wireless"}`, user1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rows := env.sheet.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "user1@example.com", rows[1][3])

	rec = env.do(http.MethodGet, "/api/v2/sheet-items", "", env.login(t, "user2"))
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestServerRequiresAuthentication(t *testing.T) {
	env := setupServer(t, testSettings(t))

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v2/items", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/v2/sheet-items", "", "not-a-token").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/health", "", "").Code)
}

func TestServerWithoutDatastore(t *testing.T) {
	settings := testSettings(t)
	settings.Output.SQLite.Enabled = false

	server, err := New(settings, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v2/auth/token", http.NoBody))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v2/items", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServerSecurityHeaders(t *testing.T) {
	env := setupServer(t, testSettings(t))

	rec := env.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestServerCORS(t *testing.T) {
	settings := testSettings(t)
	settings.WebServer.CORSOrigins = []string{"https://app.example.com"}
	env := setupServer(t, settings)

	req := httptest.NewRequest(http.MethodOptions, "/api/v2/items", http.NoBody)
	req.Header.Set(echo.HeaderOrigin, "https://app.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

func TestServerRunStopsOnCancel(t *testing.T) {
	env := setupServer(t, testSettings(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.server.Run(ctx) }()

	addr := env.server.Addr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestConfigFromSettings(t *testing.T) {
	settings := &conf.Settings{}
	settings.WebServer.Port = "9000"
	settings.WebServer.ReadTimeout = 5 * time.Second
	settings.Debug = true

	cfg := ConfigFromSettings(settings)
	assert.Equal(t, ":9000", cfg.Address())
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
	assert.True(t, cfg.Debug)
	require.NoError(t, cfg.Validate())

	cfg.Port = ""
	require.Error(t, cfg.Validate())

	_, err := New(nil)
	require.Error(t, err)
}

func TestServerAssignsRequestID(t *testing.T) {
	env := setupServer(t, testSettings(t))

	rec := env.do(http.MethodGet, "/health", "", "")
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}
