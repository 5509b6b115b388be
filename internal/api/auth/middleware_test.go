package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/observability/metrics"
	"github.com/tphakala/itemstore/internal/security"
)

const testSecret = "0123456789abcdef0123456789abcdef-auth"

type testEnv struct {
	store   *datastore.SQLiteStore
	adapter *SecurityAdapter
	mw      *Middleware
	users   map[string]*datastore.User
}

func setupAuth(t *testing.T, basicAuth bool) *testEnv {
	t.Helper()

	settings := &conf.Settings{}
	settings.WebServer.Debug = true
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/auth.db"
	settings.Security.JWTSecret = testSecret
	settings.Security.SessionSecret = testSecret
	settings.Security.BasicAuth = basicAuth
	settings.Security.LoginRateLimit = 3

	store, ok := datastore.New(settings).(*datastore.SQLiteStore)
	require.True(t, ok)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	hash, err := security.HashPassword("pass1234")
	require.NoError(t, err)

	users := map[string]*datastore.User{}
	for _, u := range []struct {
		name      string
		superuser bool
		active    bool
	}{
		{"alice", false, true},
		{"root", true, true},
		{"carol", false, false},
	} {
		user := &datastore.User{
			Username:     u.name,
			Email:        u.name + "@example.com",
			PasswordHash: hash,
			IsSuperuser:  u.superuser,
			IsActive:     u.active,
		}
		require.NoError(t, store.CreateUser(context.Background(), user))
		users[u.name] = user
	}

	adapter, err := NewSecurityAdapter(settings, store)
	require.NoError(t, err)

	httpMetrics, err := metrics.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	return &testEnv{
		store:   store,
		adapter: adapter,
		mw:      NewMiddleware(adapter, httpMetrics),
		users:   users,
	}
}

// serve runs the middleware around a handler that echoes the resolved caller.
func (env *testEnv) serve(req *http.Request) (*httptest.ResponseRecorder, *Caller) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *Caller
	handler := env.mw.Authenticate(func(c echo.Context) error {
		if caller, ok := CallerFrom(c); ok {
			seen = &caller
		}
		return c.NoContent(http.StatusOK)
	})
	_ = handler(c)
	return rec, seen
}

func newRequest() *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v2/items", http.NoBody)
	req.RemoteAddr = "192.0.2.10:4321"
	return req
}

func TestAuthenticateWithoutCredentials(t *testing.T) {
	t.Parallel()
	env := setupAuth(t, false)

	rec, caller := env.serve(newRequest())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, caller)
	assert.Contains(t, rec.Body.String(), "Authentication required")
}

func TestAuthenticateBearer(t *testing.T) {
	t.Parallel()
	env := setupAuth(t, false)

	pair, err := env.adapter.IssueTokens(env.users["alice"])
	require.NoError(t, err)

	req := newRequest()
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+pair.Access)
	rec, caller := env.serve(req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, caller)
	assert.Equal(t, env.users["alice"].ID, caller.UserID)
	assert.Equal(t, "alice@example.com", caller.Email)
	assert.False(t, caller.Superuser)
	assert.Equal(t, security.AuthMethodBearer, caller.Method)
	assert.Equal(t, datastore.Scope{UserID: caller.UserID}, caller.Scope())
}

func TestAuthenticateBearerRejects(t *testing.T) {
	t.Parallel()
	env := setupAuth(t, false)

	refreshOnly, err := env.adapter.IssueTokens(env.users["alice"])
	require.NoError(t, err)
	inactive, err := env.adapter.IssueTokens(env.users["carol"])
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"garbage token", "Bearer not-a-jwt"},
		{"refresh token used as access", "Bearer " + refreshOnly.Refresh},
		{"inactive account", "Bearer " + inactive.Access},
		{"unknown scheme", "Digest abc"},
		{"missing credentials part", "Bearer"},
		{"basic while disabled", "Basic YWxpY2U6cGFzczEyMzQ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest()
			req.Header.Set(echo.HeaderAuthorization, tt.header)
			rec, caller := env.serve(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, caller)
		})
	}
}

func TestAuthenticateBasic(t *testing.T) {
	t.Parallel()
	env := setupAuth(t, true)

	req := newRequest()
	req.SetBasicAuth("root", "pass1234")
	rec, caller := env.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, caller)
	assert.True(t, caller.Superuser)
	assert.Equal(t, security.AuthMethodBasic, caller.Method)

	req = newRequest()
	req.SetBasicAuth("root", "wrong")
	rec, _ = env.serve(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, `Basic realm="api"`, rec.Header().Get(echo.HeaderWWWAuthenticate))

	req = newRequest()
	req.SetBasicAuth("nobody", "pass1234")
	rec, _ = env.serve(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateBasicThrottled(t *testing.T) {
	t.Parallel()
	env := setupAuth(t, true)

	// the limit is three attempts per minute per IP
	for range 3 {
		req := newRequest()
		req.SetBasicAuth("alice", "wrong")
		rec, _ := env.serve(req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	req := newRequest()
	req.SetBasicAuth("alice", "pass1234")
	rec, _ := env.serve(req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := newRequest()
	other.RemoteAddr = "192.0.2.99:4321"
	other.SetBasicAuth("alice", "pass1234")
	rec, _ = env.serve(other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticateSession(t *testing.T) {
	t.Parallel()
	env := setupAuth(t, false)

	e := echo.New()
	loginRec := httptest.NewRecorder()
	loginCtx := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v2/auth/login", http.NoBody), loginRec)
	require.NoError(t, env.adapter.EstablishSession(loginCtx, env.users["alice"]))
	cookies := loginRec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := newRequest()
	req.AddCookie(cookies[0])
	rec, caller := env.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, caller)
	assert.Equal(t, "alice", caller.Username)
	assert.Equal(t, security.AuthMethodSession, caller.Method)

	// logout expires the cookie
	logoutReq := httptest.NewRequest(http.MethodPost, "/api/v2/auth/logout", http.NoBody)
	logoutReq.AddCookie(cookies[0])
	logoutRec := httptest.NewRecorder()
	require.NoError(t, env.adapter.Logout(e.NewContext(logoutReq, logoutRec)))
	cleared := logoutRec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestRefreshAccess(t *testing.T) {
	t.Parallel()
	env := setupAuth(t, false)

	pair, err := env.adapter.IssueTokens(env.users["alice"])
	require.NoError(t, err)

	access, expiresIn, err := env.adapter.RefreshAccess(context.Background(), pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, int(security.DefaultAccessTokenTTL.Seconds()), expiresIn)

	user, err := env.adapter.AuthenticateToken(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, _, err = env.adapter.RefreshAccess(context.Background(), pair.Access)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCallerSheetFilter(t *testing.T) {
	t.Parallel()

	assert.False(t, Caller{Superuser: true, Email: "a@x"}.SheetFilter().Scoped())
	assert.True(t, Caller{Email: "a@x"}.SheetFilter().Scoped())
}

func TestNilAuthService(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{name: "no credentials", header: ""},
		{name: "bearer header", header: "Bearer some.jwt.value"},
		{name: "basic header", header: "Basic dXNlcjE6cGFzczEyMzQ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mw := NewMiddleware(nil, nil)
			req := newRequest()
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			called := false
			require.NotPanics(t, func() {
				require.NoError(t, mw.Authenticate(func(echo.Context) error {
					called = true
					return nil
				})(c))
			})
			assert.False(t, called)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
		})
	}
}

func TestNewSecurityAdapterRequiresStore(t *testing.T) {
	t.Parallel()

	_, err := NewSecurityAdapter(&conf.Settings{}, nil)
	require.Error(t, err)
}
