package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/itemstore/internal/api/auth"
	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/security"
)

// MockDataStore implements datastore.Interface for handler tests.
type MockDataStore struct {
	mock.Mock
}

func (m *MockDataStore) Open() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDataStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDataStore) ListItems(ctx context.Context, scope datastore.Scope) ([]datastore.Item, error) {
	args := m.Called(ctx, scope)
	items, _ := args.Get(0).([]datastore.Item)
	return items, args.Error(1)
}

func (m *MockDataStore) GetItem(ctx context.Context, scope datastore.Scope, id uint) (*datastore.Item, error) {
	args := m.Called(ctx, scope, id)
	item, _ := args.Get(0).(*datastore.Item)
	return item, args.Error(1)
}

func (m *MockDataStore) CreateItem(ctx context.Context, scope datastore.Scope, item *datastore.Item) error {
	args := m.Called(ctx, scope, item)
	return args.Error(0)
}

func (m *MockDataStore) UpdateItem(ctx context.Context, scope datastore.Scope, id uint, update datastore.ItemUpdate) (*datastore.Item, error) {
	args := m.Called(ctx, scope, id, update)
	item, _ := args.Get(0).(*datastore.Item)
	return item, args.Error(1)
}

func (m *MockDataStore) DeleteItem(ctx context.Context, scope datastore.Scope, id uint) error {
	args := m.Called(ctx, scope, id)
	return args.Error(0)
}

func (m *MockDataStore) CreateUser(ctx context.Context, user *datastore.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockDataStore) GetUserByID(ctx context.Context, id uint) (*datastore.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*datastore.User)
	return user, args.Error(1)
}

func (m *MockDataStore) GetUserByUsername(ctx context.Context, username string) (*datastore.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*datastore.User)
	return user, args.Error(1)
}

func (m *MockDataStore) CountUsers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	count, _ := args.Get(0).(int64)
	return count, args.Error(1)
}

var _ datastore.Interface = (*MockDataStore)(nil)

// MockAuthService implements auth.Service for the auth endpoint tests.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) AuthenticateToken(ctx context.Context, token string) (*datastore.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*datastore.User)
	return user, args.Error(1)
}

func (m *MockAuthService) AuthenticateSession(c echo.Context) (*datastore.User, error) {
	args := m.Called(c)
	user, _ := args.Get(0).(*datastore.User)
	return user, args.Error(1)
}

func (m *MockAuthService) AuthenticateBasic(c echo.Context, username, password string) (*datastore.User, error) {
	args := m.Called(c, username, password)
	user, _ := args.Get(0).(*datastore.User)
	return user, args.Error(1)
}

func (m *MockAuthService) BasicAuthEnabled() bool {
	return m.Called().Bool(0)
}

func (m *MockAuthService) IssueTokens(user *datastore.User) (security.TokenPair, error) {
	args := m.Called(user)
	pair, _ := args.Get(0).(security.TokenPair)
	return pair, args.Error(1)
}

func (m *MockAuthService) RefreshAccess(ctx context.Context, refreshToken string) (string, int, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Int(1), args.Error(2)
}

func (m *MockAuthService) EstablishSession(c echo.Context, user *datastore.User) error {
	args := m.Called(c, user)
	return args.Error(0)
}

func (m *MockAuthService) Logout(c echo.Context) error {
	args := m.Called(c)
	return args.Error(0)
}

var _ auth.Service = (*MockAuthService)(nil)

// Callers shared by the handler tests.
var (
	aliceCaller = auth.Caller{UserID: 1, Username: "alice", Email: "alice@example.com", Method: security.AuthMethodBearer}
	bobCaller   = auth.Caller{UserID: 2, Username: "bob", Email: "bob@example.com", Method: security.AuthMethodBearer}
	rootCaller  = auth.Caller{UserID: 9, Username: "root", Email: "root@example.com", Superuser: true, Method: security.AuthMethodBasic}
)

// setupTestEnvironment returns a controller without registered routes; tests
// call handlers directly.
func setupTestEnvironment(t *testing.T, opts ...Option) (*echo.Echo, *MockDataStore, *Controller) {
	t.Helper()

	e := echo.New()
	mockDS := new(MockDataStore)
	settings := &conf.Settings{
		WebServer: conf.WebServerSettings{
			Debug: true,
		},
	}

	opts = append([]Option{WithLogger(logger.NewDiscardLogger())}, opts...)
	controller, err := NewWithOptions(e, mockDS, settings, false, opts...)
	require.NoError(t, err, "Failed to create test API controller")

	return e, mockDS, controller
}

// newContext builds a request context. A non-empty body is sent as JSON; a
// non-nil caller is stored as if the auth middleware had accepted it.
func newContext(e *echo.Echo, method, path, body string, caller *auth.Caller) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if caller != nil {
		c.Set(auth.CtxKeyCaller, *caller)
		c.Set(auth.CtxKeyUsername, caller.Username)
	}
	return c, rec
}
