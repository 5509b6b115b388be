// internal/api/auth/middleware.go
package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/observability/metrics"
	"github.com/tphakala/itemstore/internal/security"
)

// authHeaderParts is the expected number of parts when splitting the Authorization header.
const authHeaderParts = 2

// Context keys for authentication values stored in echo.Context.
// They are prefixed with "auth:" to avoid collisions with other packages.
const (
	// CtxKeyIsAuthenticated indicates whether the request is authenticated.
	CtxKeyIsAuthenticated = "auth:isAuthenticated"
	// CtxKeyAuthMethod holds the security.AuthMethod that succeeded.
	CtxKeyAuthMethod = "auth:authMethod"
	// CtxKeyUsername contains the authenticated user's username.
	CtxKeyUsername = "auth:username"
	// CtxKeyCaller holds the resolved Caller.
	CtxKeyCaller = "auth:caller"
)

// Middleware provides authentication middleware with the Service
type Middleware struct {
	AuthService Service
	Metrics     *metrics.HTTPMetrics
}

// NewMiddleware creates a new auth middleware. m may be nil.
func NewMiddleware(service Service, m *metrics.HTTPMetrics) *Middleware {
	return &Middleware{
		AuthService: service,
		Metrics:     m,
	}
}

// Authenticate resolves the caller from the Authorization header or the
// session cookie and rejects the request with 401 when neither succeeds.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if result := m.validateAuthService(c); result.handled {
			return result.err
		}

		// Header credentials win over the session cookie
		if result := m.tryHeaderAuth(c); result.handled {
			if result.err != nil {
				return result.err
			}
			return next(c)
		}

		if m.trySessionAuth(c) {
			return next(c)
		}

		return m.handleUnauthenticated(c)
	}
}

// authResult represents the result of an authentication attempt.
type authResult struct {
	handled bool  // an Authorization header was present
	err     error // response to return instead of calling next
}

// validateAuthService answers 500 when no AuthService is configured. A
// handled result ends the request even when writing the response succeeded.
func (m *Middleware) validateAuthService(c echo.Context) authResult {
	if m.AuthService != nil {
		return authResult{handled: false}
	}
	m.log().Error("authentication middleware called with nil AuthService",
		logger.String("path", c.Request().URL.Path),
		logger.String("ip", c.RealIP()))
	return authResult{
		handled: true,
		err: c.JSON(http.StatusInternalServerError, errorBody(http.StatusInternalServerError,
			"Internal configuration error: authentication service not available")),
	}
}

// tryHeaderAuth handles "Bearer <jwt>" and, when enabled, "Basic <credentials>".
func (m *Middleware) tryHeaderAuth(c echo.Context) authResult {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return authResult{handled: false}
	}

	parts := strings.SplitN(authHeader, " ", authHeaderParts)
	if len(parts) != authHeaderParts {
		return m.reject(c, security.AuthMethodNone, "Invalid Authorization header")
	}

	switch {
	case strings.EqualFold(parts[0], "bearer"):
		return m.tryTokenAuth(c, strings.TrimSpace(parts[1]))
	case strings.EqualFold(parts[0], "basic") && m.AuthService.BasicAuthEnabled():
		return m.tryBasicAuth(c)
	default:
		return m.reject(c, security.AuthMethodNone, "Invalid Authorization header")
	}
}

// tryTokenAuth authenticates a JWT access token.
func (m *Middleware) tryTokenAuth(c echo.Context, token string) authResult {
	user, err := m.AuthService.AuthenticateToken(c.Request().Context(), token)
	if err != nil {
		m.log().Warn("token validation failed",
			logger.String("path", c.Request().URL.Path),
			logger.String("ip", c.RealIP()),
			logger.Error(err))
		c.Response().Header().Set(echo.HeaderWWWAuthenticate,
			`Bearer realm="api", error="invalid_token", error_description="Invalid or expired token"`)
		return m.reject(c, security.AuthMethodBearer, "Invalid or expired token")
	}

	m.accept(c, user, security.AuthMethodBearer)
	return authResult{handled: true}
}

// tryBasicAuth authenticates HTTP Basic credentials.
func (m *Middleware) tryBasicAuth(c echo.Context) authResult {
	username, password, ok := c.Request().BasicAuth()
	if !ok {
		return m.reject(c, security.AuthMethodBasic, "Invalid Authorization header")
	}

	user, err := m.AuthService.AuthenticateBasic(c, username, password)
	switch {
	case errors.Is(err, ErrTooManyAttempts):
		m.recordAuth(security.AuthMethodBasic, metrics.StatusError)
		return authResult{
			handled: true,
			err: c.JSON(http.StatusTooManyRequests, errorBody(http.StatusTooManyRequests,
				"Too many login attempts, try again later")),
		}
	case err != nil:
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="api"`)
		return m.reject(c, security.AuthMethodBasic, "Invalid credentials")
	}

	m.accept(c, user, security.AuthMethodBasic)
	return authResult{handled: true}
}

// trySessionAuth authenticates the session cookie set by the login endpoint.
func (m *Middleware) trySessionAuth(c echo.Context) bool {
	user, err := m.AuthService.AuthenticateSession(c)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			m.log().Debug("session authentication failed",
				logger.String("path", c.Request().URL.Path),
				logger.Error(err))
		}
		return false
	}

	m.accept(c, user, security.AuthMethodSession)
	return true
}

// accept stores the caller in the request context.
func (m *Middleware) accept(c echo.Context, user *datastore.User, method security.AuthMethod) {
	caller := CallerFromUser(user, method)
	c.Set(CtxKeyIsAuthenticated, true)
	c.Set(CtxKeyAuthMethod, method)
	c.Set(CtxKeyUsername, caller.Username)
	c.Set(CtxKeyCaller, caller)
	m.recordAuth(method, metrics.StatusSuccess)

	m.log().Debug("request authenticated",
		logger.String("path", c.Request().URL.Path),
		logger.String("method", method.String()),
		logger.Uint("user_id", caller.UserID))
}

// reject writes a 401 for a failed header credential.
func (m *Middleware) reject(c echo.Context, method security.AuthMethod, message string) authResult {
	m.recordAuth(method, metrics.StatusError)
	return authResult{
		handled: true,
		err:     c.JSON(http.StatusUnauthorized, errorBody(http.StatusUnauthorized, message)),
	}
}

// handleUnauthenticated returns a JSON 401 for requests without credentials.
func (m *Middleware) handleUnauthenticated(c echo.Context) error {
	m.log().Info("authentication required but not provided",
		logger.String("path", c.Request().URL.Path),
		logger.String("ip", c.RealIP()))

	return c.JSON(http.StatusUnauthorized, errorBody(http.StatusUnauthorized, "Authentication required"))
}

func (m *Middleware) recordAuth(method security.AuthMethod, status string) {
	if m.Metrics != nil {
		m.Metrics.RecordAuthOperation(method.String(), status)
	}
}

// log returns the auth package logger.
func (m *Middleware) log() logger.Logger {
	return GetLogger()
}

// CallerFrom returns the caller stored by Authenticate.
func CallerFrom(c echo.Context) (Caller, bool) {
	caller, ok := c.Get(CtxKeyCaller).(Caller)
	return caller, ok
}

// IsAuthenticated reports whether Authenticate accepted the request.
func IsAuthenticated(c echo.Context) bool {
	ok, _ := c.Get(CtxKeyIsAuthenticated).(bool)
	return ok
}

func errorBody(code int, message string) map[string]any {
	return map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
}
