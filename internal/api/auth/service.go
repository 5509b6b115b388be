// internal/api/auth/service.go
package auth

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/security"
	"github.com/tphakala/itemstore/internal/sheets"
)

// GetLogger returns the auth package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("auth")
}

// Sentinel errors for authentication failures.
var (
	ErrInvalidCredentials = errors.NewStd("invalid credentials")
	ErrInvalidToken       = security.ErrInvalidToken
	ErrSessionNotFound    = errors.NewStd("session not found or expired")
	ErrInactiveUser       = errors.NewStd("user account is disabled")
	ErrBasicAuthDisabled  = errors.NewStd("basic authentication is disabled")
	ErrTooManyAttempts    = errors.NewStd("too many login attempts")
)

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID    uint
	Username  string
	Email     string
	Superuser bool
	Method    security.AuthMethod
}

// CallerFromUser builds a caller from a stored account.
func CallerFromUser(user *datastore.User, method security.AuthMethod) Caller {
	return Caller{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Superuser: user.IsSuperuser,
		Method:    method,
	}
}

// Scope is the relational queryset of the caller.
func (c Caller) Scope() datastore.Scope {
	return datastore.Scope{UserID: c.UserID, Superuser: c.Superuser}
}

// SheetFilter restricts sheet records to the caller's email unless the caller is a superuser.
func (c Caller) SheetFilter() sheets.OwnerFilter {
	if c.Superuser {
		return sheets.AnyOwner
	}
	return sheets.OwnedBy(c.Email)
}

// Service defines the authentication operations used by the middleware and the
// auth endpoints.
type Service interface {
	// AuthenticateToken resolves a bearer access token to its user.
	// Returns ErrInvalidToken for any token that fails verification.
	AuthenticateToken(ctx context.Context, token string) (*datastore.User, error)

	// AuthenticateSession resolves the session cookie of the request.
	// Returns ErrSessionNotFound when there is no valid session.
	AuthenticateSession(c echo.Context) (*datastore.User, error)

	// AuthenticateBasic checks a username and password. Attempts are throttled per client IP.
	AuthenticateBasic(c echo.Context, username, password string) (*datastore.User, error)

	// BasicAuthEnabled reports whether HTTP Basic credentials are accepted on API routes.
	BasicAuthEnabled() bool

	// IssueTokens signs an access and refresh token pair for a user.
	IssueTokens(user *datastore.User) (security.TokenPair, error)

	// RefreshAccess exchanges a refresh token for a new access token.
	RefreshAccess(ctx context.Context, refreshToken string) (string, int, error)

	// EstablishSession stores the user in the session cookie.
	EstablishSession(c echo.Context, user *datastore.User) error

	// Logout clears the session cookie.
	Logout(c echo.Context) error
}
