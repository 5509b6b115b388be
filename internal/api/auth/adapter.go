// internal/api/auth/adapter.go
package auth

import (
	"context"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/security"
)

// dummyHash is compared against when the username does not exist.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := security.HashPassword("itemstore-unknown-user")
	return hash
})

// SecurityAdapter implements Service on top of the security primitives and the user table.
type SecurityAdapter struct {
	store     datastore.Interface
	tokens    *security.TokenIssuer
	sessions  *security.SessionManager
	users     *security.UserCache
	limiter   *security.LoginLimiter
	basicAuth bool
}

// NewSecurityAdapter builds the adapter from the security settings.
func NewSecurityAdapter(settings *conf.Settings, store datastore.Interface) (*SecurityAdapter, error) {
	if store == nil {
		return nil, errors.Newf("authentication requires a datastore").
			Component("auth").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sec := settings.Security
	tokens, err := security.NewTokenIssuer(sec.JWTSecret, sec.AccessTokenTTL, sec.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &SecurityAdapter{
		store:     store,
		tokens:    tokens,
		sessions:  security.NewSessionManager(sec.SessionSecret, sec.SessionDuration, !settings.WebServer.Debug),
		users:     security.NewUserCache(sec.UserCacheTTL),
		limiter:   security.NewLoginLimiter(sec.LoginRateLimit),
		basicAuth: sec.BasicAuth,
	}, nil
}

// Limiter exposes the login limiter so the server can prune idle entries.
func (a *SecurityAdapter) Limiter() *security.LoginLimiter {
	return a.limiter
}

// AuthenticateToken verifies an access token and loads its user.
func (a *SecurityAdapter) AuthenticateToken(ctx context.Context, token string) (*datastore.User, error) {
	claims, err := a.tokens.Parse(token, security.AccessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	id, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := a.loadUser(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}

// AuthenticateSession loads the user stored in the session cookie.
func (a *SecurityAdapter) AuthenticateSession(c echo.Context) (*datastore.User, error) {
	id, ok := a.sessions.UserID(c.Request())
	if !ok {
		return nil, ErrSessionNotFound
	}
	user, err := a.loadUser(c.Request().Context(), id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return user, nil
}

// AuthenticateBasic checks credentials against the stored bcrypt hash.
func (a *SecurityAdapter) AuthenticateBasic(c echo.Context, username, password string) (*datastore.User, error) {
	if !a.limiter.Allow(c.RealIP()) {
		return nil, ErrTooManyAttempts
	}

	user, err := a.store.GetUserByUsername(c.Request().Context(), username)
	if err != nil {
		if errors.IsNotFound(err) {
			// Unknown usernames still pay for one hash comparison.
			security.CheckPassword(dummyHash(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		GetLogger().Info("password check failed",
			logger.String("username", username),
			logger.String("ip", c.RealIP()))
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	a.users.Set(user)
	return user, nil
}

// BasicAuthEnabled reports the basicauth setting.
func (a *SecurityAdapter) BasicAuthEnabled() bool {
	return a.basicAuth
}

// IssueTokens signs a token pair for user.
func (a *SecurityAdapter) IssueTokens(user *datastore.User) (security.TokenPair, error) {
	return a.tokens.IssuePair(user.ID, user.Username)
}

// RefreshAccess verifies a refresh token and signs a new access token for the
// same user. The user must still exist and be active.
func (a *SecurityAdapter) RefreshAccess(ctx context.Context, refreshToken string) (string, int, error) {
	claims, err := a.tokens.Parse(refreshToken, security.RefreshToken)
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	id, err := claims.UserID()
	if err != nil {
		return "", 0, ErrInvalidToken
	}
	user, err := a.loadUser(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", 0, ErrInvalidToken
		}
		return "", 0, err
	}

	access, err := a.tokens.IssueAccess(user.ID, user.Username)
	if err != nil {
		return "", 0, err
	}
	return access, int(a.tokens.AccessTTL().Seconds()), nil
}

// EstablishSession writes the session cookie for user.
func (a *SecurityAdapter) EstablishSession(c echo.Context, user *datastore.User) error {
	return a.sessions.Login(c.Response(), c.Request(), user.ID)
}

// Logout clears the session cookie and forgets the cached user.
func (a *SecurityAdapter) Logout(c echo.Context) error {
	if id, ok := a.sessions.UserID(c.Request()); ok {
		a.users.Invalidate(id)
	}
	return a.sessions.Logout(c.Response(), c.Request())
}

// loadUser reads a user through the cache and rejects disabled accounts.
func (a *SecurityAdapter) loadUser(ctx context.Context, id uint) (*datastore.User, error) {
	if cached, ok := a.users.Get(id); ok {
		if !cached.IsActive {
			return nil, ErrInactiveUser
		}
		return &cached, nil
	}

	user, err := a.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	a.users.Set(user)
	return user, nil
}

var _ Service = (*SecurityAdapter)(nil)
