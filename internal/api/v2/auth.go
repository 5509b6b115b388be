// internal/api/v2/auth.go
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/itemstore/internal/api/auth"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

// LoginRequest carries username and password for the token and login endpoints.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is the body of a successful refresh.
type RefreshResponse struct {
	Access    string `json:"access"`
	ExpiresIn int    `json:"expires_in"`
}

// SessionResponse describes the logged-in user.
type SessionResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Superuser bool   `json:"superuser"`
}

// initAuthRoutes registers the credential exchange endpoints. They are public.
func (c *Controller) initAuthRoutes() {
	group := c.Group.Group("/auth")
	if c.authService == nil {
		group.Use(c.unavailable("Authentication is not configured"))
	}

	group.POST("/token", c.IssueToken)
	group.POST("/token/refresh", c.RefreshToken)
	group.POST("/login", c.Login)
	group.POST("/logout", c.Logout)
}

// IssueToken handles POST /api/v2/auth/token
func (c *Controller) IssueToken(ctx echo.Context) error {
	user, err := c.checkCredentials(ctx)
	if user == nil {
		return err
	}

	pair, err := c.authService.IssueTokens(user)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to issue token", http.StatusInternalServerError)
	}

	c.apiLogger.Info("token issued", logger.String("username", user.Username))
	return ctx.JSON(http.StatusOK, pair)
}

// RefreshToken handles POST /api/v2/auth/token/refresh
func (c *Controller) RefreshToken(ctx echo.Context) error {
	var req RefreshRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, msgInvalidBody, http.StatusBadRequest)
	}
	if strings.TrimSpace(req.Refresh) == "" {
		return c.HandleError(ctx, nil, "Refresh token is required", http.StatusBadRequest)
	}

	access, expiresIn, err := c.authService.RefreshAccess(ctx.Request().Context(), req.Refresh)
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInactiveUser):
		return c.HandleError(ctx, err, "Invalid or expired refresh token", http.StatusUnauthorized)
	case err != nil:
		return c.HandleError(ctx, err, "Failed to refresh token", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, RefreshResponse{Access: access, ExpiresIn: expiresIn})
}

// Login handles POST /api/v2/auth/login and sets the session cookie.
func (c *Controller) Login(ctx echo.Context) error {
	user, err := c.checkCredentials(ctx)
	if user == nil {
		return err
	}

	if err := c.authService.EstablishSession(ctx, user); err != nil {
		return c.HandleError(ctx, err, "Failed to create session", http.StatusInternalServerError)
	}

	c.apiLogger.Info("session login", logger.String("username", user.Username), logger.String("ip", ctx.RealIP()))
	return ctx.JSON(http.StatusOK, SessionResponse{
		Username:  user.Username,
		Email:     user.Email,
		Superuser: user.IsSuperuser,
	})
}

// Logout handles POST /api/v2/auth/logout
func (c *Controller) Logout(ctx echo.Context) error {
	if err := c.authService.Logout(ctx); err != nil {
		return c.HandleError(ctx, err, "Failed to log out", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// checkCredentials binds a LoginRequest and verifies it. On failure the
// error response has been written and the user is nil.
func (c *Controller) checkCredentials(ctx echo.Context) (*datastore.User, error) {
	var req LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return nil, c.HandleError(ctx, err, msgInvalidBody, http.StatusBadRequest)
	}
	if req.Username == "" || req.Password == "" {
		return nil, c.HandleError(ctx, nil, "Username and password are required", http.StatusBadRequest)
	}

	user, err := c.authService.AuthenticateBasic(ctx, req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		return nil, c.HandleError(ctx, err, "Too many login attempts, try again later", http.StatusTooManyRequests)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInactiveUser):
		return nil, c.HandleError(ctx, err, "Invalid username or password", http.StatusUnauthorized)
	case err != nil:
		return nil, c.HandleError(ctx, err, "Authentication failed", http.StatusInternalServerError)
	}
	return user, nil
}
