package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// HSTSMaxAge is the max-age value for the HSTS header (1 year in seconds).
const HSTSMaxAge = 31536000

// SecurityConfig holds configuration for security middleware.
type SecurityConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool

	HSTSMaxAge            int
	HSTSExcludeSubdomains bool
}

// DefaultSecurityConfig returns a SecurityConfig that allows no cross origin callers.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowCredentials: true,
		HSTSMaxAge:       HSTSMaxAge,
	}
}

// NewCORS creates a CORS middleware. With no allowed origins it returns a
// pass-through so that browsers apply the same-origin policy unchanged.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	if len(config.AllowedOrigins) == 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	// credentials cannot be combined with a wildcard origin
	allowCredentials := config.AllowCredentials
	for _, origin := range config.AllowedOrigins {
		if origin == "*" {
			allowCredentials = false
		}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
		ExposeHeaders:    []string{echo.HeaderWWWAuthenticate},
		AllowCredentials: allowCredentials,
	})
}

// NewSecureHeaders creates a middleware that sets security-related HTTP headers.
// The API never serves HTML, so framing is denied outright.
func NewSecureHeaders(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            config.HSTSMaxAge,
		HSTSExcludeSubdomains: config.HSTSExcludeSubdomains,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "no-referrer",
	})
}

// NewBodyLimit creates a middleware that limits the request body size.
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
