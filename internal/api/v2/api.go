// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/itemstore/internal/api/auth"
	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/observability"
	"github.com/tphakala/itemstore/internal/sheets"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Sheets   *sheets.Repository // nil when the sheet backend is disabled
	Settings *conf.Settings

	metrics   *observability.Metrics
	startTime time.Time
	apiLogger logger.Logger

	// Auth related fields (injected from server via functional options)
	authService    auth.Service
	authMiddleware echo.MiddlewareFunc
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAuthMiddleware sets the authentication middleware for the controller.
func WithAuthMiddleware(mw echo.MiddlewareFunc) Option {
	return func(c *Controller) {
		c.authMiddleware = mw
	}
}

// WithAuthService sets the authentication service for the controller.
func WithAuthService(svc auth.Service) Option {
	return func(c *Controller) {
		c.authService = svc
	}
}

// WithSheets enables the /sheet-items routes over repo.
func WithSheets(repo *sheets.Repository) Option {
	return func(c *Controller) {
		c.Sheets = repo
	}
}

// WithMetrics records HTTP metrics for every API request.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithLogger replaces the "api" module logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.apiLogger = l
		}
	}
}

// New creates the controller and registers its routes under /api/v2.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings, opts ...Option) (*Controller, error) {
	return NewWithOptions(e, ds, settings, true, opts...)
}

// NewWithOptions creates a new API controller with optional route initialization.
// Tests pass false and call handlers directly.
func NewWithOptions(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	initializeRoutes bool, opts ...Option) (*Controller, error) {

	if e == nil {
		return nil, fmt.Errorf("echo instance is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}

	c := &Controller{
		Echo:      e,
		DS:        ds,
		Settings:  settings,
		startTime: time.Now(),
		apiLogger: logger.Global().Module("api"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(middleware.Recover())
	c.Group.Use(c.LoggingMiddleware())
	if c.metrics != nil && c.metrics.HTTP != nil {
		c.Group.Use(c.MetricsMiddleware())
	}
	c.Group.Use(middleware.BodyLimit("1M"))

	if initializeRoutes {
		c.initRoutes()
	}

	return c, nil
}

// LoggingMiddleware creates a middleware function that logs API requests
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("query", req.URL.RawQuery),
				logger.Int("status", res.Status),
				logger.String("ip", ctx.RealIP()),
				logger.String("user_agent", req.UserAgent()),
				logger.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if id := res.Header().Get(echo.HeaderXRequestID); id != "" {
				fields = append(fields, logger.String("request_id", id))
			}
			if username, ok := ctx.Get(auth.CtxKeyUsername).(string); ok && username != "" {
				fields = append(fields, logger.String("username", username))
			}
			if err != nil {
				fields = append(fields, logger.Error(err))
			}

			c.apiLogger.Info("API request", fields...)
			return err
		}
	}
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	// Health check endpoint - publicly accessible
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"auth routes", c.initAuthRoutes},
		{"item routes", c.initItemRoutes},
		{"sheet item routes", c.initSheetItemRoutes},
	}

	for _, initializer := range routeInitializers {
		c.apiLogger.Debug("initializing routes", logger.String("group", initializer.name))
		initializer.fn()
	}
}

// protected returns the auth middleware, or a middleware rejecting every
// request when the server was built without one.
func (c *Controller) protected() echo.MiddlewareFunc {
	if c.authMiddleware != nil {
		return c.authMiddleware
	}
	return func(echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			return c.HandleError(ctx, nil, "Authentication is not configured", http.StatusUnauthorized)
		}
	}
}

// unavailable answers 503 for every request of a route group whose backend is not configured.
func (c *Controller) unavailable(message string) echo.MiddlewareFunc {
	return func(echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			return c.HandleError(ctx, nil, message, http.StatusServiceUnavailable)
		}
	}
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":     "healthy",
		"version":    c.Settings.Version,
		"build_date": c.Settings.BuildDate,
		"timestamp":  time.Now().Format(time.RFC3339),
	}

	if c.Settings.WebServer.Debug {
		response["environment"] = "development"
	} else {
		response["environment"] = "production"
	}

	switch {
	case c.DS == nil:
		response["database_status"] = "disabled"
	default:
		if err := c.DS.Ping(ctx.Request().Context()); err != nil {
			response["status"] = "degraded"
			response["database_status"] = "disconnected"
			response["database_error"] = err.Error()
		} else {
			response["database_status"] = "connected"
		}
	}

	if c.Sheets != nil {
		response["sheets_worksheet"] = c.Sheets.Worksheet().Title()
	} else {
		response["sheets_worksheet"] = nil
	}

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	return ctx.JSON(http.StatusOK, response)
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = describeError(err)
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// describeError returns err's text, or its type and Go-syntax value when the
// text is empty.
func describeError(err error) string {
	if s := err.Error(); s != "" {
		return s
	}
	return fmt.Sprintf("%T: %#v", err, err)
}

// generateCorrelationID creates a unique identifier for error tracking using cryptographic randomness
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}

	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		c.apiLogger.Error("API error", fields...)
	} else {
		c.apiLogger.Debug("API error", fields...)
	}

	if c.metrics != nil && c.metrics.HTTP != nil {
		c.metrics.HTTP.RecordHTTPRequestError(ctx.Request().Method, routePath(ctx), errorType(code))
	}

	return ctx.JSON(code, errorResp)
}

// GetAuthMiddleware returns the authentication middleware function injected from server.
func (c *Controller) GetAuthMiddleware() echo.MiddlewareFunc {
	return c.authMiddleware
}
