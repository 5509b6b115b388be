package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	gommonlog "github.com/labstack/gommon/log"

	"github.com/tphakala/itemstore/internal/api/auth"
	mw "github.com/tphakala/itemstore/internal/api/middleware"
	v2 "github.com/tphakala/itemstore/internal/api/v2"
	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/observability"
	"github.com/tphakala/itemstore/internal/observability/metrics"
	"github.com/tphakala/itemstore/internal/security"
	"github.com/tphakala/itemstore/internal/sheets"
)

// Server owns the echo instance, its middleware stack and the API routes.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	dataStore   datastore.Interface
	sheets      *sheets.Repository
	metrics     *observability.Metrics
	authService auth.Service
	limiter     *security.LoginLimiter

	apiController *v2.Controller
	listenerReady chan struct{}
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithDataStore sets the relational item store. Without it the /items routes
// answer 503 and no credentials can be checked.
func WithDataStore(ds datastore.Interface) ServerOption {
	return func(s *Server) {
		s.dataStore = ds
	}
}

// WithSheets sets the spreadsheet item repository.
func WithSheets(repo *sheets.Repository) ServerOption {
	return func(s *Server) {
		s.sheets = repo
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAuthService replaces the datastore backed authentication service.
func WithAuthService(svc auth.Service) ServerOption {
	return func(s *Server) {
		s.authService = svc
	}
}

// New creates the HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:        config,
		settings:      settings,
		listenerReady: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = GetLogger()
	}

	if err := s.initAuth(); err != nil {
		return nil, fmt.Errorf("failed to initialize authentication: %w", err)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug
	if config.Debug {
		s.echo.Logger.SetLevel(gommonlog.DEBUG)
	} else {
		s.echo.Logger.SetLevel(gommonlog.ERROR)
	}
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Address()),
		logger.Bool("database", s.dataStore != nil),
		logger.Bool("sheets", s.sheets != nil),
		logger.Bool("auth", s.authService != nil),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// initAuth builds the datastore backed auth service unless one was supplied.
func (s *Server) initAuth() error {
	if s.authService != nil || s.dataStore == nil {
		if s.authService == nil {
			s.log.Warn("no datastore configured, authenticated routes will reject every caller")
		}
		return nil
	}

	adapter, err := auth.NewSecurityAdapter(s.settings, s.dataStore)
	if err != nil {
		return err
	}
	s.authService = adapter
	s.limiter = adapter.Limiter()
	return nil
}

// setupMiddleware configures the server-wide middleware stack.
func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	// the API group logs its own requests with the caller attached
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, mw.SkipPrefix("/api/")))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes mounts the API controller and the root health check.
func (s *Server) setupRoutes() error {
	opts := []v2.Option{v2.WithLogger(s.log.Module("v2"))}

	var httpMetrics *metrics.HTTPMetrics
	if s.metrics != nil {
		opts = append(opts, v2.WithMetrics(s.metrics))
		httpMetrics = s.metrics.HTTP
	}
	if s.sheets != nil {
		opts = append(opts, v2.WithSheets(s.sheets))
	}
	if s.authService != nil {
		authMiddleware := auth.NewMiddleware(s.authService, httpMetrics)
		opts = append(opts,
			v2.WithAuthService(s.authService),
			v2.WithAuthMiddleware(authMiddleware.Authenticate))
	}

	apiController, err := v2.New(s.echo, s.dataStore, s.settings, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API v2: %w", err)
	}
	s.apiController = apiController

	s.echo.GET("/health", apiController.HealthCheck)
	return nil
}

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. Use Shutdown to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.log.Error("server error", logger.Error(err))
		}
	}()
}

// startBlocking serves until the server is shut down.
func (s *Server) startBlocking() error {
	addr := s.config.Address()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		close(s.listenerReady)
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.echo.Listener = ln
	close(s.listenerReady)

	s.log.Info("HTTP server listening", logger.String("address", ln.Addr().String()))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, pruning idle login limiter entries on the
// way, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.startBlocking()
	}()

	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			return err
		case <-ticker.C:
			s.sweepLimiter()
		case <-ctx.Done():
			if err := s.Shutdown(); err != nil {
				return err
			}
			return <-errCh
		}
	}
}

func (s *Server) sweepLimiter() {
	if s.limiter == nil {
		return
	}
	if removed := s.limiter.Cleanup(limiterSweepInterval); removed > 0 {
		s.log.Debug("pruned idle login limiters", logger.Int("removed", removed))
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("server shutdown complete")
	return nil
}

// Addr returns the bound listener address once serving has started, or nil
// if the listener could not be opened.
func (s *Server) Addr() net.Addr {
	<-s.listenerReady
	if s.echo.Listener == nil {
		return nil
	}
	return s.echo.Listener.Addr()
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
