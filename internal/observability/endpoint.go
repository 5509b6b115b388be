package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/observability/metrics"
)

const readHeaderTimeout = 10 * time.Second

// Endpoint serves /metrics on its own listener, apart from the API.
type Endpoint struct {
	server     *http.Server
	listenAddr string
}

// NewEndpoint builds the metrics HTTP server. It returns an error when the
// listen address is malformed.
func NewEndpoint(settings *conf.Settings, m *Metrics) (*Endpoint, error) {
	if _, _, err := net.SplitHostPort(settings.Telemetry.Listen); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)

	return &Endpoint{
		listenAddr: settings.Telemetry.Listen,
		server: &http.Server{
			Addr:              settings.Telemetry.Listen,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// Addr returns the configured listen address.
func (e *Endpoint) Addr() string {
	return e.listenAddr
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (e *Endpoint) Run(ctx context.Context) error {
	log := GetLogger()
	errCh := make(chan error, 1)

	go func() {
		log.Info("metrics endpoint listening", logger.String("addr", e.listenAddr))
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), metrics.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics endpoint shutdown failed", logger.Error(err))
		return err
	}
	log.Info("metrics endpoint stopped")
	return <-errCh
}
