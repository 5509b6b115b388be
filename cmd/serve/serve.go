// Package serve implements the serve command.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/itemstore/internal/api"
	"github.com/tphakala/itemstore/internal/bootstrap"
	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/observability"
	"github.com/tphakala/itemstore/internal/observability/metrics"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Serve the item API on the configured port until interrupted. The metrics endpoint runs on its own listener when telemetry is enabled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, settings)
		},
	}

	if err := setupFlags(cmd.Flags()); err != nil {
		cobra.CheckErr(err)
	}
	return cmd
}

// setupFlags configures flags specific to the serve command and binds them
// to their config keys.
func setupFlags(flags *pflag.FlagSet) error {
	flags.String("port", viper.GetString("webserver.port"), "Port of the HTTP API")
	flags.Bool("telemetry", viper.GetBool("telemetry.enabled"), "Enable the Prometheus metrics endpoint")
	flags.String("listen", viper.GetString("telemetry.listen"), "Listen address of the metrics endpoint")

	for key, name := range map[string]string{
		"webserver.port":    "port",
		"telemetry.enabled": "telemetry",
		"telemetry.listen":  "listen",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// Run opens the backends and serves until ctx is cancelled.
func Run(ctx context.Context, settings *conf.Settings) error {
	log := logger.Global().Module("serve")

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	store, err := bootstrap.OpenDatastore(settings)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("error closing database", logger.Error(err))
			}
		}()
	}

	var recorder metrics.Recorder
	if m.Sheets != nil {
		recorder = m.Sheets
	}
	// the server never prompts; run authorize first
	repo, err := bootstrap.OpenSheets(ctx, settings, recorder, nil)
	if err != nil {
		return err
	}

	server, err := api.New(settings,
		api.WithDataStore(store),
		api.WithSheets(repo),
		api.WithMetrics(m))
	if err != nil {
		return err
	}

	var endpoint *observability.Endpoint
	if settings.Telemetry.Enabled {
		endpoint, err = observability.NewEndpoint(settings, m)
		if err != nil {
			return fmt.Errorf("invalid telemetry listen address: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if endpoint != nil {
		g.Go(func() error {
			return endpoint.Run(gctx)
		})
	}

	log.Info("itemstore started",
		logger.String("version", settings.Version),
		logger.String("port", settings.WebServer.Port))

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("itemstore stopped")
	return nil
}
