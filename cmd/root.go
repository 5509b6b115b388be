// Package cmd wires the itemstore command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/itemstore/cmd/authorize"
	"github.com/tphakala/itemstore/cmd/createuser"
	"github.com/tphakala/itemstore/cmd/seed"
	"github.com/tphakala/itemstore/cmd/serve"
	"github.com/tphakala/itemstore/cmd/version"
	"github.com/tphakala/itemstore/internal/bootstrap"
	"github.com/tphakala/itemstore/internal/buildinfo"
	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/telemetry"
)

// RootCommand creates the root command. settings is filled from the config
// file, the environment and the flags before any subcommand runs.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "itemstore",
		Short:        "Multi-tenant item store API",
		SilenceUsage: true,
	}

	if err := setupFlags(rootCmd, settings, &configFile); err != nil {
		cobra.CheckErr(err)
	}

	versionCmd := version.Command(build)
	rootCmd.AddCommand(
		serve.Command(settings),
		authorize.Command(settings),
		seed.Command(settings),
		createuser.Command(settings),
		versionCmd,
	)

	var central *logger.CentralLogger
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}

		loaded, err := conf.LoadFile(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded
		settings.Version = build.GetVersion()
		settings.BuildDate = build.GetBuildDate()

		central, err = bootstrap.InitLogging(settings)
		if err != nil {
			return fmt.Errorf("error initializing logging: %w", err)
		}

		if err := telemetry.InitSentry(settings); err != nil {
			// error reporting is optional, the command still runs
			logger.Global().Module("main").Warn("sentry disabled", logger.Error(err))
		}
		return nil
	}

	cobra.OnFinalize(func() {
		telemetry.Flush()
		if central != nil {
			_ = central.Close()
		}
	})

	return rootCmd
}

// setupFlags defines the flags shared by every subcommand.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings, configFile *string) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(configFile, "config", "c", "", "Path to the config file (default: first config.yaml in the default config paths)")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
