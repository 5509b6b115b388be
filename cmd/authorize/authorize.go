// Package authorize implements the authorize command, the interactive OAuth2
// consent for the Google Sheets backend.
package authorize

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/itemstore/internal/bootstrap"
	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/credentials"
)

// launcher opens the consent page unless --no-browser is given.
var launcher = credentials.SystemBrowser

// Command creates the authorize command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		addr      string
		noBrowser bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "authorize",
		Short: "Authorize access to the Google spreadsheet",
		Long:  "Run the OAuth2 consent flow in a browser and save the token used by serve and seed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenPath := settings.TokenFilePath()
			if force {
				if err := os.Remove(tokenPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("error removing saved token: %w", err)
				}
			}

			consent := &credentials.LocalServerConsent{
				Addr: addr,
				Out:  cmd.OutOrStdout(),
			}
			if !noBrowser {
				consent.Browser = launcher
			}

			provider, err := bootstrap.NewCredentialProvider(settings, consent)
			if err != nil {
				return err
			}
			if _, err := provider.Token(bootstrap.NewHTTPClient(settings).OAuth2Context(cmd.Context())); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Token saved to %s\n", tokenPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Loopback address for the OAuth2 callback (default: random port on 127.0.0.1)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the consent URL instead of opening a browser")
	cmd.Flags().BoolVar(&force, "force", false, "Discard the saved token and authorize again")
	return cmd
}
