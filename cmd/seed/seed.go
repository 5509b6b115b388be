// Package seed implements the seed command and its users and items subcommands.
package seed

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/itemstore/internal/bootstrap"
	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/seed"
)

// Command creates the seed command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo data",
		Long:  "Create the demo accounts user1..user10 and one demo item for each of them.",
	}
	cmd.AddCommand(usersCommand(settings), itemsCommand(settings))
	return cmd
}

func usersCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "Create the demo accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := bootstrap.RequireDatastore(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			report := seed.New(cmd.OutOrStdout()).Users(cmd.Context(), store, seed.DemoUsers())
			return report.Err()
		},
	}
}

func itemsCommand(settings *conf.Settings) *cobra.Command {
	var table bool

	cmd := &cobra.Command{
		Use:   "items",
		Short: "Add the demo items",
		Long:  "Add one demo item per demo account to the spreadsheet, or to the items table with --table.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeder := seed.New(cmd.OutOrStdout())

			if table {
				store, err := bootstrap.RequireDatastore(settings)
				if err != nil {
					return err
				}
				defer store.Close()
				return seeder.TableItems(cmd.Context(), store, seed.DemoItems()).Err()
			}

			repo, err := bootstrap.OpenSheets(cmd.Context(), settings, nil, nil)
			if err != nil {
				return err
			}
			if repo == nil {
				return errSheetsDisabled
			}
			return seeder.SheetItems(cmd.Context(), repo, seed.DemoItems()).Err()
		},
	}

	cmd.Flags().BoolVar(&table, "table", false, "Insert into the relational items table instead of the spreadsheet")
	return cmd
}
