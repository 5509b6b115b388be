// Package createuser implements the createuser command.
package createuser

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/itemstore/internal/bootstrap"
	"github.com/tphakala/itemstore/internal/conf"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/seed"
)

// Command creates the createuser command.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		password  string
		superuser bool
	)

	cmd := &cobra.Command{
		Use:   "createuser <username> <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := bootstrap.RequireDatastore(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			spec := seed.UserSpec{Username: args[0], Email: args[1], Password: password, Superuser: superuser}
			user, err := seed.CreateUser(cmd.Context(), store, spec)
			if err != nil {
				if errors.IsConflict(err) {
					return fmt.Errorf("user '%s' already exists", spec.Username)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "✅ User created successfully!")
			fmt.Fprintf(out, "   Username: %s\n", user.Username)
			fmt.Fprintf(out, "   Email: %s\n", user.Email)
			if user.IsSuperuser {
				fmt.Fprintln(out, "   Superuser: yes")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for the new account (required)")
	cmd.Flags().BoolVar(&superuser, "superuser", false, "Grant access to every owner's items")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
