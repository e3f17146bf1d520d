package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/dhc-order-crawler/internal/server"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Fetches a session token and prints it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			app, err := server.Build(cmd.Context(), rt.cfg, rt.logger, server.ScopeSession)
			if err != nil {
				return fmt.Errorf("build session: %w", err)
			}
			defer app.Close()

			token, err := app.Tokens.Token(cmd.Context())
			if err != nil {
				return fmt.Errorf("obtain session token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}
