package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vadimbarashkov/shortlink/internal/app"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply storage migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := app.NewLogger(c.cfg, cmd.ErrOrStderr())

			if err := app.Migrate(cmd.Context(), c.cfg, logger.Logger); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s storage is up to date\n", c.cfg.Storage)

			return nil
		},
	}
}
