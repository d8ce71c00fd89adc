package main

import (
	"github.com/spf13/cobra"
	"github.com/vadimbarashkov/shortlink/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := app.NewLogger(c.cfg, cmd.OutOrStdout())

			return app.Run(cmd.Context(), c.cfg, logger)
		},
	}
}
