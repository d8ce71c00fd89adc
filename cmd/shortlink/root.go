package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/vadimbarashkov/shortlink/internal/config"
)

const defaultConfigPath = "config.yml"

const rootLong = `shortlink allocates short codes for URLs, resolves them and counts visits.

The shorten, info, list and delete commands migrate the configured store
before they run, so a fresh SQLite or Postgres database needs no separate
migrate call.`

// cli holds state shared by every subcommand once the root pre-run has loaded it.
type cli struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "shortlink",
		Short:         "Short link service",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to the config file (default $CONFIG_PATH or config.yml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newShortenCmd(c),
		newInfoCmd(c),
		newListCmd(c),
		newDeleteCmd(c),
	)

	return root
}

func (c *cli) loadConfig() error {
	if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", c.envFile, err)
	}

	path := c.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	c.cfg = cfg

	return nil
}
