package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/vadimbarashkov/shortlink/internal/app"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
)

// withUseCase migrates the configured store, runs fn against it and closes
// it afterwards. Logs go to stderr so stdout carries only command output.
func (c *cli) withUseCase(cmd *cobra.Command, fn func(uc *usecase.URLUseCase) error) error {
	logger := app.NewLogger(c.cfg, cmd.ErrOrStderr()).Logger

	if err := app.Migrate(cmd.Context(), c.cfg, logger); err != nil {
		return err
	}

	uc, closeRepo, err := app.NewUseCase(cmd.Context(), c.cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	return fn(uc)
}

func newShortenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "shorten <url>",
		Short:   "Create or look up the short link of a URL",
		Example: "  shortlink shorten example.com/some/page",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withUseCase(cmd, func(uc *usecase.URLUseCase) error {
				link, err := uc.ShortenURL(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				printLink(cmd.OutOrStdout(), link)
				return nil
			})
		},
	}
}

func newInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info <short-code>",
		Short: "Show a short link without counting a visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withUseCase(cmd, func(uc *usecase.URLUseCase) error {
				link, err := uc.GetURLInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				printLink(cmd.OutOrStdout(), link)
				return nil
			})
		},
	}
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List short links, most visited first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withUseCase(cmd, func(uc *usecase.URLUseCase) error {
				links, err := uc.ListURLs(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "CODE\tHITS\tCREATED\tURL")
				for _, link := range links {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
						link.ShortCode, link.HitCount, link.CreatedAt.Format(time.DateTime), link.OriginalURL)
				}
				return w.Flush()
			})
		},
	}
}

func newDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <short-code>",
		Short: "Delete a short link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withUseCase(cmd, func(uc *usecase.URLUseCase) error {
				if err := uc.DeleteURL(cmd.Context(), args[0]); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printLink(out io.Writer, link *entity.ShortLink) {
	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
	fmt.Fprintf(w, "id:\t%d\n", link.ID)
	fmt.Fprintf(w, "code:\t%s\n", link.ShortCode)
	fmt.Fprintf(w, "url:\t%s\n", link.OriginalURL)
	fmt.Fprintf(w, "hits:\t%d\n", link.HitCount)
	fmt.Fprintf(w, "created:\t%s\n", link.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "updated:\t%s\n", link.UpdatedAt.Format(time.RFC3339))
	w.Flush()
}
