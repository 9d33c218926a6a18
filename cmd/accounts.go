package cmd

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
)

func newAccountsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Inspect the resolved account pool",
	}

	cmd.AddCommand(
		newAccountsListCmd(app),
	)

	return cmd
}

func newAccountsListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pool accounts with masked tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool := app.newPool()
			if err := pool.Initialize(cmd.Context()); err != nil {
				return err
			}

			for i, account := range pool.Accounts() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", i+1, sanitizeForTerminal(account.Label), account.MaskedToken())
			}

			return nil
		},
	}
}

func sanitizeForTerminal(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
}
