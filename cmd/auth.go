package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored single-token fallback",
	}

	cmd.AddCommand(newAuthSetCmd(app), newAuthRemoveCmd(app))

	return cmd
}

func newAuthSetCmd(app *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the fallback token in the secret store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token must not be empty")
			}

			if err := app.secretStore.Put(cmd.Context(), app.cfg.SecretKey, token); err != nil {
				return fmt.Errorf("store fallback token: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored fallback token under %s\n", app.cfg.SecretKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token value")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newAuthRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Delete the fallback token from the secret store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.secretStore.Delete(cmd.Context(), app.cfg.SecretKey); err != nil {
				return fmt.Errorf("remove fallback token: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed fallback token %s\n", app.cfg.SecretKey)
			return nil
		},
	}
}
