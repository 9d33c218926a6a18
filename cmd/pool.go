package cmd

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/tokenpool/internal/application"
	"github.com/bnema/tokenpool/internal/domain"
	"github.com/spf13/cobra"
)

func newPoolCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Inspect and drive the persisted rotation state",
	}

	cmd.AddCommand(
		newPoolStatusCmd(app),
		newPoolRotateCmd(app),
		newPoolMarkCmd(app),
		newPoolResetCmd(app),
		newPoolRecordCmd(app),
		newPoolObserveCmd(app),
	)

	return cmd
}

func newPoolStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current account, rate limited accounts and usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.openPoolService(cmd.Context())
			if err != nil {
				return err
			}

			return writeStatusOutput(cmd, app, svc, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")

	return cmd
}

func newPoolRotateCmd(app *app) *cobra.Command {
	var statusCode int

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Apply an upstream status code to the rotation engine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.openPoolService(cmd.Context())
			if err != nil {
				return err
			}

			rotated, err := svc.Rotate(cmd.Context(), statusCode)
			if err != nil {
				return err
			}

			current, _ := svc.Status()
			switch {
			case rotated:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rotated to account %s\n", sanitizeForTerminal(current.CurrentAccount))
			case statusCode != domain.StatusTooManyRequests:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Status %d does not trigger rotation; current account %s\n", statusCode, sanitizeForTerminal(current.CurrentAccount))
			default:
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No usable account; staying on %s\n", sanitizeForTerminal(current.CurrentAccount))
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&statusCode, "status", domain.StatusTooManyRequests, "Upstream HTTP status code")

	return cmd
}

func newPoolMarkCmd(app *app) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Flag an account as rate limited",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.openPoolService(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.MarkRateLimited(cmd.Context(), label); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as rate limited\n", sanitizeForTerminal(label))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "account", "", "Account label")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newPoolResetCmd(app *app) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the rate limit flag of an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.openPoolService(cmd.Context())
			if err != nil {
				return err
			}

			if err := svc.ResetRateLimit(cmd.Context(), label); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared rate limit on %s\n", sanitizeForTerminal(label))
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "account", "", "Account label")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func newPoolRecordCmd(app *app) *cobra.Command {
	var label string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Count one request against an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.openPoolService(cmd.Context())
			if err != nil {
				return err
			}

			if label == "" {
				current, _ := svc.Status()
				label = current.CurrentAccount
			}
			if !svc.Pool().HasAccount(label) {
				return fmt.Errorf("record request for %q: %w", label, domain.ErrAccountNotFound)
			}

			if err := svc.RecordRequest(cmd.Context(), label); err != nil {
				return err
			}

			_, usage := svc.Status()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d requests\n", sanitizeForTerminal(label), usage[label].Requests)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "account", "", "Account label (defaults to the current account)")

	return cmd
}

func newPoolObserveCmd(app *app) *cobra.Command {
	var label string
	var statusCode int
	var remaining string
	var retryAfter string

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Feed one upstream response (status and rate limit headers) to the pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := app.openPoolService(cmd.Context())
			if err != nil {
				return err
			}

			if label == "" {
				current, _ := svc.Status()
				label = current.CurrentAccount
			}

			header := http.Header{}
			if strings.TrimSpace(remaining) != "" {
				header.Set(application.HeaderRateLimitRemaining, remaining)
			}
			if strings.TrimSpace(retryAfter) != "" {
				header.Set(application.HeaderRetryAfter, retryAfter)
			}

			state := application.NewCredentialState()
			outcome, err := svc.Observe(cmd.Context(), state, label, statusCode, header)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "account: %s\n", sanitizeForTerminal(outcome.Account.Label))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rotated: %t\n", outcome.Rotated)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exhausted: %t\n", outcome.Exhausted)
			return nil
		},
	}

	cmd.Flags().StringVar(&label, "account", "", "Account that served the request (defaults to the current account)")
	cmd.Flags().IntVar(&statusCode, "status", http.StatusOK, "Upstream HTTP status code")
	cmd.Flags().StringVar(&remaining, "remaining", "", "Value of the X-Ratelimit-Remaining header")
	cmd.Flags().StringVar(&retryAfter, "retry-after", "", "Value of the Retry-After header")

	return cmd
}
