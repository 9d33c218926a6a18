package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/bnema/tokenpool/internal/adapters/events/metrics"
	"github.com/bnema/tokenpool/internal/application"
	"github.com/spf13/cobra"
)

const (
	envAccount     = "TOKENPOOL_ACCOUNT"
	envAccessToken = "TOKENPOOL_ACCESS_TOKEN"
	stopTimeout    = 5 * time.Second
)

func newRunCmd(app *app) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run a command with the current pool credential in its environment",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("run requires a command after '--'")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			svc, err := app.openPoolService(cmd.Context())
			if err != nil {
				return err
			}
			pool := svc.Pool()

			state := application.NewCredentialState()
			if err := pool.UpdateState(state); err != nil {
				return err
			}
			if err := svc.RecordRequest(cmd.Context(), state.Label()); err != nil {
				return err
			}

			reporter, err := application.NewUsageReporter(pool, app.sink, app.clock, app.cfg.ReportInterval)
			if err != nil {
				return err
			}
			reporter.Start()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
				defer cancel()
				err = errors.Join(err, reporter.Stop(ctx))
				reporter.ReportNow()
			}()

			if metricsAddr != "" {
				server, startErr := metrics.StartServer(metricsAddr, app.metrics, app.logger)
				if startErr != nil {
					return startErr
				}
				app.logger.Info().Str("url", server.URL()).Msg("serving metrics")
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
					defer cancel()
					err = errors.Join(err, server.Shutdown(ctx))
				}()
			}

			child := exec.CommandContext(cmd.Context(), args[0], args[1:]...)
			child.Stdout = cmd.OutOrStdout()
			child.Stderr = cmd.ErrOrStderr()
			child.Stdin = cmd.InOrStdin()
			child.Env = append(os.Environ(),
				envAccount+"="+state.Label(),
				envAccessToken+"="+state.Token(),
			)

			if err := child.Run(); err != nil {
				return fmt.Errorf("run child command: %w", err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")

	return cmd
}
