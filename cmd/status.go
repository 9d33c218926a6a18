package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	statusadapter "github.com/bnema/tokenpool/internal/adapters/render/status"
	"github.com/bnema/tokenpool/internal/application"
	"github.com/bnema/tokenpool/internal/domain"
	"github.com/spf13/cobra"
)

type statusOutput struct {
	Status    domain.RotationStatus `json:"status"`
	Usage     domain.UsageStats     `json:"usage"`
	UpdatedAt *time.Time            `json:"updated_at,omitempty"`
}

func writeStatusOutput(cmd *cobra.Command, app *app, svc *application.PoolService, asJSON bool) error {
	status, usage := svc.Status()

	if asJSON {
		out := statusOutput{Status: status, Usage: usage}
		if updatedAt := svc.UpdatedAt(); !updatedAt.IsZero() {
			out.UpdatedAt = &updatedAt
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	rendered, err := app.statusRenderer(statusadapter.View{
		Status:    status,
		Usage:     usage,
		Accounts:  svc.Pool().Accounts(),
		UpdatedAt: svc.UpdatedAt(),
	}, statusadapter.RenderOptions{Now: app.clock.Now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
