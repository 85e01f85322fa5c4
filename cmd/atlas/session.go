package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlasextract/atlas/internal/config"
	"github.com/atlasextract/atlas/internal/preflight"
	"github.com/atlasextract/atlas/internal/session"
	"github.com/atlasextract/atlas/internal/workflow"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Review and save extractions interactively",
	Long: `Start an interactive session: pick a file, extract it, edit the fields
and line items, save, and browse saved orders, all in one place.

Edits to the config file take effect immediately: a changed api_base_url
re-points the session at the new backend unless --server was given.

Type "help" inside the session for the command list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		cfg := svcs.Config.Get()

		ctrl, err := workflow.New(workflow.Config{
			Backend:     svcs.Client,
			Preparer:    preflight.New(cfg.PreflightOptions(svcs.Logger)),
			OrdersLimit: cfg.OrdersLimit,
			Logger:      svcs.Logger,
		})
		if err != nil {
			return err
		}
		sess, err := session.New(session.Config{
			Controller: ctrl,
			In:         cmd.InOrStdin(),
			Out:        cmd.OutOrStdout(),
			Logger:     svcs.Logger,
		})
		if err != nil {
			return err
		}

		svcs.Config.OnChange(func(c *config.Config) {
			ctrl.Orders.SetLimit(c.OrdersLimit)
			if serverURL == "" && c.APIBaseURL != svcs.Client.BaseURL() {
				svcs.Client.SetBaseURL(c.APIBaseURL)
				sess.Notify(fmt.Sprintf("Config reloaded: backend is now %s", c.APIBaseURL))
			}
		})
		svcs.Config.WatchConfig()

		// The orders list loads with the page; a failure shows on the list.
		if _, err := ctrl.RefreshOrders(ctx); err != nil {
			svcs.Logger.Warn("initial orders refresh failed", "error", err)
		}
		return sess.Run(ctx)
	},
}
