package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/atlasextract/atlas/internal/api"
)

var (
	healthWait     time.Duration
	healthInterval time.Duration
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	Long: `Check that the backend answers on /health.

With --wait, keep polling until it does or the wait elapses, e.g. while the
backend container starts:
  atlas health --wait 30s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if healthWait > 0 {
			if err := svcs.Client.WaitHealthy(ctx, healthWait, healthInterval); err != nil {
				return err
			}
		}
		resp, err := svcs.Client.Health(ctx)
		if err != nil {
			return err
		}
		return api.Output(map[string]string{
			"status":       resp.Status,
			"api_base_url": svcs.Client.BaseURL(),
		})
	},
}

func init() {
	healthCmd.Flags().DurationVar(&healthWait, "wait", 0, "keep retrying for up to this long")
	healthCmd.Flags().DurationVar(&healthInterval, "interval", time.Second, "delay between retries")
}
