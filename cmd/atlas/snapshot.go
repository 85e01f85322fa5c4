package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/render"
)

var snapshotLimit int

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Dump the latest raw rows of every backend table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		snap, err := svcs.Client.Snapshot(cmd.Context(), snapshotLimit)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		return api.Output(render.SnapshotView{Snapshot: snap})
	},
}

func init() {
	snapshotCmd.Flags().IntVar(&snapshotLimit, "limit", 10, "rows per table")
}
