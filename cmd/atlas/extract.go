package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/preflight"
	"github.com/atlasextract/atlas/internal/render"
	"github.com/atlasextract/atlas/internal/workflow"
)

var extractSave bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract invoice fields from a document",
	Long: `Upload a document to the extraction service and print the fields it found.

Accepted files are PNG, JPEG, PDF, TXT, MD and CSV. Large images are
downscaled before upload; files that are not what their extension claims
are rejected without contacting the backend.

Examples:
  atlas extract invoice.pdf
  atlas extract scan.jpg --save
  atlas extract invoice.pdf -o json > record.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		svcs, err := services(cmd)
		if err != nil {
			return err
		}

		checker := preflight.New(svcs.Config.Get().PreflightOptions(svcs.Logger))
		up, err := checker.Open(args[0])
		if err != nil {
			return err
		}

		result, err := svcs.Client.Extract(ctx, up)
		if err != nil {
			return fmt.Errorf("%s %w", workflow.MsgExtractFailed, err)
		}
		if !extractSave {
			return api.Output(render.ExtractView{Result: result})
		}

		saved, err := svcs.Client.SaveOrder(ctx, result.Record)
		if err != nil {
			return fmt.Errorf("%s %w", workflow.MsgSaveFailed, err)
		}
		if id, ok := saved.SalesOrderID(); ok && !api.IsStructuredOutput() {
			cmd.Printf("Saved SalesOrderID %d\n\n", id)
		}
		return api.Output(render.RecordView{Record: saved})
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractSave, "save", false, "save the extracted record as a new order")
}
