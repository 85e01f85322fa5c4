package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/atlasextract/atlas/internal/api"
	"github.com/atlasextract/atlas/internal/invoice"
	"github.com/atlasextract/atlas/internal/preflight"
	"github.com/atlasextract/atlas/internal/render"
	"github.com/atlasextract/atlas/internal/workbook"
	"github.com/atlasextract/atlas/internal/workflow"
)

var ordersLimit int

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Saved order commands",
	Long: `Orders commands read and write the SalesOrderHeader / SalesOrderDetail
records persisted by the backend.

Examples:
  atlas orders list --limit 10
  atlas orders get 71774
  atlas orders save record.json
  atlas extract invoice.pdf -o json | atlas orders save -
  atlas orders import AdventureWorks.xlsx`,
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent saved orders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		limit := ordersLimit
		if limit <= 0 {
			limit = svcs.Config.Get().OrdersLimit
		}
		orders, err := svcs.Client.ListOrders(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("%s %w", workflow.MsgOrdersFailed, err)
		}
		return api.Output(render.OrdersView(orders))
	},
}

var ordersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one saved order with its line items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		id, err := parseOrderID(args[0])
		if err != nil {
			return err
		}
		rec, err := svcs.Client.GetOrder(cmd.Context(), id)
		if errors.Is(err, api.ErrNotFound) {
			return fmt.Errorf("order %d: %s", id, workflow.MsgOrderNotFound)
		}
		if err != nil {
			return fmt.Errorf("%s %w", workflow.MsgOrderFailed, err)
		}
		return api.Output(render.RecordView{Record: rec})
	},
}

var ordersSaveCmd = &cobra.Command{
	Use:   "save <record.json|->",
	Short: "Save a record as a new order",
	Long: `Save a record as a new order. The record is the JSON printed by
"atlas extract -o json": {"document": {...}, "header": {...}, "details": [...]}.
Use - to read it from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		rec, err := readRecord(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		saved, err := svcs.Client.SaveOrder(cmd.Context(), rec)
		if err != nil {
			return fmt.Errorf("%s %w", workflow.MsgSaveFailed, err)
		}
		return api.Output(render.RecordView{Record: saved})
	},
}

var ordersUpdateCmd = &cobra.Command{
	Use:   "update <id> <record.json|->",
	Short: "Overwrite a saved order with a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		id, err := parseOrderID(args[0])
		if err != nil {
			return err
		}
		rec, err := readRecord(cmd.InOrStdin(), args[1])
		if err != nil {
			return err
		}
		saved, err := svcs.Client.UpdateOrder(cmd.Context(), id, rec)
		if err != nil {
			return fmt.Errorf("%s %w", workflow.MsgUpdateFailed, err)
		}
		return api.Output(render.RecordView{Record: saved})
	},
}

var ordersImportCmd = &cobra.Command{
	Use:   "import <workbook.xlsx>",
	Short: "Save every order in an Excel export",
	Long: `Import orders from a workbook with a SalesOrderHeader sheet and an
optional SalesOrderDetail sheet. The first row of each sheet names the
columns. Detail rows are attached to the header with the same SalesOrderID;
each order is saved with its own request and failures do not stop the import.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, err := services(cmd)
		if err != nil {
			return err
		}
		imp, err := workbook.Open(args[0])
		if err != nil {
			return err
		}
		if imp.Orphans > 0 {
			svcs.Logger.Warn("detail rows without a header skipped", "count", imp.Orphans)
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

		res, importErr := ctrl.ImportOrders(cmd.Context(), imp.Orders)
		if err := api.Output(res); err != nil {
			return err
		}
		if importErr != nil {
			return fmt.Errorf("%d of %d orders failed: %w", len(res.Failures), len(imp.Orders), importErr)
		}
		return nil
	},
}

func parseOrderID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("order id %q must be a positive number", s)
	}
	return id, nil
}

// readRecord loads a record from path, or from stdin when path is "-".
func readRecord(stdin io.Reader, path string) (invoice.Record, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return invoice.Record{}, fmt.Errorf("failed to read record: %w", err)
	}

	if err := invoice.ValidateRecordJSON(data); err != nil {
		return invoice.Record{}, err
	}
	var rec invoice.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return invoice.Record{}, fmt.Errorf("failed to decode record: %w", err)
	}
	rec.Normalize()
	return rec, nil
}

func init() {
	ordersListCmd.Flags().IntVar(&ordersLimit, "limit", 0, "number of orders to show (default: orders_limit from config)")

	ordersCmd.AddCommand(ordersListCmd)
	ordersCmd.AddCommand(ordersGetCmd)
	ordersCmd.AddCommand(ordersSaveCmd)
	ordersCmd.AddCommand(ordersUpdateCmd)
	ordersCmd.AddCommand(ordersImportCmd)
}
