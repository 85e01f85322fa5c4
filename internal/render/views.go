package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/atlasextract/atlas/internal/invoice"
	"github.com/atlasextract/atlas/internal/workflow"
)

// The view types below print as text and encode as their plain data in the
// structured output formats.

// ExtractView is the result of a one-shot extraction.
type ExtractView struct {
	Result *invoice.ExtractResult
}

func (v ExtractView) WriteText(w io.Writer) error {
	if v.Result.Meta.ProcessingMS > 0 {
		fmt.Fprintf(w, "Extraction complete %dms\n\n", v.Result.Meta.ProcessingMS)
	}
	if err := Editor(w, v.Result.Record, true, workflow.Idle[int64]()); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return Totals(w, invoice.Reconcile(v.Result.Record))
}

func (v ExtractView) Unwrap() any { return v.Result }

// RecordView is one persisted order.
type RecordView struct {
	Record *invoice.Record
}

func (v RecordView) WriteText(w io.Writer) error { return Order(w, *v.Record) }

func (v RecordView) Unwrap() any { return v.Record }

// OrdersView is a list of order summaries.
type OrdersView []invoice.OrderSummary

func (v OrdersView) WriteText(w io.Writer) error {
	if len(v) == 0 {
		_, err := fmt.Fprintln(w, "No orders yet. Save an extraction.")
		return err
	}
	return OrdersTable(w, v)
}

func (v OrdersView) Unwrap() any { return []invoice.OrderSummary(v) }

// SnapshotView is the raw table dump.
type SnapshotView struct {
	Snapshot *invoice.Snapshot
}

func (v SnapshotView) WriteText(w io.Writer) error {
	tables := []struct {
		name string
		rows []invoice.Fields
	}{
		{"SalesOrderHeader", v.Snapshot.Headers},
		{"SalesOrderDetail", v.Snapshot.Details},
		{"Documents", v.Snapshot.Documents},
	}
	for i, table := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d rows)\n", table.name, len(table.rows))
		for _, row := range table.rows {
			pairs := make([]string, 0, len(row))
			for _, k := range row.Keys() {
				if row[k] == "" {
					continue
				}
				pairs = append(pairs, k+"="+oneLine(row[k]))
			}
			if _, err := fmt.Fprintf(w, "  %s\n", strings.Join(pairs, " ")); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v SnapshotView) Unwrap() any { return v.Snapshot }
