// Package render prints workflow views as plain text for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/atlasextract/atlas/internal/invoice"
	"github.com/atlasextract/atlas/internal/workflow"
)

const dash = "-"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// orDash is how empty values read in read-only views.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return dash
	}
	return s
}

// money prefixes a read-only amount with $, defaulting to 0.
func money(s string) string {
	if strings.TrimSpace(s) == "" {
		s = "0"
	}
	return "$" + s
}

// oneLine keeps multi-line values on one table row.
func oneLine(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " / ")
}

// Upload prints the upload card: picked file and extraction status.
func Upload(w io.Writer, fileName string, state workflow.State[*invoice.ExtractResult]) error {
	if fileName == "" {
		fileName = "(none)"
	}
	if _, err := fmt.Fprintf(w, "Upload & Extract\nFile: %s\n", fileName); err != nil {
		return err
	}
	return status(w, state.Message())
}

// Editor prints the review form: every catalog field with its current value,
// the line items with their indexes, and whether Save is available.
func Editor(w io.Writer, rec invoice.Record, canSave bool, state workflow.State[int64]) error {
	fmt.Fprintln(w, "Invoice Metadata + Line Items")

	tw := newTable(w)
	for _, def := range invoice.EditorFields {
		fmt.Fprintf(tw, "  %s:\t%s\n", def.Label, oneLine(rec.Section(def.Section).Get(def.Key)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nLine Items")
	if len(rec.Details) == 0 {
		fmt.Fprintln(w, "  No line items yet.")
	} else {
		tw = newTable(w)
		fmt.Fprintln(tw, "  #\tQty\tProduct ID\tDescription\tUnit\tLine Total")
		for i, item := range rec.Details {
			fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\t%s\n",
				i, item.OrderQty, item.ProductID, item.ProductName, item.UnitPrice, item.LineTotal)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	save := "disabled"
	if canSave {
		save = "enabled"
	}
	fmt.Fprintf(w, "\nSave to Database: %s\n", save)
	return status(w, state.Message())
}

// Orders prints the saved orders table with its loading, error and empty states.
func Orders(w io.Writer, state workflow.State[[]invoice.OrderSummary]) error {
	fmt.Fprintln(w, "Database Orders")

	switch state.Phase() {
	case workflow.PhaseIdle:
		return nil
	case workflow.PhaseLoading, workflow.PhaseErrored:
		return status(w, state.Message())
	}

	orders, _ := state.Value()
	if len(orders) == 0 {
		return status(w, workflow.MsgNoOrders)
	}
	return OrdersTable(w, orders)
}

// OrdersTable prints order summaries, one per row.
func OrdersTable(w io.Writer, orders []invoice.OrderSummary) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "Order ID\tSales Order\tInvoice\tVendor\tCustomer\tTotal")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			o.SalesOrderID, orDash(o.SalesOrderNumber), orDash(o.InvoiceNumber),
			orDash(o.VendorName), orDash(o.CustomerID), money(o.TotalDue))
	}
	return tw.Flush()
}

// Detail prints the order modal. Closed prints nothing; loading and errored
// print only the heading and status, never a line item table.
func Detail(w io.Writer, id int64, state workflow.State[*invoice.Record]) error {
	if state.Phase() == workflow.PhaseIdle {
		return nil
	}

	rec, ok := state.Value()
	if !ok || rec == nil {
		heading := dash
		if id != 0 {
			heading = fmt.Sprint(id)
		}
		fmt.Fprintf(w, "Order %s\n", heading)
		return status(w, state.Message())
	}
	return Order(w, *rec)
}

// Order prints one persisted order, read-only.
func Order(w io.Writer, rec invoice.Record) error {
	doc, header := rec.Document, rec.Header

	fmt.Fprintf(w, "Order %s\n", orDash(header.Get("SalesOrderID")))
	vendor := doc.Get("VendorName")
	if vendor == "" {
		vendor = "Vendor not set"
	}
	fmt.Fprintln(w, vendor)

	sections := []struct {
		title string
		rows  [][2]string
	}{
		{"Document", [][2]string{
			{"Invoice", orDash(doc.Get("InvoiceNumber"))},
			{"Invoice Date", orDash(doc.Get("InvoiceDate"))},
			{"Due Date", orDash(doc.Get("DueDate"))},
			{"Terms", orDash(doc.Get("Terms"))},
		}},
		{"Totals", [][2]string{
			{"Subtotal", money(doc.Get("Subtotal"))},
			{"Tax", money(doc.Get("Tax"))},
			{"Freight", money(doc.Get("Freight"))},
			{"Total", money(doc.Get("Total"))},
		}},
		{"Customer", [][2]string{
			{"Customer ID", orDash(header.Get("CustomerID"))},
			{"Account", orDash(header.Get("AccountNumber"))},
			{"Bill To", orDash(doc.Get("BillToName"))},
			{"Ship To", orDash(doc.Get("ShipToName"))},
		}},
	}
	for _, s := range sections {
		fmt.Fprintf(w, "\n%s\n", s.title)
		tw := newTable(w)
		for _, row := range s.rows {
			fmt.Fprintf(tw, "  %s:\t%s\n", row[0], row[1])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(w, "\nLine Items")
	if len(rec.Details) == 0 {
		return status(w, "No line items stored.")
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "  Qty\tProduct ID\tDescription\tUnit\tLine Total")
	for _, item := range rec.Details {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
			orDash(item.OrderQty), orDash(item.ProductID), orDash(item.ProductName),
			money(item.UnitPrice), money(item.LineTotal))
	}
	return tw.Flush()
}

// Totals prints a reconciliation of the record's amounts.
func Totals(w io.Writer, t invoice.Totals) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Line items:\t%s\n", t.LineSum.StringFixed(2))
	if t.HasSubtotal {
		fmt.Fprintf(tw, "Subtotal:\t%s%s\n", t.Subtotal.StringFixed(2), flag(t.SubtotalMismatch()))
	}
	fmt.Fprintf(tw, "Tax:\t%s\n", t.Tax.StringFixed(2))
	fmt.Fprintf(tw, "Freight:\t%s\n", t.Freight.StringFixed(2))
	fmt.Fprintf(tw, "Computed total:\t%s\n", t.ComputedTotal.StringFixed(2))
	if t.HasTotal {
		fmt.Fprintf(tw, "Total:\t%s%s\n", t.Total.StringFixed(2), flag(t.TotalMismatch()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, p := range t.Problems {
		if _, err := fmt.Fprintf(w, "  ! %s\n", p); err != nil {
			return err
		}
	}
	return nil
}

func flag(mismatch bool) string {
	if mismatch {
		return "  (mismatch)"
	}
	return ""
}

func status(w io.Writer, msg string) error {
	if msg == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "Status: %s\n", msg)
	return err
}
