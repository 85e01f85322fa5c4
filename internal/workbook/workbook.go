// Package workbook reads saved orders from an Excel export with
// SalesOrderHeader and SalesOrderDetail sheets.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/atlasextract/atlas/internal/invoice"
)

// Sheet names read from the workbook.
const (
	SheetHeaders = "SalesOrderHeader"
	SheetDetails = "SalesOrderDetail"
)

// ErrNoHeaderSheet means the workbook has nothing to import.
var ErrNoHeaderSheet = errors.New("workbook has no " + SheetHeaders + " sheet")

// dateColumns hold Excel serial dates in the header sheet.
var dateColumns = []string{"OrderDate", "DueDate", "ShipDate"}

// Import is the content of a workbook, one record per header row.
type Import struct {
	Orders []invoice.Record
	// Orphans counts detail rows whose SalesOrderID matches no header row.
	Orphans int
}

// Open reads the workbook at path.
func Open(path string) (*Import, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	return Read(bytes.NewReader(data))
}

// Read parses a workbook. The first row of each sheet names the columns;
// blank rows are skipped. Detail rows are attached to their header by
// SalesOrderID, in sheet order.
func Read(r io.Reader) (*Import, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(SheetHeaders); idx < 0 {
		return nil, ErrNoHeaderSheet
	}

	headers, err := loadSheet(f, SheetHeaders)
	if err != nil {
		return nil, err
	}
	var details []invoice.Fields
	if idx, _ := f.GetSheetIndex(SheetDetails); idx >= 0 {
		details, err = loadSheet(f, SheetDetails)
		if err != nil {
			return nil, err
		}
	}

	imp := &Import{Orders: make([]invoice.Record, 0, len(headers))}
	byID := make(map[string]int, len(headers))
	for _, row := range headers {
		for _, col := range dateColumns {
			if v, ok := row[col]; ok {
				row[col] = excelDate(v)
			}
		}
		rec := invoice.Record{
			Document: invoice.Fields{},
			Header:   row,
			Details:  []invoice.LineItem{},
		}
		if id := row.Get("SalesOrderID"); id != "" {
			byID[id] = len(imp.Orders)
		}
		imp.Orders = append(imp.Orders, rec)
	}

	for _, row := range details {
		i, ok := byID[row.Get("SalesOrderID")]
		if !ok {
			imp.Orphans++
			continue
		}
		item, err := lineItem(row)
		if err != nil {
			return nil, err
		}
		imp.Orders[i].Details = append(imp.Orders[i].Details, item)
	}
	return imp, nil
}

func loadSheet(f *excelize.File, sheet string) ([]invoice.Fields, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		columns[i] = strings.TrimSpace(name)
	}

	var out []invoice.Fields
	for _, row := range rows[1:] {
		fields := make(invoice.Fields, len(columns))
		blank := true
		for i, col := range columns {
			if col == "" {
				continue
			}
			var v string
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			if v != "" {
				blank = false
			}
			fields[col] = v
		}
		if !blank {
			out = append(out, fields)
		}
	}
	return out, nil
}

func lineItem(row invoice.Fields) (invoice.LineItem, error) {
	var item invoice.LineItem
	for _, key := range invoice.LineItemKeys {
		v, ok := row[key]
		if !ok {
			continue
		}
		var err error
		if item, err = item.Set(key, v); err != nil {
			return invoice.LineItem{}, err
		}
	}
	return item, nil
}

// excelDate turns an Excel serial date into YYYY-MM-DD. Anything that is not
// a serial number is returned unchanged.
func excelDate(v string) string {
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return v
	}
	return t.Format("2006-01-02")
}
