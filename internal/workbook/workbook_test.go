package workbook

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheets map[string][][]any) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet %s: %v", name, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}
	return f
}

func workbookBytes(t *testing.T, f *excelize.File) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

func TestRead_GroupsDetailsUnderHeaders(t *testing.T) {
	f := buildWorkbook(t, map[string][][]any{
		SheetHeaders: {
			{"SalesOrderID", "SalesOrderNumber", "OrderDate", "CustomerID", "TotalDue"},
			{71774, "SO71774", 45306, 29847, 972.785},
			{},
			{71776, "SO71776", "2024-02-01", 30072, 87.0851},
		},
		SheetDetails: {
			{"SalesOrderID", "SalesOrderDetailID", "OrderQty", "ProductID", "UnitPrice", "LineTotal"},
			{71774, 110562, 1, 836, 356.898, 356.898},
			{71776, 110567, 1, 907, 63.9, 63.9},
			{71774, 110563, 1, 822, 356.898, 356.898},
			{99999, 1, 1, 1, 1, 1},
		},
	})
	defer f.Close()

	imp, err := Read(bytes.NewReader(workbookBytes(t, f)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(imp.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(imp.Orders))
	}
	if imp.Orphans != 1 {
		t.Errorf("expected 1 orphan detail, got %d", imp.Orphans)
	}

	first := imp.Orders[0]
	if first.Header.Get("SalesOrderID") != "71774" || first.Header.Get("SalesOrderNumber") != "SO71774" {
		t.Errorf("unexpected header %v", first.Header)
	}
	if got := first.Header.Get("OrderDate"); got != "2024-01-15" {
		t.Errorf("expected serial date converted, got %q", got)
	}
	if len(first.Details) != 2 {
		t.Fatalf("expected 2 details for 71774, got %d", len(first.Details))
	}
	if first.Details[0].ProductID != "836" || first.Details[1].ProductID != "822" {
		t.Errorf("details out of sheet order: %+v", first.Details)
	}
	if first.Details[0].SalesOrderDetailID != "" {
		t.Error("detail ids are assigned by the backend and should not be imported")
	}

	second := imp.Orders[1]
	if got := second.Header.Get("OrderDate"); got != "2024-02-01" {
		t.Errorf("text date should pass through, got %q", got)
	}
	if len(second.Details) != 1 || second.Details[0].UnitPrice != "63.9" {
		t.Errorf("unexpected details for 71776: %+v", second.Details)
	}
	if second.Document == nil {
		t.Error("document should be empty, not nil")
	}
}

func TestRead_HeadersOnly(t *testing.T) {
	f := buildWorkbook(t, map[string][][]any{
		SheetHeaders: {
			{"SalesOrderID", "CustomerID"},
			{1, 7},
		},
	})
	defer f.Close()

	imp, err := Read(bytes.NewReader(workbookBytes(t, f)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(imp.Orders) != 1 || len(imp.Orders[0].Details) != 0 {
		t.Errorf("unexpected import %+v", imp)
	}
}

func TestRead_MissingHeaderSheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := Read(bytes.NewReader(workbookBytes(t, f)))
	if !errors.Is(err, ErrNoHeaderSheet) {
		t.Errorf("expected ErrNoHeaderSheet, got %v", err)
	}
}

func TestRead_NotAWorkbook(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("not a zip"))); err == nil {
		t.Error("expected error")
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	f := buildWorkbook(t, map[string][][]any{
		SheetHeaders: {{"SalesOrderID"}, {5}},
	})
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	imp, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(imp.Orders) != 1 || imp.Orders[0].Header.Get("SalesOrderID") != "5" {
		t.Errorf("unexpected import %+v", imp)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Error("expected error for missing file")
	}
}
