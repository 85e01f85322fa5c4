package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/atlasextract/atlas/internal/invoice"
	"github.com/atlasextract/atlas/internal/testutil"
)

func TestExtract(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL)

	result, err := client.Extract(context.Background(), Upload{
		Filename:    "invoice.png",
		ContentType: "image/png",
		Data:        []byte("\x89PNG fake"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Document.Get("VendorName") != "Acme" {
		t.Errorf("expected VendorName Acme, got %q", result.Document.Get("VendorName"))
	}
	if result.Meta.ProcessingMS != 12 {
		t.Errorf("expected processing_ms 12, got %d", result.Meta.ProcessingMS)
	}
	if result.Header == nil || result.Details == nil {
		t.Error("expected normalized header and details")
	}

	uploads := backend.Uploads()
	if len(uploads) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(uploads))
	}
	if uploads[0].Filename != "invoice.png" {
		t.Errorf("expected filename invoice.png, got %s", uploads[0].Filename)
	}
	if uploads[0].ContentType != "image/png" {
		t.Errorf("expected part content type image/png, got %s", uploads[0].ContentType)
	}
}

func TestExtract_ServerError(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Fail(testutil.RouteExtract, http.StatusBadRequest, "Unsupported file type")

	_, err := NewClient(backend.URL).Extract(context.Background(), Upload{Filename: "a.txt", Data: []byte("x")})
	if got := Message(err, "Extraction failed."); got != "Unsupported file type" {
		t.Errorf("expected server message, got %q", got)
	}
}

func TestExtract_RejectsUnexpectedShape(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.SetExtractResponse(map[string]any{"document": []string{"not", "an", "object"}})

	_, err := NewClient(backend.URL).Extract(context.Background(), Upload{Filename: "a.txt", Data: []byte("x")})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
}

func TestSaveOrder(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.SetNextID(42)
	client := NewClient(backend.URL)

	rec := invoice.Record{
		Document: invoice.Fields{"VendorName": "Acme", "InvoiceNumber": "INV-1"},
		Header:   invoice.Fields{"CustomerID": "7"},
		Details:  []invoice.LineItem{{OrderQty: "2", ProductName: "Widget"}},
	}
	saved, err := client.SaveOrder(context.Background(), rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, ok := saved.SalesOrderID()
	if !ok || id != 42 {
		t.Errorf("expected SalesOrderID 42, got %d (%v)", id, ok)
	}
	if len(saved.Details) != 1 || saved.Details[0].SalesOrderDetailID == "" {
		t.Errorf("expected persisted detail row, got %+v", saved.Details)
	}
	if saved.Details[0].SalesOrderID != "42" {
		t.Errorf("expected detail SalesOrderID 42, got %q", saved.Details[0].SalesOrderID)
	}

	orders, err := client.ListOrders(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 || orders[0].SalesOrderID != 42 {
		t.Fatalf("expected order 42 in list, got %+v", orders)
	}
	if orders[0].VendorName != "Acme" || orders[0].InvoiceNumber != "INV-1" {
		t.Errorf("expected document columns in summary, got %+v", orders[0])
	}
}

func TestSaveOrder_ServerError(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.Fail(testutil.RouteSaveOrder, http.StatusConflict, "duplicate invoice")

	_, err := NewClient(backend.URL).SaveOrder(context.Background(), invoice.EmptyRecord())
	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected ServerError, got %T: %v", err, err)
	}
	if serverErr.Message != "duplicate invoice" {
		t.Errorf("expected duplicate invoice, got %q", serverErr.Message)
	}
}

func TestUpdateOrder(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL)
	ctx := context.Background()

	saved, err := client.SaveOrder(ctx, invoice.Record{
		Document: invoice.Fields{"VendorName": "Acme"},
		Details:  []invoice.LineItem{{ProductName: "A"}, {ProductName: "B"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id, _ := saved.SalesOrderID()

	edited := saved.Clone()
	edited.Document["VendorName"] = "Acme Corp"
	edited.Details = edited.Details[:1]

	updated, err := client.UpdateOrder(ctx, id, edited)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Document.Get("VendorName") != "Acme Corp" {
		t.Errorf("expected updated vendor, got %q", updated.Document.Get("VendorName"))
	}
	if len(updated.Details) != 1 {
		t.Errorf("expected details replaced, got %d rows", len(updated.Details))
	}
}

func TestListOrders(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL)
	ctx := context.Background()

	t.Run("empty list is not nil", func(t *testing.T) {
		orders, err := client.ListOrders(ctx, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if orders == nil || len(orders) != 0 {
			t.Errorf("expected empty slice, got %#v", orders)
		}
	})

	for i := 0; i < 3; i++ {
		if _, err := client.SaveOrder(ctx, invoice.EmptyRecord()); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	t.Run("newest first and limited", func(t *testing.T) {
		orders, err := client.ListOrders(ctx, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(orders) != 2 {
			t.Fatalf("expected 2 orders, got %d", len(orders))
		}
		if orders[0].SalesOrderID != 3 || orders[1].SalesOrderID != 2 {
			t.Errorf("expected ids 3,2 got %d,%d", orders[0].SalesOrderID, orders[1].SalesOrderID)
		}
	})
}

func TestGetOrder_NotFound(t *testing.T) {
	tests := []struct {
		name       string
		missing404 bool
	}{
		{"null header", false},
		{"404 status", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewBackend(t)
			backend.MissingAs404(tt.missing404)

			_, err := NewClient(backend.URL).GetOrder(context.Background(), 999)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := NewClient(backend.URL)
	ctx := context.Background()

	if _, err := client.SaveOrder(ctx, invoice.Record{
		Document: invoice.Fields{"VendorName": "Acme"},
		Details:  []invoice.LineItem{{ProductName: "Widget"}},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := client.Snapshot(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Headers) != 1 || len(snap.Details) != 1 || len(snap.Documents) != 1 {
		t.Errorf("unexpected snapshot sizes: %d/%d/%d", len(snap.Headers), len(snap.Details), len(snap.Documents))
	}
	if snap.Headers[0].Get("SalesOrderID") != "1" {
		t.Errorf("expected SalesOrderID 1, got %q", snap.Headers[0].Get("SalesOrderID"))
	}
}

func TestWaitHealthy(t *testing.T) {
	t.Run("healthy backend", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		if err := NewClient(backend.URL).WaitHealthy(context.Background(), time.Second, 10*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("recovers after failures", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer srv.Close()

		if err := NewClient(srv.URL).WaitHealthy(context.Background(), time.Second, 10*time.Millisecond); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		backend := testutil.NewBackend(t)
		backend.Fail(testutil.RouteHealth, http.StatusServiceUnavailable, "")

		err := NewClient(backend.URL).WaitHealthy(context.Background(), 50*time.Millisecond, 10*time.Millisecond)
		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatalf("expected last ServerError, got %T: %v", err, err)
		}
	})
}
