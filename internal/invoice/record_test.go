package invoice

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestFields_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Fields
	}{
		{"strings", `{"VendorName":"Acme"}`, Fields{"VendorName": "Acme"}},
		{"numbers keep literal text", `{"TotalDue":2484.84,"CustomerID":11015}`, Fields{"TotalDue": "2484.84", "CustomerID": "11015"}},
		{"null becomes empty", `{"ShipDate":null}`, Fields{"ShipDate": ""}},
		{"bool", `{"OnlineOrderFlag":true}`, Fields{"OnlineOrderFlag": "true"}},
		{"null object", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Fields
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFields_UnmarshalJSON_RejectsNested(t *testing.T) {
	var f Fields
	if err := json.Unmarshal([]byte(`{"Address":{"line1":"x"}}`), &f); err == nil {
		t.Error("expected error for nested object value")
	}
}

func TestRecord_DecodePersistedOrder(t *testing.T) {
	body := `{
		"header": {"SalesOrderID": 60001, "TotalDue": 2484.84, "SalesPersonID": null},
		"document": null,
		"details": [
			{"SalesOrderDetailID": 7, "SalesOrderID": 60001, "OrderQty": 15, "ProductID": "323",
			 "ProductName": "Crown Race", "UnitPrice": 150.0, "LineTotal": 2250.0, "SpecialOfferID": null}
		]
	}`

	var r Record
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	id, ok := r.SalesOrderID()
	if !ok || id != 60001 {
		t.Errorf("SalesOrderID() = %d, %v; want 60001, true", id, ok)
	}
	if r.Document != nil {
		t.Errorf("expected nil document, got %v", r.Document)
	}
	if len(r.Details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(r.Details))
	}
	item := r.Details[0]
	if item.OrderQty != "15" || item.UnitPrice != "150.0" || item.SalesOrderDetailID != "7" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.SpecialOfferID != "" {
		t.Errorf("expected empty SpecialOfferID, got %q", item.SpecialOfferID)
	}
}

func TestRecord_MarshalOmitsUnsetRowIDs(t *testing.T) {
	r := Record{
		Document: Fields{"VendorName": "Acme"},
		Header:   Fields{},
		Details:  []LineItem{{ProductID: "A1"}},
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	details := raw["details"].([]any)
	item := details[0].(map[string]any)
	if _, ok := item["SalesOrderDetailID"]; ok {
		t.Error("SalesOrderDetailID should be omitted for new rows")
	}
	if item["ProductID"] != "A1" {
		t.Errorf("ProductID = %v", item["ProductID"])
	}
}

func TestRecord_SalesOrderID(t *testing.T) {
	tests := []struct {
		name   string
		header Fields
		want   int64
		ok     bool
	}{
		{"missing", Fields{}, 0, false},
		{"nil header", nil, 0, false},
		{"numeric", Fields{"SalesOrderID": "42"}, 42, true},
		{"garbage", Fields{"SalesOrderID": "SO-42"}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Header: tt.header}
			got, ok := r.SalesOrderID()
			if got != tt.want || ok != tt.ok {
				t.Errorf("SalesOrderID() = %d, %v; want %d, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	orig := Record{
		Document: Fields{"VendorName": "Acme"},
		Header:   Fields{"CustomerID": "1"},
		Details:  []LineItem{{ProductID: "A"}},
	}
	c := orig.Clone()
	c.Document["VendorName"] = "Other"
	c.Details[0].ProductID = "B"

	if orig.Document["VendorName"] != "Acme" {
		t.Error("clone shares document map")
	}
	if orig.Details[0].ProductID != "A" {
		t.Error("clone shares details slice")
	}
}

func TestLineItem_Set(t *testing.T) {
	item := LineItem{ProductID: "A"}

	updated, err := item.Set("OrderQty", "3")
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if updated.OrderQty != "3" || updated.ProductID != "A" {
		t.Errorf("unexpected item: %+v", updated)
	}
	if item.OrderQty != "" {
		t.Error("Set must not modify the receiver")
	}

	if _, err := item.Set("SalesOrderDetailID", "9"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField for read-only key, got %v", err)
	}
	if _, err := item.Set("Bogus", "x"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
}

func TestLineItemKeys_AllSettable(t *testing.T) {
	for _, key := range LineItemKeys {
		item, err := LineItem{}.Set(key, "v")
		if err != nil {
			t.Errorf("Set(%q) error = %v", key, err)
			continue
		}
		got, err := item.Get(key)
		if err != nil || got != "v" {
			t.Errorf("Get(%q) = %q, %v", key, got, err)
		}
	}
}

func TestOrderSummary_UnmarshalJSON(t *testing.T) {
	body := `[{"SalesOrderID": 60002, "SalesOrderNumber": "SO60002", "InvoiceNumber": null,
		"VendorName": "Acme", "CustomerID": 11016, "TotalDue": 546.44, "Status": 5}]`

	var orders []OrderSummary
	if err := json.Unmarshal([]byte(body), &orders); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := OrderSummary{
		SalesOrderID:     60002,
		SalesOrderNumber: "SO60002",
		VendorName:       "Acme",
		CustomerID:       "11016",
		TotalDue:         "546.44",
	}
	if len(orders) != 1 || orders[0] != want {
		t.Errorf("got %+v, want %+v", orders, want)
	}
}

func TestParseSection(t *testing.T) {
	if s, err := ParseSection(" Header "); err != nil || s != SectionHeader {
		t.Errorf("ParseSection(header) = %q, %v", s, err)
	}
	if _, err := ParseSection("details"); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("expected ErrUnknownSection, got %v", err)
	}
}

func TestEmptyRecord(t *testing.T) {
	r := EmptyRecord()
	if r.Document.Get("Currency") != DefaultCurrency {
		t.Errorf("Currency = %q", r.Document.Get("Currency"))
	}
	if _, ok := r.Header["TotalDue"]; !ok {
		t.Error("expected TotalDue key in header template")
	}
	if r.Details == nil || len(r.Details) != 0 {
		t.Errorf("expected empty non-nil details, got %#v", r.Details)
	}
}

func TestValidateRecordJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"extraction", `{"document":{"VendorName":"Acme"},"header":{},"details":[],"meta":{"processing_ms":12}}`, false},
		{"persisted with nulls", `{"document":null,"header":{"SalesOrderID":1,"ShipDate":null},"details":[{"OrderQty":1}]}`, false},
		{"array body", `[]`, true},
		{"nested field", `{"header":{"x":{"y":1}}}`, true},
		{"details not array", `{"header":{},"details":{}}`, true},
		{"not json", `<html>`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecordJSON([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRecordJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
