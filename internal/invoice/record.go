// Package invoice defines the extraction record exchanged with the backend:
// document metadata, the SalesOrderHeader fields and the SalesOrderDetail line items.
package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Section names a flat field group of a Record.
type Section string

const (
	SectionDocument Section = "document"
	SectionHeader   Section = "header"
)

// Sentinel errors for record edits.
var (
	ErrUnknownSection = errors.New("unknown section")
	ErrUnknownField   = errors.New("unknown line item field")
	ErrEmptyKey       = errors.New("field key is required")
)

// ParseSection validates a section name.
func ParseSection(s string) (Section, error) {
	switch Section(strings.ToLower(strings.TrimSpace(s))) {
	case SectionDocument:
		return SectionDocument, nil
	case SectionHeader:
		return SectionHeader, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
	}
}

// Record is an extraction result or a persisted order.
type Record struct {
	Document Fields     `json:"document" yaml:"document"`
	Header   Fields     `json:"header" yaml:"header"`
	Details  []LineItem `json:"details" yaml:"details"`
}

// ExtractResult is the response of the extraction endpoint.
type ExtractResult struct {
	Record `yaml:",inline"`
	Meta   ExtractMeta `json:"meta" yaml:"meta"`
}

// ExtractMeta carries timing reported by the extraction service.
type ExtractMeta struct {
	ProcessingMS int64 `json:"processing_ms,omitempty" yaml:"processing_ms,omitempty"`
}

// Section returns the fields of the given section.
func (r *Record) Section(s Section) Fields {
	switch s {
	case SectionDocument:
		return r.Document
	case SectionHeader:
		return r.Header
	}
	return nil
}

// SalesOrderID returns the generated order id, if the record has been persisted.
func (r *Record) SalesOrderID() (int64, bool) {
	v := strings.TrimSpace(r.Header.Get("SalesOrderID"))
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{
		Document: r.Document.Clone(),
		Header:   r.Header.Clone(),
	}
	if r.Details != nil {
		out.Details = make([]LineItem, len(r.Details))
		copy(out.Details, r.Details)
	}
	return out
}

// Normalize ensures both sections and the details slice are non-nil so edits
// and serialization behave the same for fresh and decoded records.
func (r *Record) Normalize() {
	if r.Document == nil {
		r.Document = Fields{}
	}
	if r.Header == nil {
		r.Header = Fields{}
	}
	if r.Details == nil {
		r.Details = []LineItem{}
	}
}

// LineItem is one SalesOrderDetail row. All values are display strings.
type LineItem struct {
	OrderQty              string `json:"OrderQty" yaml:"OrderQty"`
	ProductID             string `json:"ProductID" yaml:"ProductID"`
	ProductName           string `json:"ProductName" yaml:"ProductName"`
	UnitPrice             string `json:"UnitPrice" yaml:"UnitPrice"`
	LineTotal             string `json:"LineTotal" yaml:"LineTotal"`
	UnitPriceDiscount     string `json:"UnitPriceDiscount" yaml:"UnitPriceDiscount"`
	CarrierTrackingNumber string `json:"CarrierTrackingNumber" yaml:"CarrierTrackingNumber"`
	SpecialOfferID        string `json:"SpecialOfferID" yaml:"SpecialOfferID"`

	// Set only on persisted rows.
	SalesOrderDetailID string `json:"SalesOrderDetailID,omitempty" yaml:"SalesOrderDetailID,omitempty"`
	SalesOrderID       string `json:"SalesOrderID,omitempty" yaml:"SalesOrderID,omitempty"`
}

// LineItemKeys lists the editable line item fields in form order.
var LineItemKeys = []string{
	"OrderQty",
	"ProductID",
	"ProductName",
	"UnitPrice",
	"UnitPriceDiscount",
	"LineTotal",
	"CarrierTrackingNumber",
	"SpecialOfferID",
}

// Get returns a field by name.
func (l LineItem) Get(key string) (string, error) {
	switch key {
	case "OrderQty":
		return l.OrderQty, nil
	case "ProductID":
		return l.ProductID, nil
	case "ProductName":
		return l.ProductName, nil
	case "UnitPrice":
		return l.UnitPrice, nil
	case "LineTotal":
		return l.LineTotal, nil
	case "UnitPriceDiscount":
		return l.UnitPriceDiscount, nil
	case "CarrierTrackingNumber":
		return l.CarrierTrackingNumber, nil
	case "SpecialOfferID":
		return l.SpecialOfferID, nil
	case "SalesOrderDetailID":
		return l.SalesOrderDetailID, nil
	case "SalesOrderID":
		return l.SalesOrderID, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, key)
}

// Set returns a copy of the item with one editable field replaced.
func (l LineItem) Set(key, value string) (LineItem, error) {
	switch key {
	case "OrderQty":
		l.OrderQty = value
	case "ProductID":
		l.ProductID = value
	case "ProductName":
		l.ProductName = value
	case "UnitPrice":
		l.UnitPrice = value
	case "LineTotal":
		l.LineTotal = value
	case "UnitPriceDiscount":
		l.UnitPriceDiscount = value
	case "CarrierTrackingNumber":
		l.CarrierTrackingNumber = value
	case "SpecialOfferID":
		l.SpecialOfferID = value
	default:
		return l, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return l, nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting numeric and null values.
func (l *LineItem) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*l = LineItem{
		OrderQty:              f.Get("OrderQty"),
		ProductID:             f.Get("ProductID"),
		ProductName:           f.Get("ProductName"),
		UnitPrice:             f.Get("UnitPrice"),
		LineTotal:             f.Get("LineTotal"),
		UnitPriceDiscount:     f.Get("UnitPriceDiscount"),
		CarrierTrackingNumber: f.Get("CarrierTrackingNumber"),
		SpecialOfferID:        f.Get("SpecialOfferID"),
		SalesOrderDetailID:    f.Get("SalesOrderDetailID"),
		SalesOrderID:          f.Get("SalesOrderID"),
	}
	return nil
}

// OrderSummary is one row of the saved-orders list.
type OrderSummary struct {
	SalesOrderID     int64  `json:"SalesOrderID" yaml:"sales_order_id"`
	SalesOrderNumber string `json:"SalesOrderNumber" yaml:"sales_order_number"`
	InvoiceNumber    string `json:"InvoiceNumber" yaml:"invoice_number"`
	VendorName       string `json:"VendorName" yaml:"vendor_name"`
	CustomerID       string `json:"CustomerID" yaml:"customer_id"`
	TotalDue         string `json:"TotalDue" yaml:"total_due"`
}

// UnmarshalJSON implements json.Unmarshaler. The list endpoint returns full
// header rows; only the summary columns are kept.
func (o *OrderSummary) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	var id int64
	if v := strings.TrimSpace(f.Get("SalesOrderID")); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SalesOrderID %q: %w", v, err)
		}
		id = parsed
	}

	*o = OrderSummary{
		SalesOrderID:     id,
		SalesOrderNumber: f.Get("SalesOrderNumber"),
		InvoiceNumber:    f.Get("InvoiceNumber"),
		VendorName:       f.Get("VendorName"),
		CustomerID:       f.Get("CustomerID"),
		TotalDue:         f.Get("TotalDue"),
	}
	return nil
}

// Snapshot is the raw table dump returned by the backend's snapshot endpoint.
type Snapshot struct {
	Headers   []Fields `json:"headers" yaml:"headers"`
	Details   []Fields `json:"details" yaml:"details"`
	Documents []Fields `json:"documents" yaml:"documents"`
}
