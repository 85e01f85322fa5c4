package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Totals compares the money fields of a record against its line items.
// It is informational only and never changes the record.
type Totals struct {
	LineSum       decimal.Decimal `json:"line_sum" yaml:"line_sum"`
	Subtotal      decimal.Decimal `json:"subtotal" yaml:"subtotal"`
	Tax           decimal.Decimal `json:"tax" yaml:"tax"`
	Freight       decimal.Decimal `json:"freight" yaml:"freight"`
	Total         decimal.Decimal `json:"total" yaml:"total"`
	ComputedTotal decimal.Decimal `json:"computed_total" yaml:"computed_total"`

	HasSubtotal bool `json:"has_subtotal" yaml:"has_subtotal"`
	HasTotal    bool `json:"has_total" yaml:"has_total"`

	// Problems lists fields that could not be parsed as amounts.
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// SubtotalMismatch reports whether the line items do not add up to the subtotal.
func (t Totals) SubtotalMismatch() bool {
	return t.HasSubtotal && !t.LineSum.Equal(t.Subtotal)
}

// TotalMismatch reports whether subtotal + tax + freight differs from the total.
func (t Totals) TotalMismatch() bool {
	return t.HasTotal && !t.ComputedTotal.Equal(t.Total)
}

// Reconcile adds up the line items and document totals of r.
// A line without LineTotal contributes OrderQty * UnitPrice.
func Reconcile(r Record) Totals {
	var t Totals

	for i, item := range r.Details {
		if amount, ok, err := ParseAmount(item.LineTotal); err != nil {
			t.Problems = append(t.Problems, fmt.Sprintf("details[%d].LineTotal: %q", i, item.LineTotal))
		} else if ok {
			t.LineSum = t.LineSum.Add(amount)
			continue
		}

		qty, okQty, errQty := ParseAmount(item.OrderQty)
		price, okPrice, errPrice := ParseAmount(item.UnitPrice)
		if errQty != nil {
			t.Problems = append(t.Problems, fmt.Sprintf("details[%d].OrderQty: %q", i, item.OrderQty))
		}
		if errPrice != nil {
			t.Problems = append(t.Problems, fmt.Sprintf("details[%d].UnitPrice: %q", i, item.UnitPrice))
		}
		if okQty && okPrice {
			t.LineSum = t.LineSum.Add(qty.Mul(price))
		}
	}

	parse := func(key string) (decimal.Decimal, bool) {
		v := r.Document.Get(key)
		d, ok, err := ParseAmount(v)
		if err != nil {
			t.Problems = append(t.Problems, fmt.Sprintf("document.%s: %q", key, v))
		}
		return d, ok
	}

	t.Subtotal, t.HasSubtotal = parse("Subtotal")
	t.Tax, _ = parse("Tax")
	t.Freight, _ = parse("Freight")
	t.Total, t.HasTotal = parse("Total")

	base := t.Subtotal
	if !t.HasSubtotal {
		base = t.LineSum
	}
	t.ComputedTotal = base.Add(t.Tax).Add(t.Freight)

	return t
}

// ParseAmount parses a display amount such as "$1,234.50".
// An empty value returns ok=false and no error.
func ParseAmount(s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}
