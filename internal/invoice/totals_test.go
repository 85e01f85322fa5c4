package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		ok      bool
		wantErr bool
	}{
		{"", "0", false, false},
		{"  ", "0", false, false},
		{"12.50", "12.5", true, false},
		{"$1,234.56", "1234.56", true, false},
		{"abc", "0", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if ok != tt.ok {
				t.Errorf("ok = %v, want %v", ok, tt.ok)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReconcile_Balanced(t *testing.T) {
	r := Record{
		Document: Fields{"Subtotal": "2325.00", "Tax": "159.84", "Freight": "0", "Total": "2484.84"},
		Details: []LineItem{
			{OrderQty: "15", UnitPrice: "150", LineTotal: "2250.00"},
			{OrderQty: "1", UnitPrice: "75", LineTotal: "75"},
		},
	}
	tot := Reconcile(r)

	if !tot.LineSum.Equal(decimal.RequireFromString("2325")) {
		t.Errorf("LineSum = %s", tot.LineSum)
	}
	if tot.SubtotalMismatch() {
		t.Error("unexpected subtotal mismatch")
	}
	if tot.TotalMismatch() {
		t.Errorf("unexpected total mismatch: computed %s vs %s", tot.ComputedTotal, tot.Total)
	}
	if len(tot.Problems) != 0 {
		t.Errorf("unexpected problems: %v", tot.Problems)
	}
}

func TestReconcile_ComputesMissingLineTotal(t *testing.T) {
	r := Record{
		Document: Fields{"Subtotal": "30"},
		Details:  []LineItem{{OrderQty: "3", UnitPrice: "10"}},
	}
	tot := Reconcile(r)
	if !tot.LineSum.Equal(decimal.NewFromInt(30)) {
		t.Errorf("LineSum = %s, want 30", tot.LineSum)
	}
	if tot.SubtotalMismatch() {
		t.Error("unexpected mismatch")
	}
}

func TestReconcile_FlagsMismatchAndProblems(t *testing.T) {
	r := Record{
		Document: Fields{"Subtotal": "100", "Tax": "n/a", "Total": "120"},
		Details:  []LineItem{{LineTotal: "90"}, {LineTotal: "ten"}},
	}
	tot := Reconcile(r)

	if !tot.SubtotalMismatch() {
		t.Error("expected subtotal mismatch")
	}
	if !tot.TotalMismatch() {
		t.Error("expected total mismatch")
	}
	if len(tot.Problems) != 2 {
		t.Errorf("expected 2 problems, got %v", tot.Problems)
	}
}

func TestReconcile_NoSubtotalUsesLineSum(t *testing.T) {
	r := Record{
		Document: Fields{"Tax": "5", "Total": "15"},
		Details:  []LineItem{{LineTotal: "10"}},
	}
	tot := Reconcile(r)
	if tot.HasSubtotal || tot.SubtotalMismatch() {
		t.Error("no subtotal should mean no subtotal mismatch")
	}
	if tot.TotalMismatch() {
		t.Errorf("computed total %s should match 15", tot.ComputedTotal)
	}
}
