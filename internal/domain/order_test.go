package domain

import (
	"errors"
	"testing"
)

func TestTotals(t *testing.T) {
	lines := []OrderLine{
		{ProductID: "p-1", Quantity: 2, PriceMinor: 500},
		{ProductID: "p-2", Quantity: 1, PriceMinor: 1500},
	}

	amount, items := Totals(lines)
	if amount != 2500 {
		t.Errorf("expected amount 2500, got %d", amount)
	}
	if items != 3 {
		t.Errorf("expected 3 items, got %d", items)
	}
}

func TestTotalsEmpty(t *testing.T) {
	amount, items := Totals(nil)
	if amount != 0 || items != 0 {
		t.Errorf("expected zero totals, got amount=%d items=%d", amount, items)
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	for _, status := range OrderStatuses {
		if !status.IsValid() {
			t.Errorf("status %s should be valid", status)
		}
	}

	invalid := []OrderStatus{"", "SHIPPED", "paid", "created"}
	for _, status := range invalid {
		if status.IsValid() {
			t.Errorf("status %q should be invalid", status)
		}
	}
}

func TestValidateLines(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr error
	}{
		{
			name:    "empty lines",
			order:   Order{},
			wantErr: ErrItemsRequired,
		},
		{
			name: "missing product id",
			order: Order{Lines: []OrderLine{
				{Quantity: 1, PriceMinor: 100},
			}},
			wantErr: ErrProductIDRequired,
		},
		{
			name: "zero quantity",
			order: Order{Lines: []OrderLine{
				{ProductID: "p-1", Quantity: 0, PriceMinor: 100},
			}},
			wantErr: ErrItemQtyInvalid,
		},
		{
			name: "negative price",
			order: Order{Lines: []OrderLine{
				{ProductID: "p-1", Quantity: 1, PriceMinor: -1},
			}},
			wantErr: ErrItemPriceInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.order.ValidateLines()
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, err := range errs {
				if errors.Is(err, tt.wantErr) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error %v in %v", tt.wantErr, errs)
			}
		})
	}

	valid := Order{Lines: []OrderLine{
		{ProductID: "p-1", Quantity: 2, PriceMinor: 0},
	}}
	if errs := valid.ValidateLines(); len(errs) != 0 {
		t.Errorf("expected no errors for valid lines, got %v", errs)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(ErrOrderNotFound) {
		t.Error("ErrOrderNotFound should be not found")
	}
	if IsNotFound(ErrProductNotFound) {
		t.Error("ErrProductNotFound is not an order not found error")
	}
	if IsNotFound(nil) {
		t.Error("nil is not a not found error")
	}
}
