package model

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	d := dec(t, s)
	return &d
}

func TestInventoryRecord_ReceiveIssueScenario(t *testing.T) {
	now := time.Now()
	rec := &InventoryRecord{}

	// Receive 10 units at cost 50.
	if err := rec.Receive(10, decPtr(t, "50"), now); err != nil {
		t.Fatalf("first receive failed: %v", err)
	}
	if rec.Quantity != 10 || !rec.AverageCost.Equal(dec(t, "50")) {
		t.Fatalf("after first receive: qty=%d avg=%s", rec.Quantity, rec.AverageCost)
	}

	// Receive 10 more at cost 70; the average blends to 60.
	if err := rec.Receive(10, decPtr(t, "70"), now); err != nil {
		t.Fatalf("second receive failed: %v", err)
	}
	if rec.Quantity != 20 || !rec.AverageCost.Equal(dec(t, "60")) {
		t.Fatalf("after second receive: qty=%d avg=%s", rec.Quantity, rec.AverageCost)
	}
	if !rec.LastCost.Equal(dec(t, "70")) {
		t.Errorf("expected last cost 70, got %s", rec.LastCost)
	}

	// Issue 15; quantity drops, the average stays 60.
	if err := rec.Issue(15); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if rec.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", rec.Quantity)
	}
	if !rec.AverageCost.Equal(dec(t, "60")) {
		t.Errorf("issue must not change average cost, got %s", rec.AverageCost)
	}

	// Issuing 10 with only 5 on hand must be rejected without mutation.
	err := rec.Issue(10)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}
	if rec.Quantity != 5 || !rec.AverageCost.Equal(dec(t, "60")) {
		t.Errorf("failed issue must leave the record untouched: qty=%d avg=%s", rec.Quantity, rec.AverageCost)
	}
}

func TestInventoryRecord_ReceiveUncosted(t *testing.T) {
	rec := &InventoryRecord{Quantity: 4, AverageCost: decimal.NewFromInt(25)}

	if err := rec.Receive(6, nil, time.Now()); err != nil {
		t.Fatalf("receive failed: %v", err)
	}
	if rec.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", rec.Quantity)
	}
	if !rec.AverageCost.Equal(decimal.NewFromInt(25)) {
		t.Errorf("uncosted receive must not change average, got %s", rec.AverageCost)
	}
}

func TestInventoryRecord_ReceiveRejectsNonPositive(t *testing.T) {
	rec := &InventoryRecord{}

	for _, qty := range []int{0, -3} {
		err := rec.Receive(qty, decPtr(t, "10"), time.Now())
		var invalid *InvalidMovementError
		if !errors.As(err, &invalid) {
			t.Errorf("receive(%d): expected InvalidMovementError, got %v", qty, err)
		}
	}
	if rec.Quantity != 0 {
		t.Errorf("rejected receive must not mutate, got qty=%d", rec.Quantity)
	}
}

func TestInventoryRecord_IssueDrainResetsAverage(t *testing.T) {
	rec := &InventoryRecord{Quantity: 3, AverageCost: decimal.NewFromInt(80)}

	if err := rec.Issue(3); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if rec.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", rec.Quantity)
	}
	if !rec.AverageCost.Equal(decimal.Zero) {
		t.Errorf("drained record must carry average zero, got %s", rec.AverageCost)
	}
}

func TestInventoryRecord_StockValue(t *testing.T) {
	rec := &InventoryRecord{Quantity: 7, AverageCost: dec(t, "12.5")}
	if got := rec.StockValue(); !got.Equal(dec(t, "87.5")) {
		t.Errorf("expected stock value 87.5, got %s", got)
	}
}

func TestInventoryRecord_EffectiveMinimum(t *testing.T) {
	product := &Product{MinimumStock: 8}

	rec := &InventoryRecord{Product: product}
	if got := rec.EffectiveMinimum(); got != 8 {
		t.Errorf("expected catalog fallback 8, got %d", got)
	}

	rec.MinimumStock = 12
	if got := rec.EffectiveMinimum(); got != 12 {
		t.Errorf("store override must win, got %d", got)
	}
}

func TestInventoryRecord_AlertStatus(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		minimum  int
		want     StockAlertStatus
	}{
		{"zero on hand", 0, 10, StockStatusCritical},
		{"zero on hand without minimum", 0, 0, StockStatusCritical},
		{"at minimum", 10, 10, StockStatusLow},
		{"below minimum", 6, 10, StockStatusLow},
		{"inside warning band", 14, 10, StockStatusWarning},
		{"band upper edge", 15, 10, StockStatusWarning},
		{"above warning band", 16, 10, StockStatusOK},
		{"no minimum configured", 1, 0, StockStatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &InventoryRecord{Quantity: tt.quantity, MinimumStock: tt.minimum}
			if got := rec.AlertStatus(); got != tt.want {
				t.Errorf("qty=%d min=%d: expected %s, got %s", tt.quantity, tt.minimum, tt.want, got)
			}
		})
	}
}
