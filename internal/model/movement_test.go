package model

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestMovementReference_Valid(t *testing.T) {
	id := uuid.New()

	valid := []ReferenceKind{
		RefInitialStock, RefPurchaseOrder, RefStockTransfer,
		RefStockAdjustment, RefSalesTransaction, RefReturn,
	}
	for _, kind := range valid {
		ref := MovementReference{Kind: kind, ID: id}
		if !ref.Valid() {
			t.Errorf("expected %s reference to be valid", kind)
		}
	}

	if (MovementReference{Kind: RefPurchaseOrder, ID: uuid.Nil}).Valid() {
		t.Error("nil reference id must not be valid")
	}
	if (MovementReference{Kind: "invoice", ID: id}).Valid() {
		t.Error("unknown reference kind must not be valid")
	}
}

func TestStockMovement_SignedQuantity(t *testing.T) {
	in := &StockMovement{Direction: DirectionIn, Quantity: 5}
	if got := in.SignedQuantity(); got != 5 {
		t.Errorf("expected +5, got %d", got)
	}

	out := &StockMovement{Direction: DirectionOut, Quantity: 5}
	if got := out.SignedQuantity(); got != -5 {
		t.Errorf("expected -5, got %d", got)
	}
}

func TestStockMovement_BeforeSave(t *testing.T) {
	tests := []struct {
		name    string
		m       StockMovement
		wantErr bool
	}{
		{
			"valid inbound",
			StockMovement{Direction: DirectionIn, Quantity: 10, QuantityBefore: 0, QuantityAfter: 10},
			false,
		},
		{
			"valid outbound",
			StockMovement{Direction: DirectionOut, Quantity: 4, QuantityBefore: 10, QuantityAfter: 6},
			false,
		},
		{
			"broken chain",
			StockMovement{Direction: DirectionIn, Quantity: 10, QuantityBefore: 0, QuantityAfter: 5},
			true,
		},
		{
			"zero quantity",
			StockMovement{Direction: DirectionIn, Quantity: 0, QuantityBefore: 0, QuantityAfter: 0},
			true,
		},
		{
			"negative quantity",
			StockMovement{Direction: DirectionOut, Quantity: -2, QuantityBefore: 5, QuantityAfter: 7},
			true,
		},
		{
			"unknown direction",
			StockMovement{Direction: "SIDEWAYS", Quantity: 1, QuantityBefore: 0, QuantityAfter: 1},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.BeforeSave(nil)
			if tt.wantErr {
				var invalid *InvalidMovementError
				if !errors.As(err, &invalid) {
					t.Errorf("expected InvalidMovementError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
