package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementDirection is the sign of a stock movement.
type MovementDirection string

const (
	DirectionIn  MovementDirection = "IN"
	DirectionOut MovementDirection = "OUT"
)

// ReferenceKind identifies the business document a movement originated from.
type ReferenceKind string

const (
	RefInitialStock     ReferenceKind = "initial_stock"
	RefPurchaseOrder    ReferenceKind = "purchase_order"
	RefStockTransfer    ReferenceKind = "stock_transfer"
	RefStockAdjustment  ReferenceKind = "stock_adjustment"
	RefSalesTransaction ReferenceKind = "sales_transaction"
	RefReturn           ReferenceKind = "return"
)

// MovementReference is a typed pointer to the originating business document.
type MovementReference struct {
	Kind ReferenceKind `gorm:"column:reference_kind;type:varchar(32);not null" json:"kind" validate:"required,oneof=initial_stock purchase_order stock_transfer stock_adjustment sales_transaction return"`
	ID   uuid.UUID     `gorm:"column:reference_id;type:uuid;not null" json:"id" validate:"uuid_required"`
}

// Valid reports whether the reference names a known document kind and a
// non-nil id.
func (ref MovementReference) Valid() bool {
	switch ref.Kind {
	case RefInitialStock, RefPurchaseOrder, RefStockTransfer,
		RefStockAdjustment, RefSalesTransaction, RefReturn:
		return ref.ID != uuid.Nil
	}
	return false
}

// StockMovement is one append-only ledger row: a single quantity change for a
// (product, store) pair, with before/after snapshots for audit and replay.
// Rows are immutable once written; corrections are offsetting movements,
// never edits. The auto-increment ID doubles as the insertion-order
// tiebreaker when replaying movements sharing a MovementDate.
type StockMovement struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_movements_replay,priority:1" json:"product_id" validate:"uuid_required"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;index:idx_stock_movements_replay,priority:2" json:"store_id" validate:"uuid_required"`
	Store     *Store    `gorm:"foreignKey:StoreID" json:"store,omitempty" validate:"-"`

	// UserID is the acting user, recorded as the JWT subject string.
	UserID string `gorm:"type:varchar(255)" json:"user_id"`

	Direction      MovementDirection `gorm:"type:varchar(5);not null" json:"direction" validate:"required,oneof=IN OUT"`
	Quantity       int               `gorm:"not null" json:"quantity" validate:"required,gt=0"`
	QuantityBefore int               `gorm:"not null" json:"quantity_before"`
	QuantityAfter  int               `gorm:"not null" json:"quantity_after"`

	// UnitCost is set only on costed inbounds (purchase receipts, initial
	// stock, transfers-in priced at the source store's average).
	UnitCost *decimal.Decimal `gorm:"type:decimal(18,4)" json:"unit_cost,omitempty"`

	Reference    MovementReference `gorm:"embedded" json:"reference"`
	Notes        string            `gorm:"type:text" json:"notes"`
	MovementDate time.Time         `gorm:"not null;index:idx_stock_movements_replay,priority:3" json:"movement_date"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// SignedQuantity is the quantity with the direction's sign applied.
func (m *StockMovement) SignedQuantity() int {
	if m.Direction == DirectionOut {
		return -m.Quantity
	}
	return m.Quantity
}

// BeforeSave guards the ledger's fundamental chain invariant at the lowest
// level: quantity_after = quantity_before + signed(quantity). A row violating
// it would poison every replay, so it is rejected before it can be written.
func (m *StockMovement) BeforeSave(tx *gorm.DB) error {
	if m.Direction != DirectionIn && m.Direction != DirectionOut {
		return &InvalidMovementError{Reason: fmt.Sprintf("unknown direction %q", m.Direction)}
	}
	if m.Quantity <= 0 {
		return &InvalidMovementError{Reason: "quantity must be positive"}
	}
	if m.QuantityAfter != m.QuantityBefore+m.SignedQuantity() {
		return &InvalidMovementError{Reason: fmt.Sprintf(
			"quantity chain broken: %d -> %d with signed change %d",
			m.QuantityBefore, m.QuantityAfter, m.SignedQuantity())}
	}
	return nil
}
