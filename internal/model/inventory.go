package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go-pos-ledger/internal/costing"
)

// StockAlertStatus classifies how urgently a record needs restocking.
type StockAlertStatus string

const (
	StockStatusOK       StockAlertStatus = "ok"
	StockStatusWarning  StockAlertStatus = "warning"
	StockStatusLow      StockAlertStatus = "low"
	StockStatusCritical StockAlertStatus = "critical"
)

// InventoryRecord is the materialized stock state for one (product, store)
// pair: current quantity plus the weighted-average cost of the units held.
// It is a projection over the stock movement log; replaying the log from
// empty state must reproduce Quantity exactly.
//
// AverageCost is defined only from movements that carry a cost (purchases,
// initial stock, transfers-in). Outbound movements change Quantity only.
type InventoryRecord struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_records_product_store,priority:1" json:"product_id" validate:"uuid_required"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_records_product_store,priority:2" json:"store_id" validate:"uuid_required"`
	Store     *Store    `gorm:"foreignKey:StoreID" json:"store,omitempty" validate:"-"`

	Quantity    int             `gorm:"not null;default:0" json:"quantity"`
	AverageCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"average_cost"`
	LastCost    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"last_cost"`

	// Store-specific reorder thresholds; zero MinimumStock falls back to the
	// product's catalog default.
	MinimumStock int    `gorm:"not null;default:0" json:"minimum_stock"`
	MaximumStock int    `gorm:"not null;default:0" json:"maximum_stock"`
	Location     string `gorm:"type:varchar(100)" json:"location"`

	LastRestockDate *time.Time `json:"last_restock_date,omitempty"`
}

// TableName specifies the table name for GORM
func (InventoryRecord) TableName() string {
	return "inventory_records"
}

// Receive applies an inbound movement of qty units. When unitCost is set
// (purchase receipt, initial stock, transfer-in at the source's average) the
// weighted-average cost is reblended and LastCost updated; an uncosted
// inbound moves quantity only.
func (r *InventoryRecord) Receive(qty int, unitCost *decimal.Decimal, at time.Time) error {
	if qty <= 0 {
		return &InvalidMovementError{Reason: "quantity must be positive"}
	}

	if unitCost != nil {
		r.AverageCost = costing.Blend(r.Quantity, r.AverageCost, qty, *unitCost)
		r.LastCost = *unitCost
	}
	r.Quantity += qty
	r.LastRestockDate = &at
	return nil
}

// Issue applies an outbound movement of qty units. Quantity must not go
// negative; AverageCost and LastCost stay untouched except that a full drain
// resets the average to zero.
func (r *InventoryRecord) Issue(qty int) error {
	if qty <= 0 {
		return &InvalidMovementError{Reason: "quantity must be positive"}
	}
	if qty > r.Quantity {
		return ErrInsufficientStock
	}

	r.Quantity -= qty
	if r.Quantity == 0 {
		r.AverageCost = decimal.Zero
	}
	return nil
}

// StockValue is the valuation of the units on hand at the blended rate.
func (r *InventoryRecord) StockValue() decimal.Decimal {
	return r.AverageCost.Mul(decimal.NewFromInt(int64(r.Quantity)))
}

// EffectiveMinimum resolves the reorder threshold: the store override wins,
// otherwise the product's catalog default applies.
func (r *InventoryRecord) EffectiveMinimum() int {
	if r.MinimumStock > 0 {
		return r.MinimumStock
	}
	if r.Product != nil {
		return r.Product.MinimumStock
	}
	return 0
}

// AlertStatus derives the restock alert level: critical at zero on hand, low
// at or below the minimum, warning inside a 1.5x band above it.
func (r *InventoryRecord) AlertStatus() StockAlertStatus {
	if r.Quantity == 0 {
		return StockStatusCritical
	}

	minimum := r.EffectiveMinimum()
	if minimum <= 0 {
		return StockStatusOK
	}
	if r.Quantity <= minimum {
		return StockStatusLow
	}
	if r.Quantity*2 <= minimum*3 {
		return StockStatusWarning
	}
	return StockStatusOK
}
