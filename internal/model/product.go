package model

import "github.com/shopspring/decimal"

// Product is a catalog entry. Per-store stock lives in InventoryRecord, never
// on the product itself. PurchasePrice is the last known acquisition price and
// doubles as a nominal average cost for products with no costed movement
// history.
type Product struct {
	BaseModel
	SKU     string `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Barcode string `gorm:"type:varchar(64);index" json:"barcode"`
	Name    string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Unit    string `gorm:"type:varchar(20)" json:"unit"`

	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"purchase_price" validate:"decimal_nonneg"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"selling_price" validate:"decimal_nonneg"`

	// MinimumStock is the catalog-wide reorder default; stores can override
	// it on their InventoryRecord.
	MinimumStock int  `gorm:"not null;default:0" json:"minimum_stock"`
	TrackStock   bool `gorm:"not null;default:true" json:"track_stock"`

	// User tracking
	CreatedByUserID *string `gorm:"type:varchar(255)" json:"created_by_user_id,omitempty"`
	UpdatedByUserID *string `gorm:"type:varchar(255)" json:"updated_by_user_id,omitempty"`
	CreatedByUser   *User   `gorm:"foreignKey:CreatedByUserID;references:ID" json:"created_by_user,omitempty"`
	UpdatedByUser   *User   `gorm:"foreignKey:UpdatedByUserID;references:ID" json:"updated_by_user,omitempty"`
}
