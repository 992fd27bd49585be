package repository

import (
	"go-pos-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository interface {
	FindByPair(productID, storeID uuid.UUID) (*model.InventoryRecord, error)
	// FindByPairForUpdate locks the row against concurrent writers for the
	// lifetime of tx. Must be called inside a transaction.
	FindByPairForUpdate(tx *gorm.DB, productID, storeID uuid.UUID) (*model.InventoryRecord, error)
	Create(tx *gorm.DB, record *model.InventoryRecord) error
	Save(tx *gorm.DB, record *model.InventoryRecord) error
	ListByStore(storeID uuid.UUID) ([]model.InventoryRecord, error)
	ListByProduct(productID uuid.UUID) ([]model.InventoryRecord, error)
	ListAll() ([]model.InventoryRecord, error)
	TotalStockValue() (decimal.Decimal, error)
	CountOutOfStock() (int64, error)
}

type inventoryRepo struct {
	db *gorm.DB
}

func NewInventoryRepo(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{db}
}

func (r *inventoryRepo) FindByPair(productID, storeID uuid.UUID) (*model.InventoryRecord, error) {
	var record model.InventoryRecord
	err := r.db.Preload("Product").Preload("Store").
		First(&record, "product_id = ? AND store_id = ?", productID, storeID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *inventoryRepo) FindByPairForUpdate(tx *gorm.DB, productID, storeID uuid.UUID) (*model.InventoryRecord, error) {
	var record model.InventoryRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&record, "product_id = ? AND store_id = ?", productID, storeID).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create menerima tx agar pembuatan record lazy ikut dalam transaksi mutasi
func (r *inventoryRepo) Create(tx *gorm.DB, record *model.InventoryRecord) error {
	return tx.Create(record).Error
}

func (r *inventoryRepo) Save(tx *gorm.DB, record *model.InventoryRecord) error {
	return tx.Save(record).Error
}

func (r *inventoryRepo) ListByStore(storeID uuid.UUID) ([]model.InventoryRecord, error) {
	var records []model.InventoryRecord
	err := r.db.Preload("Product").Preload("Store").
		Where("store_id = ?", storeID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *inventoryRepo) ListByProduct(productID uuid.UUID) ([]model.InventoryRecord, error) {
	var records []model.InventoryRecord
	err := r.db.Preload("Product").Preload("Store").
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *inventoryRepo) ListAll() ([]model.InventoryRecord, error) {
	var records []model.InventoryRecord
	err := r.db.Preload("Product").Preload("Store").
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *inventoryRepo) TotalStockValue() (decimal.Decimal, error) {
	var value decimal.NullDecimal
	err := r.db.Model(&model.InventoryRecord{}).
		Select("COALESCE(SUM(quantity * average_cost), 0)").
		Scan(&value).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !value.Valid {
		return decimal.Zero, nil
	}
	return value.Decimal, nil
}

func (r *inventoryRepo) CountOutOfStock() (int64, error) {
	var count int64
	err := r.db.Model(&model.InventoryRecord{}).
		Where("quantity = 0").
		Count(&count).Error
	return count, err
}
