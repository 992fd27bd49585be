package repository

import (
	"time"

	"go-pos-ledger/internal/costing"
	"go-pos-ledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// replayOrder is the canonical ledger ordering: movement date first, then
// insertion order as the tiebreaker.
const replayOrder = "movement_date ASC, id ASC"

type MovementRepository interface {
	// Append writes one ledger row inside the caller's transaction. This is
	// the only write path; movements are never updated or deleted.
	Append(tx *gorm.DB, movement *model.StockMovement) error
	ListByPair(productID, storeID uuid.UUID, limit int) ([]model.StockMovement, error)
	FindRecent(limit int) ([]model.StockMovement, error)
	// Replay folds all movements for the pair up to asOf (nil = all) from
	// zero and returns the terminal quantity. Used to detect drift between
	// the ledger and the cached InventoryRecord.
	Replay(productID, storeID uuid.UUID, asOf *time.Time) (int, error)
	// CostingEntries streams the pair's full movement history, oldest first,
	// as costing entries ready to fold.
	CostingEntries(tx *gorm.DB, productID, storeID uuid.UUID) ([]costing.Entry, error)
	// StoreIDsHoldingProduct lists every store the product has ever moved
	// through.
	StoreIDsHoldingProduct(productID uuid.UUID) ([]uuid.UUID, error)
	ProductIDsHeldAt(storeID uuid.UUID) ([]uuid.UUID, error)
	AllLedgerPairs() ([]LedgerPair, error)
	GetDailyThroughput(startDate, endDate time.Time) ([]DailyThroughput, error)
}

// LedgerPair identifies one (product, store) ledger.
type LedgerPair struct {
	ProductID uuid.UUID `json:"product_id"`
	StoreID   uuid.UUID `json:"store_id"`
}

// DailyThroughput untuk chart data
type DailyThroughput struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

func (r *movementRepo) Append(tx *gorm.DB, movement *model.StockMovement) error {
	return tx.Create(movement).Error
}

func (r *movementRepo) ListByPair(productID, storeID uuid.UUID, limit int) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	q := r.db.Where("product_id = ? AND store_id = ?", productID, storeID).
		Order("movement_date DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&movements).Error
	return movements, err
}

func (r *movementRepo) FindRecent(limit int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	var movements []model.StockMovement
	err := r.db.Preload("Product").Preload("Store").
		Order("movement_date DESC, id DESC").
		Limit(limit).
		Find(&movements).Error
	return movements, err
}

func (r *movementRepo) Replay(productID, storeID uuid.UUID, asOf *time.Time) (int, error) {
	q := r.db.Model(&model.StockMovement{}).
		Where("product_id = ? AND store_id = ?", productID, storeID).
		Order(replayOrder)
	if asOf != nil {
		q = q.Where("movement_date <= ?", *asOf)
	}

	rows, err := q.Select("direction, quantity").Rows()
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	quantity := 0
	for rows.Next() {
		var direction model.MovementDirection
		var qty int
		if err := rows.Scan(&direction, &qty); err != nil {
			return 0, err
		}
		if direction == model.DirectionOut {
			quantity -= qty
		} else {
			quantity += qty
		}
	}
	return quantity, rows.Err()
}

func (r *movementRepo) CostingEntries(tx *gorm.DB, productID, storeID uuid.UUID) ([]costing.Entry, error) {
	if tx == nil {
		tx = r.db
	}

	var movements []model.StockMovement
	err := tx.Where("product_id = ? AND store_id = ?", productID, storeID).
		Order(replayOrder).
		Find(&movements).Error
	if err != nil {
		return nil, err
	}

	entries := make([]costing.Entry, len(movements))
	for i, m := range movements {
		entries[i] = costing.Entry{
			Inbound:  m.Direction == model.DirectionIn,
			Quantity: m.Quantity,
			UnitCost: m.UnitCost,
		}
	}
	return entries, nil
}

func (r *movementRepo) StoreIDsHoldingProduct(productID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&model.StockMovement{}).
		Where("product_id = ?", productID).
		Distinct("store_id").
		Pluck("store_id", &ids).Error
	return ids, err
}

func (r *movementRepo) ProductIDsHeldAt(storeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&model.StockMovement{}).
		Where("store_id = ?", storeID).
		Distinct("product_id").
		Pluck("product_id", &ids).Error
	return ids, err
}

func (r *movementRepo) AllLedgerPairs() ([]LedgerPair, error) {
	var pairs []LedgerPair
	err := r.db.Model(&model.StockMovement{}).
		Distinct("product_id, store_id").
		Order("product_id").
		Find(&pairs).Error
	return pairs, err
}

func (r *movementRepo) GetDailyThroughput(startDate, endDate time.Time) ([]DailyThroughput, error) {
	var results []DailyThroughput

	// Query untuk aggregate movements per hari
	rows, err := r.db.Model(&model.StockMovement{}).
		Select(`
			DATE(movement_date) as date,
			COALESCE(SUM(CASE WHEN direction = 'IN' THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN direction = 'OUT' THEN quantity ELSE 0 END), 0) as outbound
		`).
		Where("movement_date BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(movement_date)").
		Order("date ASC").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data DailyThroughput
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
