package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bounded retry for lock/serialization conflicts; after this the caller gets
// ErrConcurrentModification and decides whether to try again.
const maxMutationAttempts = 3

// lockTimeout bounds how long a mutation waits on a contended row before
// failing with a retryable error instead of blocking indefinitely.
const lockTimeout = "3s"

// MovementInput is the full mutation contract of the stock ledger: one
// quantity change for a (product, store) pair, traced to the business
// document that caused it.
type MovementInput struct {
	ProductID    uuid.UUID               `json:"product_id" validate:"uuid_required"`
	StoreID      uuid.UUID               `json:"store_id" validate:"uuid_required"`
	ActorID      string                  `json:"-"`
	Direction    model.MovementDirection `json:"direction" validate:"required,oneof=IN OUT"`
	Quantity     int                     `json:"quantity" validate:"required,gt=0"`
	Reference    model.MovementReference `json:"reference"`
	UnitCost     *decimal.Decimal        `json:"unit_cost,omitempty"`
	Notes        string                  `json:"notes"`
	MovementDate *time.Time              `json:"movement_date,omitempty"`
}

// StockLevel is the read projection per (product, store): current state plus
// the derived valuation and alert status.
type StockLevel struct {
	ProductID       uuid.UUID              `json:"product_id"`
	StoreID         uuid.UUID              `json:"store_id"`
	Product         *model.Product         `json:"product,omitempty"`
	Store           *model.Store           `json:"store,omitempty"`
	Quantity        int                    `json:"quantity"`
	AverageCost     decimal.Decimal        `json:"average_cost"`
	LastCost        decimal.Decimal        `json:"last_cost"`
	NominalUnitCost decimal.Decimal        `json:"nominal_unit_cost"`
	StockValue      decimal.Decimal        `json:"stock_value"`
	Status          model.StockAlertStatus `json:"status"`
	MinimumStock    int                    `json:"minimum_stock"`
	MaximumStock    int                    `json:"maximum_stock"`
	Location        string                 `json:"location,omitempty"`
	LastRestockDate *time.Time             `json:"last_restock_date,omitempty"`
}

type StockService interface {
	// ApplyMovement is the sole entry point that changes an InventoryRecord's
	// quantity. It writes exactly one StockMovement and the updated record in
	// a single transaction; a validation failure leaves no side effects.
	ApplyMovement(ctx context.Context, input *MovementInput) (*model.InventoryRecord, error)
	// Transfer moves stock between stores: an outbound at the source and an
	// inbound at the destination priced at the source's average cost at time
	// of shipment.
	Transfer(ctx context.Context, productID, fromStoreID, toStoreID uuid.UUID, quantity int, actorID string, transferID uuid.UUID, notes string) error
	GetStock(productID, storeID uuid.UUID) (*StockLevel, error)
	// ListStock filters by store and/or product; nil filters list everything.
	ListStock(storeID, productID *uuid.UUID) ([]StockLevel, error)
	GetMovements(productID, storeID uuid.UUID, limit int) ([]model.StockMovement, error)
	// VerifyReplay reports the ledger-derived quantity next to the cached one
	// so drift can be detected before deciding to recompute.
	VerifyReplay(productID, storeID uuid.UUID) (ledgerQty, recordQty int, err error)
}

type stockService struct {
	inventoryRepo repository.InventoryRepository
	movementRepo  repository.MovementRepository
	productRepo   repository.ProductRepository
	db            *gorm.DB
	wsHub         *ws.Hub
}

func NewStockService(invRepo repository.InventoryRepository, movRepo repository.MovementRepository, pRepo repository.ProductRepository, db *gorm.DB, hub *ws.Hub) StockService {
	return &stockService{
		inventoryRepo: invRepo,
		movementRepo:  movRepo,
		productRepo:   pRepo,
		db:            db,
		wsHub:         hub,
	}
}

func (s *stockService) ApplyMovement(ctx context.Context, input *MovementInput) (*model.InventoryRecord, error) {
	record, _, err := s.applyMovement(ctx, input)
	return record, err
}

// applyMovement additionally reports the record's average cost at lock time,
// before the movement changed anything. Transfer prices its inbound leg with
// that value so a concurrent receipt cannot reprice the goods in flight.
func (s *stockService) applyMovement(ctx context.Context, input *MovementInput) (*model.InventoryRecord, decimal.Decimal, error) {
	// 1. Validasi Input
	if errs := validator.ValidateStruct(input); len(errs) > 0 {
		firstErr := errs[0]
		return nil, decimal.Zero, &model.InvalidMovementError{
			Reason: fmt.Sprintf("field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag),
		}
	}
	if !input.Reference.Valid() {
		return nil, decimal.Zero, &model.InvalidMovementError{Reason: "missing or unknown business document reference"}
	}
	if input.Direction == model.DirectionOut && input.UnitCost != nil {
		return nil, decimal.Zero, &model.InvalidMovementError{Reason: "outbound movements never carry a unit cost"}
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, decimal.Zero, &model.InvalidMovementError{Reason: "unit cost must not be negative"}
	}

	// 2. Product must exist and track stock
	product, err := s.productRepo.FindByID(input.ProductID)
	if err != nil {
		return nil, decimal.Zero, &model.InvalidMovementError{Reason: "product not found"}
	}
	if !product.TrackStock {
		return nil, decimal.Zero, &model.InvalidMovementError{Reason: "product does not track stock"}
	}

	movementDate := time.Now()
	if input.MovementDate != nil {
		movementDate = *input.MovementDate
	}

	// 3. Mutasi atomik dengan retry pada konflik lock
	var record *model.InventoryRecord
	var avgBefore decimal.Decimal
	for attempt := 1; ; attempt++ {
		record, avgBefore, err = s.applyOnce(ctx, input, movementDate)
		if err == nil {
			break
		}
		if !isLockConflict(err) {
			return nil, decimal.Zero, err
		}
		if attempt >= maxMutationAttempts {
			return nil, decimal.Zero, model.ErrConcurrentModification
		}
	}

	// 4. Broadcast ke WebSocket
	s.broadcastMovement(input, record)

	return record, avgBefore, nil
}

// applyOnce runs one attempt of the read-modify-write as a single
// transaction: lock (or lazily create) the record, apply the change, append
// the ledger row, save the record. Both writes commit or neither does.
// avgBefore is the locked record's average cost before the movement applied.
func (s *stockService) applyOnce(ctx context.Context, input *MovementInput, movementDate time.Time) (*model.InventoryRecord, decimal.Decimal, error) {
	var record *model.InventoryRecord
	var avgBefore decimal.Decimal

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SET LOCAL lock_timeout = '" + lockTimeout + "'").Error; err != nil {
			return err
		}

		existing, err := s.inventoryRepo.FindByPairForUpdate(tx, input.ProductID, input.StoreID)
		switch {
		case err == nil:
			record = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Lazy creation: the first movement introduces the product to
			// the store. An outbound against a record that never existed is
			// plain insufficient stock.
			if input.Direction == model.DirectionOut {
				return model.ErrInsufficientStock
			}
			record = &model.InventoryRecord{
				ProductID:   input.ProductID,
				StoreID:     input.StoreID,
				AverageCost: decimal.Zero,
				LastCost:    decimal.Zero,
			}
			record.CreatedBy = input.ActorID
			record.UpdatedBy = input.ActorID
			if err := s.inventoryRepo.Create(tx, record); err != nil {
				return err
			}
		default:
			return err
		}

		before := record.Quantity
		avgBefore = record.AverageCost

		if input.Direction == model.DirectionIn {
			if err := record.Receive(input.Quantity, input.UnitCost, movementDate); err != nil {
				return err
			}
		} else {
			if err := record.Issue(input.Quantity); err != nil {
				return err
			}
		}

		movement := &model.StockMovement{
			ProductID:      input.ProductID,
			StoreID:        input.StoreID,
			UserID:         input.ActorID,
			Direction:      input.Direction,
			Quantity:       input.Quantity,
			QuantityBefore: before,
			QuantityAfter:  record.Quantity,
			UnitCost:       input.UnitCost,
			Reference:      input.Reference,
			Notes:          input.Notes,
			MovementDate:   movementDate,
		}
		if err := s.movementRepo.Append(tx, movement); err != nil {
			return err
		}

		record.UpdatedBy = input.ActorID
		return s.inventoryRepo.Save(tx, record)
	})
	if err != nil {
		return nil, decimal.Zero, err
	}
	return record, avgBefore, nil
}

func (s *stockService) Transfer(ctx context.Context, productID, fromStoreID, toStoreID uuid.UUID, quantity int, actorID string, transferID uuid.UUID, notes string) error {
	if fromStoreID == toStoreID {
		return &model.InvalidMovementError{Reason: "transfer source and destination are the same store"}
	}

	ref := model.MovementReference{Kind: model.RefStockTransfer, ID: transferID}

	// Cost travels with the transfer: the ship cost is the source's average
	// read under the outbound leg's row lock, so no concurrent receipt can
	// reprice the goods between the read and the shipment.
	_, shipCost, err := s.applyMovement(ctx, &MovementInput{
		ProductID: productID,
		StoreID:   fromStoreID,
		ActorID:   actorID,
		Direction: model.DirectionOut,
		Quantity:  quantity,
		Reference: ref,
		Notes:     notes,
	})
	if err != nil {
		return err
	}

	if _, err := s.ApplyMovement(ctx, &MovementInput{
		ProductID: productID,
		StoreID:   toStoreID,
		ActorID:   actorID,
		Direction: model.DirectionIn,
		Quantity:  quantity,
		Reference: ref,
		UnitCost:  &shipCost,
		Notes:     notes,
	}); err != nil {
		// Compensate the outbound leg so the source store is made whole.
		// The offsetting movement keeps history append-only.
		if _, compErr := s.ApplyMovement(ctx, &MovementInput{
			ProductID: productID,
			StoreID:   fromStoreID,
			ActorID:   actorID,
			Direction: model.DirectionIn,
			Quantity:  quantity,
			Reference: ref,
			UnitCost:  &shipCost,
			Notes:     "transfer reversal: " + err.Error(),
		}); compErr != nil {
			return fmt.Errorf("transfer inbound failed (%w) and compensation failed: %v", err, compErr)
		}
		return err
	}

	return nil
}

func (s *stockService) GetStock(productID, storeID uuid.UUID) (*StockLevel, error) {
	record, err := s.inventoryRepo.FindByPair(productID, storeID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// No record yet: report zero stock rather than an error.
		product, perr := s.productRepo.FindByID(productID)
		if perr != nil {
			return nil, perr
		}
		record = &model.InventoryRecord{
			ProductID:   productID,
			StoreID:     storeID,
			Product:     product,
			AverageCost: decimal.Zero,
			LastCost:    decimal.Zero,
		}
	}
	level := toStockLevel(record)
	return &level, nil
}

func (s *stockService) ListStock(storeID, productID *uuid.UUID) ([]StockLevel, error) {
	var records []model.InventoryRecord
	var err error
	switch {
	case storeID != nil:
		records, err = s.inventoryRepo.ListByStore(*storeID)
		if err == nil && productID != nil {
			filtered := records[:0]
			for _, r := range records {
				if r.ProductID == *productID {
					filtered = append(filtered, r)
				}
			}
			records = filtered
		}
	case productID != nil:
		records, err = s.inventoryRepo.ListByProduct(*productID)
	default:
		records, err = s.inventoryRepo.ListAll()
	}
	if err != nil {
		return nil, err
	}

	levels := make([]StockLevel, len(records))
	for i := range records {
		levels[i] = toStockLevel(&records[i])
	}
	return levels, nil
}

func (s *stockService) GetMovements(productID, storeID uuid.UUID, limit int) ([]model.StockMovement, error) {
	return s.movementRepo.ListByPair(productID, storeID, limit)
}

func (s *stockService) VerifyReplay(productID, storeID uuid.UUID) (int, int, error) {
	ledgerQty, err := s.movementRepo.Replay(productID, storeID, nil)
	if err != nil {
		return 0, 0, err
	}

	record, err := s.inventoryRepo.FindByPair(productID, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledgerQty, 0, nil
		}
		return 0, 0, err
	}
	return ledgerQty, record.Quantity, nil
}

// toStockLevel derives the read view. A record that never saw a costed
// movement reports the product's static purchase price as its nominal unit
// cost so valuation reports never show an undefined cost.
func toStockLevel(record *model.InventoryRecord) StockLevel {
	nominal := record.AverageCost
	if nominal.IsZero() && record.Product != nil {
		nominal = record.Product.PurchasePrice
	}

	return StockLevel{
		ProductID:       record.ProductID,
		StoreID:         record.StoreID,
		Product:         record.Product,
		Store:           record.Store,
		Quantity:        record.Quantity,
		AverageCost:     record.AverageCost,
		LastCost:        record.LastCost,
		NominalUnitCost: nominal,
		StockValue:      record.StockValue(),
		Status:          record.AlertStatus(),
		MinimumStock:    record.EffectiveMinimum(),
		MaximumStock:    record.MaximumStock,
		Location:        record.Location,
		LastRestockDate: record.LastRestockDate,
	}
}

func (s *stockService) broadcastMovement(input *MovementInput, record *model.InventoryRecord) {
	if s.wsHub == nil {
		return
	}
	go s.wsHub.BroadcastEvent(ws.Event{
		Type:    "stock_update",
		Action:  "movement_applied",
		ActorID: input.ActorID,
		Payload: map[string]interface{}{
			"product_id":   input.ProductID,
			"store_id":     input.StoreID,
			"direction":    input.Direction,
			"quantity":     input.Quantity,
			"reference":    input.Reference,
			"new_quantity": record.Quantity,
		},
	})
}

// isLockConflict classifies Postgres errors that mean "another writer holds
// the row": lock timeout, serialization failure, deadlock. These are the
// retryable contention cases.
func isLockConflict(err error) bool {
	if errors.Is(err, model.ErrConcurrentModification) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40001", "40P01":
			return true
		}
	}
	return false
}
