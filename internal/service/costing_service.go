package service

import (
	"context"
	"errors"
	"fmt"

	"go-pos-ledger/internal/costing"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecomputeSummary tallies a repair run. Item failures are collected, not
// raised: one broken product must not abort the whole batch.
type RecomputeSummary struct {
	Processed int                        `json:"processed"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
	Failures  []*model.RecomputeItemError `json:"failures,omitempty"`
	// Stopped is set when the run was cancelled between products; already
	// repaired records stay repaired and the run can simply be restarted.
	Stopped bool `json:"stopped"`
}

// ProgressFunc is invoked after each product so long-running repair jobs can
// surface incremental status. itemErr is nil on success.
type ProgressFunc func(productID uuid.UUID, processed, total int, itemErr error)

// CostingService repairs drifted inventory records by replaying the movement
// log from scratch. The log is the source of truth; the cached record can
// drift after back-dated corrections or manual data fixes.
type CostingService interface {
	RecomputeForProduct(ctx context.Context, productID uuid.UUID) (*RecomputeSummary, error)
	RecomputeForStore(ctx context.Context, storeID uuid.UUID) (*RecomputeSummary, error)
	RecomputeAll(ctx context.Context, progress ProgressFunc) (*RecomputeSummary, error)
}

type costingService struct {
	inventoryRepo repository.InventoryRepository
	movementRepo  repository.MovementRepository
	db            *gorm.DB
}

func NewCostingService(invRepo repository.InventoryRepository, movRepo repository.MovementRepository, db *gorm.DB) CostingService {
	return &costingService{
		inventoryRepo: invRepo,
		movementRepo:  movRepo,
		db:            db,
	}
}

func (s *costingService) RecomputeForProduct(ctx context.Context, productID uuid.UUID) (*RecomputeSummary, error) {
	storeIDs, err := s.movementRepo.StoreIDsHoldingProduct(productID)
	if err != nil {
		return nil, err
	}

	pairs := make([]repository.LedgerPair, len(storeIDs))
	for i, storeID := range storeIDs {
		pairs[i] = repository.LedgerPair{ProductID: productID, StoreID: storeID}
	}
	return s.recomputePairs(ctx, pairs, nil)
}

func (s *costingService) RecomputeForStore(ctx context.Context, storeID uuid.UUID) (*RecomputeSummary, error) {
	productIDs, err := s.movementRepo.ProductIDsHeldAt(storeID)
	if err != nil {
		return nil, err
	}

	pairs := make([]repository.LedgerPair, len(productIDs))
	for i, productID := range productIDs {
		pairs[i] = repository.LedgerPair{ProductID: productID, StoreID: storeID}
	}
	return s.recomputePairs(ctx, pairs, nil)
}

func (s *costingService) RecomputeAll(ctx context.Context, progress ProgressFunc) (*RecomputeSummary, error) {
	pairs, err := s.movementRepo.AllLedgerPairs()
	if err != nil {
		return nil, err
	}
	return s.recomputePairs(ctx, pairs, progress)
}

// recomputePairs walks the pairs sequentially. Cancellation is honored
// between pairs only: the in-flight transaction always finishes, so a
// graceful stop never leaves a half-repaired record.
func (s *costingService) recomputePairs(ctx context.Context, pairs []repository.LedgerPair, progress ProgressFunc) (*RecomputeSummary, error) {
	summary := &RecomputeSummary{}
	total := len(pairs)

	for _, pair := range pairs {
		if ctx.Err() != nil {
			summary.Stopped = true
			break
		}

		err := s.recomputePair(ctx, pair.ProductID, pair.StoreID)
		summary.Processed++
		if err != nil {
			summary.Failed++
			itemErr := &model.RecomputeItemError{
				ProductID: pair.ProductID,
				StoreID:   pair.StoreID,
				Err:       err,
			}
			summary.Failures = append(summary.Failures, itemErr)
			if progress != nil {
				progress(pair.ProductID, summary.Processed, total, itemErr)
			}
			continue
		}

		summary.Succeeded++
		if progress != nil {
			progress(pair.ProductID, summary.Processed, total, nil)
		}
	}

	return summary, nil
}

// recomputePair replays one (product, store) ledger from empty state and
// writes the result back under the same row lock ordinary mutations take, so
// a recompute never races a live sale or receipt on the same record.
func (s *costingService) recomputePair(ctx context.Context, productID, storeID uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SET LOCAL lock_timeout = '" + lockTimeout + "'").Error; err != nil {
			return err
		}

		record, err := s.inventoryRepo.FindByPairForUpdate(tx, productID, storeID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			// Movements exist but the projection is missing entirely
			// (e.g. a botched manual fix deleted it). Rebuild it.
			record = &model.InventoryRecord{
				ProductID:   productID,
				StoreID:     storeID,
				AverageCost: decimal.Zero,
				LastCost:    decimal.Zero,
			}
			record.CreatedBy = "costing-recompute"
			if err := s.inventoryRepo.Create(tx, record); err != nil {
				return err
			}
		}

		entries, err := s.movementRepo.CostingEntries(tx, productID, storeID)
		if err != nil {
			return err
		}

		state := costing.Replay(entries)
		if state.Quantity < 0 {
			// The stored quantity never goes negative, so a negative replay
			// means the log itself is broken (manual edits, deleted rows).
			// Refuse to persist it; the history needs an offsetting
			// correction first.
			return fmt.Errorf("ledger replays to negative quantity %d, history needs an offsetting correction", state.Quantity)
		}
		if record.Quantity == state.Quantity && record.AverageCost.Equal(state.AverageCost) {
			// Already correct; rerunning a repair is a no-op.
			return nil
		}

		record.Quantity = state.Quantity
		record.AverageCost = state.AverageCost
		record.UpdatedBy = "costing-recompute"
		return s.inventoryRepo.Save(tx, record)
	})

	if isLockConflict(err) {
		return model.ErrConcurrentModification
	}
	return err
}
