package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrInsufficientStock is returned when an outbound movement would drive
	// the on-hand quantity negative. Recoverable: the caller can block the
	// sale/transfer or route through an adjustment instead.
	ErrInsufficientStock = errors.New("insufficient stock remaining")

	// ErrConcurrentModification is returned when the per-(product, store) row
	// lock could not be acquired or the transaction lost a write race. The
	// whole mutation should be retried, not just part of it.
	ErrConcurrentModification = errors.New("inventory record is being modified concurrently, retry the operation")
)

// InvalidMovementError marks a caller bug: non-positive quantity, unknown
// direction, or a missing/unknown business document reference. Not retryable.
type InvalidMovementError struct {
	Reason string
}

func (e *InvalidMovementError) Error() string {
	return "invalid stock movement: " + e.Reason
}

// RecomputeItemError records one (product, store) pair that failed during a
// batch cost recompute. Batch runs collect these and continue instead of
// aborting the whole job.
type RecomputeItemError struct {
	ProductID uuid.UUID
	StoreID   uuid.UUID
	Err       error
}

func (e *RecomputeItemError) Error() string {
	return fmt.Sprintf("recompute failed for product %s at store %s: %v", e.ProductID, e.StoreID, e.Err)
}

func (e *RecomputeItemError) Unwrap() error {
	return e.Err
}

// MarshalJSON flattens the wrapped error so batch summaries serialize the
// failure reason instead of an empty object.
func (e *RecomputeItemError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"product_id": e.ProductID.String(),
		"store_id":   e.StoreID.String(),
		"error":      e.Err.Error(),
	})
}
