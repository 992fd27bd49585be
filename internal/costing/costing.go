// Package costing implements the weighted-average inventory valuation math.
// All on-hand units of a product share one blended unit cost, recalculated on
// each costed inbound receipt. The functions here are pure so the arithmetic
// can be verified without a database.
package costing

import "github.com/shopspring/decimal"

// Blend applies the weighted-average update rule for a costed inbound of
// qtyNew units at unitCostNew against the currently held qtyOld units valued
// at avgOld. With nothing on hand there is no prior value to blend, so the
// new average is simply the incoming unit cost.
func Blend(qtyOld int, avgOld decimal.Decimal, qtyNew int, unitCostNew decimal.Decimal) decimal.Decimal {
	if qtyOld <= 0 {
		return unitCostNew
	}

	totalValue := avgOld.Mul(decimal.NewFromInt(int64(qtyOld))).
		Add(unitCostNew.Mul(decimal.NewFromInt(int64(qtyNew))))

	return totalValue.DivRound(decimal.NewFromInt(int64(qtyOld+qtyNew)), 4)
}

// Entry is one stock movement as seen by the costing replay, oldest first.
// UnitCost is set only for costed inbounds (purchase receipts, initial stock,
// transfers-in shipping at the source store's average).
type Entry struct {
	Inbound  bool
	Quantity int
	UnitCost *decimal.Decimal
}

// State is the running (quantity, average cost) pair of a replay.
type State struct {
	Quantity    int
	AverageCost decimal.Decimal
}

// Apply folds a single entry into the state.
//
// A costed inbound blends into the average; an uncosted inbound moves
// quantity only. Outbound entries reduce quantity without re-entering the
// costing formula: the average-cost method treats all held units as fungible
// at the current blended rate. Draining to zero resets the average, so a
// record with nothing on hand always carries cost zero until restocked.
func (s State) Apply(e Entry) State {
	if e.Inbound {
		if e.UnitCost != nil {
			s.AverageCost = Blend(s.Quantity, s.AverageCost, e.Quantity, *e.UnitCost)
		}
		s.Quantity += e.Quantity
		return s
	}

	s.Quantity -= e.Quantity
	if s.Quantity <= 0 {
		s.AverageCost = decimal.Zero
	}
	return s
}

// Replay folds every entry in order from the empty state. This is the
// authoritative repair path: the movement log is the source of truth, and
// replaying it from scratch reproduces both the current quantity and the
// blended average regardless of what the cached record says.
func Replay(entries []Entry) State {
	state := State{AverageCost: decimal.Zero}
	for _, e := range entries {
		state = state.Apply(e)
	}
	return state
}
