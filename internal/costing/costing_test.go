package costing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestBlend_WeightedAverage(t *testing.T) {
	// 10 units at 100 plus 5 units at 160 must average to 120.
	got := Blend(10, dec("100"), 5, dec("160"))
	if !got.Equal(dec("120")) {
		t.Errorf("expected 120, got %s", got)
	}
}

func TestBlend_EmptyTakesIncomingCost(t *testing.T) {
	got := Blend(0, decimal.Zero, 7, dec("59.99"))
	if !got.Equal(dec("59.99")) {
		t.Errorf("expected 59.99, got %s", got)
	}
}

func TestBlend_RoundsToFourPlaces(t *testing.T) {
	// (1*10 + 2*10.01) / 3 = 10.00666... -> 10.0067
	got := Blend(1, dec("10"), 2, dec("10.01"))
	if !got.Equal(dec("10.0067")) {
		t.Errorf("expected 10.0067, got %s", got)
	}
}

func TestApply_PurchaseThenOutbound(t *testing.T) {
	s := State{}

	s = s.Apply(Entry{Inbound: true, Quantity: 10, UnitCost: decPtr("50")})
	if s.Quantity != 10 || !s.AverageCost.Equal(dec("50")) {
		t.Fatalf("after first receipt: qty=%d avg=%s", s.Quantity, s.AverageCost)
	}

	s = s.Apply(Entry{Inbound: true, Quantity: 10, UnitCost: decPtr("70")})
	if s.Quantity != 20 || !s.AverageCost.Equal(dec("60")) {
		t.Fatalf("after second receipt: qty=%d avg=%s", s.Quantity, s.AverageCost)
	}

	// Outbound moves quantity only; the blended average is untouched.
	s = s.Apply(Entry{Inbound: false, Quantity: 15})
	if s.Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", s.Quantity)
	}
	if !s.AverageCost.Equal(dec("60")) {
		t.Errorf("outbound must not change average cost, got %s", s.AverageCost)
	}
}

func TestApply_UncostedInboundMovesQuantityOnly(t *testing.T) {
	s := State{Quantity: 4, AverageCost: dec("25")}

	s = s.Apply(Entry{Inbound: true, Quantity: 6})
	if s.Quantity != 10 {
		t.Errorf("expected quantity 10, got %d", s.Quantity)
	}
	if !s.AverageCost.Equal(dec("25")) {
		t.Errorf("uncosted inbound must not change average cost, got %s", s.AverageCost)
	}
}

func TestApply_DrainResetsAverage(t *testing.T) {
	s := State{Quantity: 3, AverageCost: dec("80")}

	s = s.Apply(Entry{Inbound: false, Quantity: 3})
	if s.Quantity != 0 {
		t.Fatalf("expected quantity 0, got %d", s.Quantity)
	}
	if !s.AverageCost.Equal(decimal.Zero) {
		t.Errorf("drained record must carry average zero, got %s", s.AverageCost)
	}

	// Restocking after a drain starts fresh from the incoming cost.
	s = s.Apply(Entry{Inbound: true, Quantity: 2, UnitCost: decPtr("95")})
	if !s.AverageCost.Equal(dec("95")) {
		t.Errorf("expected fresh average 95, got %s", s.AverageCost)
	}
}

func TestReplay_ReproducesRunningState(t *testing.T) {
	entries := []Entry{
		{Inbound: true, Quantity: 10, UnitCost: decPtr("100")},
		{Inbound: false, Quantity: 4},
		{Inbound: true, Quantity: 5, UnitCost: decPtr("160")},
		{Inbound: true, Quantity: 3},
		{Inbound: false, Quantity: 6},
	}

	// Incremental fold and replay must agree.
	incremental := State{AverageCost: decimal.Zero}
	for _, e := range entries {
		incremental = incremental.Apply(e)
	}

	replayed := Replay(entries)

	if replayed.Quantity != incremental.Quantity {
		t.Errorf("quantity mismatch: replay=%d incremental=%d", replayed.Quantity, incremental.Quantity)
	}
	if !replayed.AverageCost.Equal(incremental.AverageCost) {
		t.Errorf("average mismatch: replay=%s incremental=%s", replayed.AverageCost, incremental.AverageCost)
	}

	// (6*100 + 5*160) / 11 = 127.2727
	if replayed.Quantity != 8 {
		t.Errorf("expected quantity 8, got %d", replayed.Quantity)
	}
	if !replayed.AverageCost.Equal(dec("127.2727")) {
		t.Errorf("expected average 127.2727, got %s", replayed.AverageCost)
	}
}

func TestReplay_Idempotent(t *testing.T) {
	entries := []Entry{
		{Inbound: true, Quantity: 12, UnitCost: decPtr("40")},
		{Inbound: false, Quantity: 5},
		{Inbound: true, Quantity: 8, UnitCost: decPtr("55")},
	}

	first := Replay(entries)
	second := Replay(entries)

	if first.Quantity != second.Quantity || !first.AverageCost.Equal(second.AverageCost) {
		t.Errorf("replay is not idempotent: %+v vs %+v", first, second)
	}
}

func TestReplay_Empty(t *testing.T) {
	s := Replay(nil)
	if s.Quantity != 0 || !s.AverageCost.Equal(decimal.Zero) {
		t.Errorf("empty replay must yield the zero state, got %+v", s)
	}
}
