package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
)

// getTestDB connects to a throwaway Postgres database. Tests are skipped
// when none is reachable so the pure logic tests still run everywhere.
func getTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=pos_ledger_test port=5432 sslmode=disable TimeZone=UTC"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		t.Skipf("Postgres not available")
	}

	if err := db.AutoMigrate(
		&model.Product{}, &model.Store{},
		&model.InventoryRecord{}, &model.StockMovement{},
	); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db
}

type testEnv struct {
	db      *gorm.DB
	stock   StockService
	costing CostingService
	product *model.Product
	store   *model.Store
	store2  *model.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := getTestDB(t)

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	product := &model.Product{
		SKU:           "TEST-" + suffix,
		Name:          "Test Product " + suffix,
		Unit:          "pcs",
		PurchasePrice: decimal.NewFromInt(45),
		TrackStock:    true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	store := &model.Store{Code: "TS1-" + suffix, Name: "Test Store 1", IsActive: true}
	store2 := &model.Store{Code: "TS2-" + suffix, Name: "Test Store 2", IsActive: true}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("create store failed: %v", err)
	}
	if err := db.Create(store2).Error; err != nil {
		t.Fatalf("create store failed: %v", err)
	}

	t.Cleanup(func() {
		db.Where("product_id = ?", product.ID).Delete(&model.StockMovement{})
		db.Unscoped().Where("product_id = ?", product.ID).Delete(&model.InventoryRecord{})
		db.Unscoped().Delete(product)
		db.Unscoped().Delete(store)
		db.Unscoped().Delete(store2)
	})

	invRepo := repository.NewInventoryRepo(db)
	movRepo := repository.NewMovementRepo(db)
	prodRepo := repository.NewProductRepo(db)

	return &testEnv{
		db:      db,
		stock:   NewStockService(invRepo, movRepo, prodRepo, db, nil),
		costing: NewCostingService(invRepo, movRepo, db),
		product: product,
		store:   store,
		store2:  store2,
	}
}

func (e *testEnv) movement(direction model.MovementDirection, qty int, unitCost *decimal.Decimal) *MovementInput {
	return &MovementInput{
		ProductID: e.product.ID,
		StoreID:   e.store.ID,
		ActorID:   "test-user",
		Direction: direction,
		Quantity:  qty,
		UnitCost:  unitCost,
		Reference: model.MovementReference{Kind: model.RefStockAdjustment, ID: uuid.New()},
	}
}

func costPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestApplyMovement_WeightedAverageScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Receive 10 at 50, then 10 at 70: the average blends to 60.
	rec, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(50)))
	if err != nil {
		t.Fatalf("first receipt failed: %v", err)
	}
	if rec.Quantity != 10 || !rec.AverageCost.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("after first receipt: qty=%d avg=%s", rec.Quantity, rec.AverageCost)
	}

	rec, err = env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(70)))
	if err != nil {
		t.Fatalf("second receipt failed: %v", err)
	}
	if rec.Quantity != 20 || !rec.AverageCost.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("after second receipt: qty=%d avg=%s", rec.Quantity, rec.AverageCost)
	}

	// Issue 15: quantity drops, the average stays.
	rec, err = env.stock.ApplyMovement(ctx, env.movement(model.DirectionOut, 15, nil))
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if rec.Quantity != 5 || !rec.AverageCost.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("after issue: qty=%d avg=%s", rec.Quantity, rec.AverageCost)
	}

	// Issuing 10 with 5 on hand must fail and leave no trace.
	_, err = env.stock.ApplyMovement(ctx, env.movement(model.DirectionOut, 10, nil))
	if !errors.Is(err, model.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	var count int64
	env.db.Model(&model.StockMovement{}).
		Where("product_id = ? AND store_id = ?", env.product.ID, env.store.ID).
		Count(&count)
	if count != 3 {
		t.Errorf("rejected movement must not be logged: expected 3 rows, got %d", count)
	}

	level, err := env.stock.GetStock(env.product.ID, env.store.ID)
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if level.Quantity != 5 {
		t.Errorf("failed movement must not change stock: got qty=%d", level.Quantity)
	}
	if !level.StockValue.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected stock value 300, got %s", level.StockValue)
	}
}

func TestApplyMovement_RejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input *MovementInput
	}{
		{"outbound with unit cost", env.movement(model.DirectionOut, 5, costPtr(10))},
		{"missing reference", func() *MovementInput {
			m := env.movement(model.DirectionIn, 5, costPtr(10))
			m.Reference = model.MovementReference{}
			return m
		}()},
		{"nil product", func() *MovementInput {
			m := env.movement(model.DirectionIn, 5, costPtr(10))
			m.ProductID = uuid.Nil
			return m
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.stock.ApplyMovement(ctx, tt.input)
			var invalid *model.InvalidMovementError
			if !errors.As(err, &invalid) {
				t.Errorf("expected InvalidMovementError, got: %v", err)
			}
		})
	}
}

func TestApplyMovement_ConcurrentOutbounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(50))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}

	var successCount, failCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionOut, 1, nil))
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != 10 {
		t.Errorf("expected exactly 10 successful issues, got %d (failed: %d)", successCount.Load(), failCount.Load())
	}

	level, err := env.stock.GetStock(env.product.ID, env.store.ID)
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if level.Quantity != 0 {
		t.Errorf("stock must never go negative: got %d", level.Quantity)
	}

	ledgerQty, recordQty, err := env.stock.VerifyReplay(env.product.ID, env.store.ID)
	if err != nil {
		t.Fatalf("verify replay failed: %v", err)
	}
	if ledgerQty != recordQty {
		t.Errorf("ledger and record disagree after concurrency: ledger=%d record=%d", ledgerQty, recordQty)
	}
}

// saveFailInventoryRepo refuses the record write so the transaction fails
// after the movement row has already been appended.
type saveFailInventoryRepo struct {
	repository.InventoryRepository
}

func (r *saveFailInventoryRepo) Save(tx *gorm.DB, record *model.InventoryRecord) error {
	return errors.New("record write refused")
}

func TestApplyMovement_AtomicOnRecordWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(50))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}

	// Same database, but the record save fails after the ledger append.
	broken := NewStockService(
		&saveFailInventoryRepo{repository.NewInventoryRepo(env.db)},
		repository.NewMovementRepo(env.db),
		repository.NewProductRepo(env.db),
		env.db, nil,
	)

	_, err := broken.ApplyMovement(ctx, env.movement(model.DirectionOut, 3, nil))
	if err == nil {
		t.Fatal("expected the forced record write failure to surface")
	}

	// Neither write may survive: no new ledger row, record untouched.
	var count int64
	env.db.Model(&model.StockMovement{}).
		Where("product_id = ? AND store_id = ?", env.product.ID, env.store.ID).
		Count(&count)
	if count != 1 {
		t.Errorf("movement row leaked from rolled-back transaction: %d rows", count)
	}

	level, err := env.stock.GetStock(env.product.ID, env.store.ID)
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if level.Quantity != 10 {
		t.Errorf("record changed despite rollback: qty=%d", level.Quantity)
	}
}

func TestTransfer_PricesAtSourceAverage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(50))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}
	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(70))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}

	err := env.stock.Transfer(ctx, env.product.ID, env.store.ID, env.store2.ID, 8, "test-user", uuid.New(), "rebalance")
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	source, err := env.stock.GetStock(env.product.ID, env.store.ID)
	if err != nil {
		t.Fatalf("get source stock failed: %v", err)
	}
	if source.Quantity != 12 {
		t.Errorf("expected source quantity 12, got %d", source.Quantity)
	}

	dest, err := env.stock.GetStock(env.product.ID, env.store2.ID)
	if err != nil {
		t.Fatalf("get destination stock failed: %v", err)
	}
	if dest.Quantity != 8 {
		t.Errorf("expected destination quantity 8, got %d", dest.Quantity)
	}
	// The inbound leg ships at the source's blended average.
	if !dest.AverageCost.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected destination average 60, got %s", dest.AverageCost)
	}
}

func TestTransfer_FullDrainShipsAtSourceAverage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(50))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}
	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(70))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}

	// Shipping everything drains the source and zeroes its average; the
	// inbound leg must still carry the pre-drain blended cost.
	err := env.stock.Transfer(ctx, env.product.ID, env.store.ID, env.store2.ID, 20, "test-user", uuid.New(), "")
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	source, _ := env.stock.GetStock(env.product.ID, env.store.ID)
	if source.Quantity != 0 {
		t.Errorf("expected drained source, got qty=%d", source.Quantity)
	}
	if !source.AverageCost.Equal(decimal.Zero) {
		t.Errorf("drained source must carry average zero, got %s", source.AverageCost)
	}

	dest, _ := env.stock.GetStock(env.product.ID, env.store2.ID)
	if dest.Quantity != 20 {
		t.Errorf("expected destination quantity 20, got %d", dest.Quantity)
	}
	if !dest.AverageCost.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected destination average 60, got %s", dest.AverageCost)
	}
}

func TestTransfer_InsufficientSourceStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 3, costPtr(50))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}

	err := env.stock.Transfer(ctx, env.product.ID, env.store.ID, env.store2.ID, 5, "test-user", uuid.New(), "")
	if !errors.Is(err, model.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	source, _ := env.stock.GetStock(env.product.ID, env.store.ID)
	if source.Quantity != 3 {
		t.Errorf("failed transfer must not change source: got %d", source.Quantity)
	}
}

func TestRecompute_RepairsDriftedRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 10, costPtr(100))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}
	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionIn, 5, costPtr(160))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}
	if _, err := env.stock.ApplyMovement(ctx, env.movement(model.DirectionOut, 4, nil)); err != nil {
		t.Fatalf("seed issue failed: %v", err)
	}

	// Corrupt the cached record behind the ledger's back.
	err := env.db.Model(&model.InventoryRecord{}).
		Where("product_id = ? AND store_id = ?", env.product.ID, env.store.ID).
		Updates(map[string]interface{}{"quantity": 999, "average_cost": "1.0000"}).Error
	if err != nil {
		t.Fatalf("corrupting record failed: %v", err)
	}

	summary, err := env.costing.RecomputeForProduct(ctx, env.product.ID)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if summary.Failed != 0 {
		t.Fatalf("recompute reported failures: %+v", summary.Failures)
	}

	level, err := env.stock.GetStock(env.product.ID, env.store.ID)
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if level.Quantity != 11 {
		t.Errorf("expected replayed quantity 11, got %d", level.Quantity)
	}
	if !level.AverageCost.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected replayed average 120, got %s", level.AverageCost)
	}

	// A second run over an already-correct record changes nothing.
	if _, err := env.costing.RecomputeForProduct(ctx, env.product.ID); err != nil {
		t.Fatalf("second recompute failed: %v", err)
	}
	again, _ := env.stock.GetStock(env.product.ID, env.store.ID)
	if again.Quantity != 11 || !again.AverageCost.Equal(decimal.NewFromInt(120)) {
		t.Errorf("recompute is not idempotent: qty=%d avg=%s", again.Quantity, again.AverageCost)
	}
}

func TestRecompute_RejectsNegativeLedger(t *testing.T) {
	env := newTestEnv(t)

	// A hand-edited log: the row's own chain is consistent, but replaying
	// from empty state goes below zero.
	movement := &model.StockMovement{
		ProductID:      env.product.ID,
		StoreID:        env.store.ID,
		UserID:         "test-user",
		Direction:      model.DirectionOut,
		Quantity:       5,
		QuantityBefore: 5,
		QuantityAfter:  0,
		Reference:      model.MovementReference{Kind: model.RefStockAdjustment, ID: uuid.New()},
		MovementDate:   time.Now(),
	}
	if err := env.db.Create(movement).Error; err != nil {
		t.Fatalf("inserting broken ledger row failed: %v", err)
	}

	summary, err := env.costing.RecomputeForProduct(context.Background(), env.product.ID)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected the negative replay to be reported as a failure, got %+v", summary)
	}

	// The broken pair must not be persisted with a negative quantity.
	var record model.InventoryRecord
	findErr := env.db.Where("product_id = ? AND store_id = ?", env.product.ID, env.store.ID).
		First(&record).Error
	if findErr == nil && record.Quantity < 0 {
		t.Errorf("negative quantity persisted: %d", record.Quantity)
	}
}

func TestRecompute_StopsBetweenProducts(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.stock.ApplyMovement(context.Background(), env.movement(model.DirectionIn, 5, costPtr(10))); err != nil {
		t.Fatalf("seed receipt failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := env.costing.RecomputeForProduct(ctx, env.product.ID)
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if !summary.Stopped {
		t.Error("expected the run to report Stopped after cancellation")
	}
	if summary.Processed != 0 {
		t.Errorf("cancelled run must not process pairs, got %d", summary.Processed)
	}
}

func TestGetStock_MissingRecordReportsZero(t *testing.T) {
	env := newTestEnv(t)

	level, err := env.stock.GetStock(env.product.ID, env.store.ID)
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if level.Quantity != 0 {
		t.Errorf("expected zero quantity, got %d", level.Quantity)
	}
	// With no costed movement yet, the nominal cost falls back to the
	// catalog purchase price.
	if !level.NominalUnitCost.Equal(env.product.PurchasePrice) {
		t.Errorf("expected nominal cost %s, got %s", env.product.PurchasePrice, level.NominalUnitCost)
	}
}
