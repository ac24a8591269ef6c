package persistence

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/production"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, sku string, stock int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(sku, "Product "+sku, "PCS", true)
	require.NoError(t, err)
	p.CurrentStock = decimal.NewFromInt(stock)
	require.NoError(t, NewGormProductRepository(db).Save(context.Background(), p))
	return p
}

func TestGormStockCatalog_AdjustStock(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	stock := NewGormStockCatalog(db)
	p := createProduct(t, db, "RM-1", 10)

	t.Run("applies positive and negative deltas", func(t *testing.T) {
		require.NoError(t, stock.AdjustStock(ctx, p.ID, decimal.NewFromInt(5)))
		require.NoError(t, stock.AdjustStock(ctx, p.ID, decimal.NewFromInt(-12)))

		got, err := stock.GetStock(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(3)), got.String())
	})

	t.Run("refuses to go negative and leaves the balance alone", func(t *testing.T) {
		err := stock.AdjustStock(ctx, p.ID, decimal.NewFromInt(-4))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "4", de.Details["requested"])
		assert.Equal(t, "3", de.Details["available"])

		got, err := stock.GetStock(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(3)))
	})

	t.Run("can drain to exactly zero", func(t *testing.T) {
		require.NoError(t, stock.AdjustStock(ctx, p.ID, decimal.NewFromInt(-3)))
		got, err := stock.GetStock(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("keeps fractional balances exact", func(t *testing.T) {
		kg := createProduct(t, db, "RM-KG", 10)
		for _, d := range []string{"-0.1", "-0.2"} {
			require.NoError(t, stock.AdjustStock(ctx, kg.ID, decimal.RequireFromString(d)))
		}
		got, err := stock.GetStock(ctx, kg.ID)
		require.NoError(t, err)
		assert.Equal(t, "9.7", got.String())

		require.NoError(t, stock.AdjustStock(ctx, kg.ID, decimal.RequireFromString("-9.7")))
		got, err = stock.GetStock(ctx, kg.ID)
		require.NoError(t, err)
		assert.True(t, got.IsZero(), got.String())

		err = stock.AdjustStock(ctx, kg.ID, decimal.RequireFromString("-0.000001"))
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
	})

	t.Run("unknown product", func(t *testing.T) {
		err := stock.AdjustStock(ctx, uuid.New(), decimal.NewFromInt(1))
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		_, err = stock.GetStock(ctx, uuid.New())
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormProductRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormProductRepository(db)
	p := createProduct(t, db, "rm-2", 7)

	t.Run("save keeps the stored stock", func(t *testing.T) {
		require.NoError(t, NewGormStockCatalog(db).AdjustStock(ctx, p.ID, decimal.NewFromInt(3)))

		require.NoError(t, p.SetMinimumStock(decimal.NewFromInt(20)))
		p.CurrentStock = decimal.NewFromInt(999)
		require.NoError(t, repo.Save(ctx, p))

		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.CurrentStock.Equal(decimal.NewFromInt(10)))
		assert.True(t, got.MinimumStock.Equal(decimal.NewFromInt(20)))
	})

	t.Run("sku lookups are case insensitive", func(t *testing.T) {
		got, err := repo.FindBySKU(ctx, " rm-2 ")
		require.NoError(t, err)
		assert.Equal(t, p.ID, got.ID)

		exists, err := repo.ExistsBySKU(ctx, "RM-2")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("below minimum listing", func(t *testing.T) {
		createProduct(t, db, "RM-3", 50)
		list, total, err := repo.FindBelowMinimum(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, "RM-2", list[0].SKU)

		n, err := repo.CountBelowMinimum(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("find by ids skips unknown ids", func(t *testing.T) {
		list, err := repo.FindByIDs(ctx, []uuid.UUID{p.ID, uuid.New()})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})
}

func TestGormBOMRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormBOMRepository(db)

	out := createProduct(t, db, "FG-1", 0)
	a := createProduct(t, db, "RM-A", 0)
	b := createProduct(t, db, "RM-B", 0)

	rev1, err := bom.NewBillOfMaterials("bom-fg", "Finished good", out.ID, decimal.NewFromInt(1), "PCS")
	require.NoError(t, err)
	_, err = rev1.AddItem(bom.ItemSpec{ProductID: a.ID, Quantity: decimal.NewFromInt(2), Unit: "PCS"})
	require.NoError(t, err)
	_, err = rev1.AddItem(bom.ItemSpec{ProductID: b.ID, Quantity: decimal.NewFromInt(3), Unit: "PCS"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rev1))

	got, err := repo.FindActiveByCode(ctx, "BOM-FG")
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, a.ID, got.Items[0].ProductID)
	assert.Equal(t, b.ID, got.Items[1].ProductID)

	rev2, err := rev1.Revise("Finished good v2", decimal.NewFromInt(1), "PCS", []bom.ItemSpec{
		{ProductID: b.ID, Quantity: decimal.NewFromInt(4), Unit: "PCS"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, rev1))
	require.NoError(t, repo.Save(ctx, rev2))

	active, err := repo.FindActiveByCode(ctx, "bom-fg")
	require.NoError(t, err)
	assert.Equal(t, rev2.ID, active.ID)
	require.Len(t, active.Items, 1)

	revisions, err := repo.FindRevisions(ctx, "BOM-FG")
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Equal(t, 2, revisions[0].Revision)
	assert.False(t, revisions[1].IsActive)
	assert.Len(t, revisions[1].Items, 2)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormProductionOrderRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormProductionOrderRepository(db)

	order, err := production.NewProductionOrder("PO-100", uuid.New(), uuid.New(), decimal.NewFromInt(10), production.PriorityNormal, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	stale, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)

	loaded := order.GetVersion()
	require.NoError(t, order.TransitionTo(production.OrderStatusInProgress, false))
	require.NoError(t, repo.SaveWithLock(ctx, order, loaded))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, production.OrderStatusInProgress, got.Status)
	assert.Equal(t, order.GetVersion(), got.GetVersion())

	staleVersion := stale.GetVersion()
	require.NoError(t, stale.TransitionTo(production.OrderStatusCancelled, false))
	err = repo.SaveWithLock(ctx, stale, staleVersion)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

	missing, err := production.NewProductionOrder("PO-404", uuid.New(), uuid.New(), decimal.NewFromInt(1), production.PriorityLow, time.Now())
	require.NoError(t, err)
	err = repo.SaveWithLock(ctx, missing, 1)
	assert.True(t, errors.Is(err, shared.ErrNotFound))

	blocking, err := repo.CountBlockingByBOM(ctx, order.BOMID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), blocking)
}

func TestGormProductionOrderRepository_GenerateOrderNumber(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormProductionOrderRepository(db)
	prefix := fmt.Sprintf("PO-%d-", time.Now().Year())

	first, err := repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefix+"00001", first)

	order, err := production.NewProductionOrder(prefix+"00041", uuid.New(), uuid.New(), decimal.NewFromInt(1), production.PriorityNormal, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, order))

	next, err := repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, prefix+"00042", next)
}

func TestGormInventoryCountRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormInventoryCountRepository(db)
	productID := uuid.New()

	count, err := inventory.NewInventoryCount("CNT-1", time.Now(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, count.AddItem(productID, decimal.NewFromInt(10)))
	require.NoError(t, repo.Create(ctx, count))

	loaded, err := repo.FindByID(ctx, count.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)

	version := loaded.GetVersion()
	require.NoError(t, loaded.RecordActual(productID, decimal.NewFromInt(8)))
	require.NoError(t, repo.SaveWithLock(ctx, loaded, version))

	got, err := repo.FindByID(ctx, count.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.CountStatusInProgress, got.Status)
	require.NotNil(t, got.Items[0].ActualQuantity)
	assert.True(t, got.Items[0].Variance.Equal(decimal.NewFromInt(-2)))

	err = repo.SaveWithLock(ctx, loaded, version)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))

	exists, err := repo.ExistsByReference(ctx, "CNT-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGormTransactionScope_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := createProduct(t, db, "RM-TX", 5)
	scope := NewGormTransactionScope(db)

	boom := errors.New("boom")
	err := scope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		_, err := appshared.MoveStock(ctx, repos, appshared.StockChange{
			ProductID: p.ID,
			Delta:     decimal.NewFromInt(-2),
			Source:    catalog.AdjustmentSourceManual,
			Reference: "TX-1",
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := NewGormStockCatalog(db).GetStock(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(5)))

	adjustments, err := NewGormStockAdjustmentRepository(db).FindByReference(ctx, "TX-1")
	require.NoError(t, err)
	assert.Empty(t, adjustments)
}

func TestMoveStock_WritesAuditRow(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	p := createProduct(t, db, "RM-AUD", 12)
	require.NoError(t, p.SetMinimumStock(decimal.NewFromInt(10)))
	require.NoError(t, NewGormProductRepository(db).Save(ctx, p))

	var move *appshared.StockMove
	err := NewGormTransactionScope(db).Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		move, err = appshared.MoveStock(ctx, repos, appshared.StockChange{
			ProductID: p.ID,
			Delta:     decimal.NewFromInt(-4),
			Source:    catalog.AdjustmentSourceProductionInput,
			Reference: "PO-1",
		})
		return err
	})
	require.NoError(t, err)
	assert.True(t, move.Adjustment.BalanceBefore.Equal(decimal.NewFromInt(12)))
	assert.True(t, move.Adjustment.BalanceAfter.Equal(decimal.NewFromInt(8)))
	require.Len(t, move.Events, 1)
	assert.Equal(t, catalog.EventTypeStockBelowMinimum, move.Events[0].EventType())

	list, total, err := NewGormStockAdjustmentRepository(db).FindByProduct(ctx, p.ID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, catalog.AdjustmentSourceProductionInput, list[0].Source)
}
