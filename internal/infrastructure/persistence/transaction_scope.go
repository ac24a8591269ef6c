package persistence

import (
	"context"

	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/production"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appshared.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// Repositories hands out repositories bound to one *gorm.DB, which is either
// the pool or a transaction.
type Repositories struct {
	db *gorm.DB
}

// NewRepositories binds every repository to db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{db: db}
}

func (r *Repositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.db)
}

func (r *Repositories) Stock() catalog.StockCatalog {
	return NewGormStockCatalog(r.db)
}

func (r *Repositories) Adjustments() catalog.StockAdjustmentRepository {
	return NewGormStockAdjustmentRepository(r.db)
}

func (r *Repositories) BOMs() bom.BOMRepository {
	return NewGormBOMRepository(r.db)
}

func (r *Repositories) Orders() production.OrderRepository {
	return NewGormProductionOrderRepository(r.db)
}

func (r *Repositories) Records() production.RecordRepository {
	return NewGormProductionRecordRepository(r.db)
}

func (r *Repositories) Batches() inventory.BatchRepository {
	return NewGormBatchRepository(r.db)
}

func (r *Repositories) Movements() inventory.MovementRepository {
	return NewGormMovementRepository(r.db)
}

func (r *Repositories) Counts() inventory.CountRepository {
	return NewGormInventoryCountRepository(r.db)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appshared.TransactionScope = (*GormTransactionScope)(nil)

// Ensure Repositories implements TransactionalRepositories
var _ appshared.TransactionalRepositories = (*Repositories)(nil)
