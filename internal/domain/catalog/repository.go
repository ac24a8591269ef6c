package catalog

import (
	"context"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductRepository persists products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDs returns the products found; missing ids are simply absent
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindBelowMinimum(ctx context.Context, filter shared.Filter) ([]Product, int64, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	Save(ctx context.Context, product *Product) error
}

// StockCatalog is the stock contract the engine mutates inventory through.
// AdjustStock must be atomic and must never leave a negative balance; a delta
// that would do so fails with an INSUFFICIENT_STOCK error.
type StockCatalog interface {
	GetStock(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, delta decimal.Decimal) error
}

// StockAdjustmentRepository stores the stock audit trail
type StockAdjustmentRepository interface {
	Create(ctx context.Context, adj *StockAdjustment) error
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockAdjustment, int64, error)
	FindByReference(ctx context.Context, reference string) ([]StockAdjustment, error)
}
