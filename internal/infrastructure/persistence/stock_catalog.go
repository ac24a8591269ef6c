package persistence

import (
	"context"
	"time"

	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxStockSwapAttempts bounds the compare-and-swap retries of AdjustStock on
// dialects without exact NUMERIC arithmetic
const maxStockSwapAttempts = 5

// GormStockCatalog implements catalog.StockCatalog on the products table.
// On postgres AdjustStock is one conditional UPDATE computed by the database.
// Other dialects (sqlite) store decimals as floating point, so the new balance
// is computed with decimal and written with a compare-and-swap on the old one.
// Either way concurrent adjustments can never drive a balance negative.
type GormStockCatalog struct {
	db *gorm.DB
}

// NewGormStockCatalog creates a new GormStockCatalog
func NewGormStockCatalog(db *gorm.DB) *GormStockCatalog {
	return &GormStockCatalog{db: db}
}

// GetStock returns the current stock of a product
func (s *GormStockCatalog) GetStock(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var m models.ProductModel
	err := s.db.WithContext(ctx).Select("id", "current_stock").First(&m, "id = ?", productID).Error
	if err != nil {
		return decimal.Zero, notFound(err, "product", productID)
	}
	return m.CurrentStock, nil
}

// AdjustStock adds delta to the stock of a product
func (s *GormStockCatalog) AdjustStock(ctx context.Context, productID uuid.UUID, delta decimal.Decimal) error {
	if s.db.Dialector.Name() != "postgres" {
		return s.swapStock(ctx, productID, delta)
	}
	result := s.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ? AND current_stock + ? >= 0", productID, delta).
		Updates(map[string]any{
			"current_stock": gorm.Expr("current_stock + ?", delta),
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}
	available, err := s.GetStock(ctx, productID)
	if err != nil {
		return err
	}
	return catalog.NewInsufficientStockError(productID, delta.Neg(), available)
}

// swapStock reads the balance, computes the new one with decimal and writes it
// only if the balance is still the one it read
func (s *GormStockCatalog) swapStock(ctx context.Context, productID uuid.UUID, delta decimal.Decimal) error {
	for range maxStockSwapAttempts {
		current, err := s.GetStock(ctx, productID)
		if err != nil {
			return err
		}
		next := current.Add(delta)
		if next.IsNegative() {
			return catalog.NewInsufficientStockError(productID, delta.Neg(), current)
		}
		result := s.db.WithContext(ctx).
			Model(&models.ProductModel{}).
			Where("id = ? AND current_stock = ?", productID, current).
			Updates(map[string]any{
				"current_stock": next,
				"updated_at":    time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 1 {
			return nil
		}
	}
	return concurrencyConflict("product", productID)
}

var _ catalog.StockCatalog = (*GormStockCatalog)(nil)
