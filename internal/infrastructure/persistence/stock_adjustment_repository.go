package persistence

import (
	"context"

	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockAdjustmentRepository implements catalog.StockAdjustmentRepository using GORM
type GormStockAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormStockAdjustmentRepository creates a new GormStockAdjustmentRepository
func NewGormStockAdjustmentRepository(db *gorm.DB) *GormStockAdjustmentRepository {
	return &GormStockAdjustmentRepository{db: db}
}

// Create appends an audit row
func (r *GormStockAdjustmentRepository) Create(ctx context.Context, adj *catalog.StockAdjustment) error {
	return r.db.WithContext(ctx).Create(models.StockAdjustmentModelFromDomain(adj)).Error
}

// FindByProduct lists a product's adjustments, newest first by default
func (r *GormStockAdjustmentRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]catalog.StockAdjustment, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.StockAdjustmentModel{}).Where("product_id = ?", productID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []models.StockAdjustmentModel
	if err := page(q, filter, adjustmentSortFields, "created_at").Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	return toAdjustments(ms), total, nil
}

// FindByReference lists the adjustments written for a reference (order, count, batch)
func (r *GormStockAdjustmentRepository) FindByReference(ctx context.Context, reference string) ([]catalog.StockAdjustment, error) {
	var ms []models.StockAdjustmentModel
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return toAdjustments(ms), nil
}

func toAdjustments(ms []models.StockAdjustmentModel) []catalog.StockAdjustment {
	out := make([]catalog.StockAdjustment, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out
}

var _ catalog.StockAdjustmentRepository = (*GormStockAdjustmentRepository)(nil)
