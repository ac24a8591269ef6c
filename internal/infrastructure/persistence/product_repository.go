package persistence

import (
	"context"
	"strings"

	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var m models.ProductModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "product", id)
	}
	return m.ToDomain(), nil
}

// FindByIDs finds the products with the given IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var ms []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(ms))
	for i := range ms {
		products[i] = *ms[i].ToDomain()
	}
	return products, nil
}

// FindBySKU finds a product by SKU (case-insensitive input)
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	var m models.ProductModel
	if err := r.db.WithContext(ctx).First(&m, "sku = ?", sku).Error; err != nil {
		return nil, notFound(err, "product", sku)
	}
	return m.ToDomain(), nil
}

// FindBelowMinimum lists products whose stock is below their minimum
func (r *GormProductRepository) FindBelowMinimum(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("minimum_stock > 0 AND current_stock < minimum_stock")
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []models.ProductModel
	if err := page(q, filter, productSortFields, "sku").Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	products := make([]catalog.Product, len(ms))
	for i := range ms {
		products[i] = *ms[i].ToDomain()
	}
	return products, total, nil
}

// CountBelowMinimum counts products whose stock is below their minimum
func (r *GormProductRepository) CountBelowMinimum(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("minimum_stock > 0 AND current_stock < minimum_stock").
		Count(&count).Error
	return count, err
}

// ExistsBySKU checks if a SKU is taken
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))).
		Count(&count).Error
	return count > 0, err
}

// Save inserts a product or updates its attributes. current_stock is written
// on insert only; afterwards it changes through GormStockCatalog.AdjustStock.
func (r *GormProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	m := models.ProductModelFromDomain(p)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "unit", "minimum_stock", "unit_cost", "lead_time_days", "is_raw_material", "version", "updated_at",
		}),
	}).Create(m).Error
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
