package persistence

import (
	"context"
	"strings"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBatchRepository implements inventory.BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryBatch, error) {
	var m models.InventoryBatchModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "inventory batch", id)
	}
	return m.ToDomain(), nil
}

// FindConsumable loads, and on postgres row-locks, the active batches of a
// product that still hold stock. The allocator orders them.
func (r *GormBatchRepository) FindConsumable(ctx context.Context, productID uuid.UUID) ([]*inventory.InventoryBatch, error) {
	var ms []models.InventoryBatchModel
	err := forUpdate(r.db.WithContext(ctx)).
		Where("product_id = ? AND is_active = ? AND current_quantity > 0", productID, true).
		Order("received_date ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}
	batches := make([]*inventory.InventoryBatch, len(ms))
	for i := range ms {
		batches[i] = ms[i].ToDomain()
	}
	return batches, nil
}

// FindByProduct lists all batches of a product
func (r *GormBatchRepository) FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]inventory.InventoryBatch, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryBatchModel{}).Where("product_id = ?", productID)
	if v, ok := filter.Filters["active"]; ok {
		q = q.Where("is_active = ?", v)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []models.InventoryBatchModel
	if err := page(q, filter, batchSortFields, "received_date").Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	batches := make([]inventory.InventoryBatch, len(ms))
	for i := range ms {
		batches[i] = *ms[i].ToDomain()
	}
	return batches, total, nil
}

// ExistsByNumber checks whether the product already has a batch with this number
func (r *GormBatchRepository) ExistsByNumber(ctx context.Context, productID uuid.UUID, batchNumber string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InventoryBatchModel{}).
		Where("product_id = ? AND batch_number = ?", productID, strings.TrimSpace(batchNumber)).
		Count(&count).Error
	return count > 0, err
}

// Create inserts a new batch
func (r *GormBatchRepository) Create(ctx context.Context, batch *inventory.InventoryBatch) error {
	return r.db.WithContext(ctx).Create(models.InventoryBatchModelFromDomain(batch)).Error
}

// SaveWithLock writes the batch only if the stored version still equals expectedVersion
func (r *GormBatchRepository) SaveWithLock(ctx context.Context, batch *inventory.InventoryBatch, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryBatchModel{}).
		Where("id = ? AND version = ?", batch.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at", "product_id", "batch_number").
		Updates(models.InventoryBatchModelFromDomain(batch))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, batch.ID); err != nil {
			return err
		}
		return concurrencyConflict("inventory batch", batch.ID)
	}
	return nil
}

var _ inventory.BatchRepository = (*GormBatchRepository)(nil)

// GormMovementRepository implements inventory.MovementRepository using GORM.
// It only ever inserts.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends one movement
func (r *GormMovementRepository) Create(ctx context.Context, movement *inventory.BatchMovement) error {
	return r.db.WithContext(ctx).Create(models.BatchMovementModelFromDomain(movement)).Error
}

// CreateBatch appends several movements in one statement
func (r *GormMovementRepository) CreateBatch(ctx context.Context, movements []*inventory.BatchMovement) error {
	if len(movements) == 0 {
		return nil
	}
	ms := make([]*models.BatchMovementModel, len(movements))
	for i, mv := range movements {
		ms[i] = models.BatchMovementModelFromDomain(mv)
	}
	return r.db.WithContext(ctx).CreateInBatches(ms, 100).Error
}

// FindByBatch returns a batch's ledger, oldest first
func (r *GormMovementRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]inventory.BatchMovement, error) {
	return r.find(ctx, "batch_id = ?", batchID)
}

// FindByReference returns the movements written for a reference
func (r *GormMovementRepository) FindByReference(ctx context.Context, reference string) ([]inventory.BatchMovement, error) {
	return r.find(ctx, "reference = ?", reference)
}

func (r *GormMovementRepository) find(ctx context.Context, query string, arg any) ([]inventory.BatchMovement, error) {
	var ms []models.BatchMovementModel
	if err := r.db.WithContext(ctx).Where(query, arg).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.BatchMovement, len(ms))
	for i := range ms {
		out[i] = ms[i].ToDomain()
	}
	return out, nil
}

var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
