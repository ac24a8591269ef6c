package persistence

import (
	"context"
	"strings"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryCountRepository implements inventory.CountRepository using GORM
type GormInventoryCountRepository struct {
	db *gorm.DB
}

// NewGormInventoryCountRepository creates a new GormInventoryCountRepository
func NewGormInventoryCountRepository(db *gorm.DB) *GormInventoryCountRepository {
	return &GormInventoryCountRepository{db: db}
}

// FindByID finds a count with its items
func (r *GormInventoryCountRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryCount, error) {
	var m models.InventoryCountModel
	if err := r.db.WithContext(ctx).Preload("Items").First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "inventory count", id)
	}
	return m.ToDomain(), nil
}

// FindAll lists counts, optionally by status. Items are not loaded.
func (r *GormInventoryCountRepository) FindAll(ctx context.Context, filter shared.Filter, status *inventory.CountStatus) ([]inventory.InventoryCount, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryCountModel{})
	if status != nil {
		q = q.Where("status = ?", string(*status))
	}
	if filter.Search != "" {
		q = q.Where("reference LIKE ?", "%"+filter.Search+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []models.InventoryCountModel
	if err := page(q, filter, countSortFields, "count_date").Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	counts := make([]inventory.InventoryCount, len(ms))
	for i := range ms {
		counts[i] = *ms[i].ToDomain()
	}
	return counts, total, nil
}

// ExistsByReference checks whether a count reference is taken
func (r *GormInventoryCountRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InventoryCountModel{}).
		Where("reference = ?", strings.TrimSpace(reference)).
		Count(&count).Error
	return count > 0, err
}

// Create inserts a count and its items
func (r *GormInventoryCountRepository) Create(ctx context.Context, count *inventory.InventoryCount) error {
	return r.db.WithContext(ctx).Create(models.InventoryCountModelFromDomain(count)).Error
}

// SaveWithLock writes the count header under a version check, then upserts its items
func (r *GormInventoryCountRepository) SaveWithLock(ctx context.Context, count *inventory.InventoryCount, expectedVersion int) error {
	m := models.InventoryCountModelFromDomain(count)
	items := m.Items
	m.Items = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InventoryCountModel{}).
			Where("id = ? AND version = ?", count.ID, expectedVersion).
			Select("*").
			Omit("id", "created_at", "reference", "created_by", clause.Associations).
			Updates(m)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.InventoryCountModel{}).Where("id = ?", count.ID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return shared.NewNotFoundError("inventory count", count.ID)
			}
			return concurrencyConflict("inventory count", count.ID)
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&items).Error
	})
}

var _ inventory.CountRepository = (*GormInventoryCountRepository)(nil)
