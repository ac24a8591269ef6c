package persistence

import (
	"context"
	"strings"

	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBOMRepository implements bom.BOMRepository using GORM
type GormBOMRepository struct {
	db *gorm.DB
}

// NewGormBOMRepository creates a new GormBOMRepository
func NewGormBOMRepository(db *gorm.DB) *GormBOMRepository {
	return &GormBOMRepository{db: db}
}

func (r *GormBOMRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence ASC")
	})
}

// FindByID finds a BOM by its ID
func (r *GormBOMRepository) FindByID(ctx context.Context, id uuid.UUID) (*bom.BillOfMaterials, error) {
	var m models.BOMModel
	if err := r.withItems(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "bill of materials", id)
	}
	return m.ToDomain(), nil
}

// FindByIDForUpdate finds a BOM with SELECT ... FOR UPDATE. SQLite has no row
// locks; its single writer already serializes the transactions.
func (r *GormBOMRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bom.BillOfMaterials, error) {
	q := r.withItems(ctx)
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var m models.BOMModel
	if err := q.First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "bill of materials", id)
	}
	return m.ToDomain(), nil
}

// FindActiveByCode finds the active revision of a BOM code
func (r *GormBOMRepository) FindActiveByCode(ctx context.Context, code string) (*bom.BillOfMaterials, error) {
	code = normalizeCode(code)
	var m models.BOMModel
	err := r.withItems(ctx).
		Where("code = ? AND is_active = ?", code, true).
		Order("revision DESC").
		First(&m).Error
	if err != nil {
		return nil, notFound(err, "bill of materials", code)
	}
	return m.ToDomain(), nil
}

// FindRevisions lists every revision of a code, newest first
func (r *GormBOMRepository) FindRevisions(ctx context.Context, code string) ([]bom.BillOfMaterials, error) {
	var ms []models.BOMModel
	if err := r.withItems(ctx).Where("code = ?", normalizeCode(code)).Order("revision DESC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]bom.BillOfMaterials, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out, nil
}

// ExistsByCode checks whether any revision uses the code
func (r *GormBOMRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BOMModel{}).Where("code = ?", normalizeCode(code)).Count(&count).Error
	return count > 0, err
}

// Save upserts the BOM header and replaces its item rows
func (r *GormBOMRepository) Save(ctx context.Context, b *bom.BillOfMaterials) error {
	m := models.BOMModelFromDomain(b)
	items := m.Items
	m.Items = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "output_quantity", "output_unit", "is_active", "version", "updated_at",
			}),
		}).Omit(clause.Associations).Create(m).Error
		if err != nil {
			return err
		}
		if err := tx.Where("bom_id = ?", b.ID).Delete(&models.BOMItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ bom.BOMRepository = (*GormBOMRepository)(nil)
