package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/bomengine/internal/domain/production"
	"github.com/erp/bomengine/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductionOrderRepository implements production.OrderRepository using GORM
type GormProductionOrderRepository struct {
	db *gorm.DB
}

// NewGormProductionOrderRepository creates a new GormProductionOrderRepository
func NewGormProductionOrderRepository(db *gorm.DB) *GormProductionOrderRepository {
	return &GormProductionOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormProductionOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionOrder, error) {
	var m models.ProductionOrderModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "production order", id)
	}
	return m.ToDomain(), nil
}

// FindAll lists orders with optional status and BOM filters
func (r *GormProductionOrderRepository) FindAll(ctx context.Context, filter production.OrderFilter) ([]production.ProductionOrder, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ProductionOrderModel{})
	if filter.Status != nil {
		q = q.Where("status = ?", string(*filter.Status))
	}
	if filter.BOMID != nil {
		q = q.Where("bom_id = ?", *filter.BOMID)
	}
	if filter.Search != "" {
		q = q.Where("order_number LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var ms []models.ProductionOrderModel
	if err := page(q, filter.Filter, orderSortFields, "created_at").Find(&ms).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]production.ProductionOrder, len(ms))
	for i := range ms {
		orders[i] = *ms[i].ToDomain()
	}
	return orders, total, nil
}

// Create inserts a new order
func (r *GormProductionOrderRepository) Create(ctx context.Context, order *production.ProductionOrder) error {
	return r.db.WithContext(ctx).Create(models.ProductionOrderModelFromDomain(order)).Error
}

// SaveWithLock writes the order only if the stored version still equals expectedVersion
func (r *GormProductionOrderRepository) SaveWithLock(ctx context.Context, order *production.ProductionOrder, expectedVersion int) error {
	m := models.ProductionOrderModelFromDomain(order)
	result := r.db.WithContext(ctx).
		Model(&models.ProductionOrderModel{}).
		Where("id = ? AND version = ?", order.ID, expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.lockFailure(ctx, order.ID)
	}
	return nil
}

func (r *GormProductionOrderRepository) lockFailure(ctx context.Context, id uuid.UUID) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return concurrencyConflict("production order", id)
}

// CountBlockingByBOM counts orders on the BOM that are not cancelled
func (r *GormProductionOrderRepository) CountBlockingByBOM(ctx context.Context, bomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductionOrderModel{}).
		Where("bom_id = ? AND status <> ?", bomID, string(production.OrderStatusCancelled)).
		Count(&count).Error
	return count, err
}

// GenerateOrderNumber generates the next order number of the current year
// Format: PO-YYYY-NNNNN (e.g., PO-2026-00001)
func (r *GormProductionOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("PO-%d-", time.Now().Year())

	var last models.ProductionOrderModel
	err := r.db.WithContext(ctx).
		Model(&models.ProductionOrderModel{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var next int64 = 1
	if err == nil {
		var n int64
		if _, scanErr := fmt.Sscanf(strings.TrimPrefix(last.OrderNumber, prefix), "%d", &n); scanErr == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

var _ production.OrderRepository = (*GormProductionOrderRepository)(nil)

// GormProductionRecordRepository implements production.RecordRepository using GORM
type GormProductionRecordRepository struct {
	db *gorm.DB
}

// NewGormProductionRecordRepository creates a new GormProductionRecordRepository
func NewGormProductionRecordRepository(db *gorm.DB) *GormProductionRecordRepository {
	return &GormProductionRecordRepository{db: db}
}

// Create inserts a record
func (r *GormProductionRecordRepository) Create(ctx context.Context, record *production.ProductionRecord) error {
	return r.db.WithContext(ctx).Create(models.ProductionRecordModelFromDomain(record)).Error
}

// FindByID finds a record by its ID
func (r *GormProductionRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*production.ProductionRecord, error) {
	var m models.ProductionRecordModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "production record", id)
	}
	return m.ToDomain(), nil
}

// FindByOrder lists an order's records in creation order
func (r *GormProductionRecordRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]production.ProductionRecord, error) {
	var ms []models.ProductionRecordModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]production.ProductionRecord, len(ms))
	for i := range ms {
		out[i] = *ms[i].ToDomain()
	}
	return out, nil
}

// SaveQuality writes the quality columns of a record
func (r *GormProductionRecordRepository) SaveQuality(ctx context.Context, record *production.ProductionRecord) error {
	result := r.db.WithContext(ctx).Model(&models.ProductionRecordModel{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"quality_checked":    record.QualityChecked,
			"quality_notes":      record.QualityNotes,
			"quality_updated_at": record.QualityUpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "production record", record.ID)
	}
	return nil
}

var _ production.RecordRepository = (*GormProductionRecordRepository)(nil)
