package models

import (
	"time"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryBatchModel is the persistence model for inventory.InventoryBatch
type InventoryBatchModel struct {
	AggregateModel
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_batch_product_number,priority:1;index:idx_batch_consumable,priority:1"`
	BatchNumber     string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_batch_product_number,priority:2"`
	InitialQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	CurrentQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	ManufactureDate *time.Time
	ExpiryDate      *time.Time `gorm:"index"`
	ReceivedDate    time.Time  `gorm:"not null"`
	IsActive        bool       `gorm:"not null;default:true;index:idx_batch_consumable,priority:2"`
	ExhaustedAt     *time.Time
	RetiredReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InventoryBatchModel) TableName() string {
	return "inventory_batches"
}

// ToDomain converts the model to a domain InventoryBatch
func (m *InventoryBatchModel) ToDomain() *inventory.InventoryBatch {
	return &inventory.InventoryBatch{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ProductID:         m.ProductID,
		BatchNumber:       m.BatchNumber,
		InitialQuantity:   m.InitialQuantity,
		CurrentQuantity:   m.CurrentQuantity,
		UnitCost:          m.UnitCost,
		ManufactureDate:   m.ManufactureDate,
		ExpiryDate:        m.ExpiryDate,
		ReceivedDate:      m.ReceivedDate,
		IsActive:          m.IsActive,
		ExhaustedAt:       m.ExhaustedAt,
		RetiredReason:     m.RetiredReason,
	}
}

// InventoryBatchModelFromDomain creates a model from a domain InventoryBatch
func InventoryBatchModelFromDomain(b *inventory.InventoryBatch) *InventoryBatchModel {
	m := &InventoryBatchModel{
		ProductID:       b.ProductID,
		BatchNumber:     b.BatchNumber,
		InitialQuantity: b.InitialQuantity,
		CurrentQuantity: b.CurrentQuantity,
		UnitCost:        b.UnitCost,
		ManufactureDate: b.ManufactureDate,
		ExpiryDate:      b.ExpiryDate,
		ReceivedDate:    b.ReceivedDate,
		IsActive:        b.IsActive,
		ExhaustedAt:     b.ExhaustedAt,
		RetiredReason:   b.RetiredReason,
	}
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	return m
}

// BatchMovementModel is the persistence model for inventory.BatchMovement.
// Rows are insert-only.
type BatchMovementModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BatchID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type      string          `gorm:"type:varchar(20);not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Reference string          `gorm:"type:varchar(100);index"`
	Reason    string          `gorm:"type:varchar(500)"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BatchMovementModel) TableName() string {
	return "batch_movements"
}

// ToDomain converts the model to a domain BatchMovement
func (m *BatchMovementModel) ToDomain() inventory.BatchMovement {
	return inventory.BatchMovement{
		ID:        m.ID,
		BatchID:   m.BatchID,
		ProductID: m.ProductID,
		Type:      inventory.MovementType(m.Type),
		Quantity:  m.Quantity,
		UnitCost:  m.UnitCost,
		Reference: m.Reference,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}

// BatchMovementModelFromDomain creates a model from a domain BatchMovement
func BatchMovementModelFromDomain(mv *inventory.BatchMovement) *BatchMovementModel {
	return &BatchMovementModel{
		ID:        mv.ID,
		BatchID:   mv.BatchID,
		ProductID: mv.ProductID,
		Type:      string(mv.Type),
		Quantity:  mv.Quantity,
		UnitCost:  mv.UnitCost,
		Reference: mv.Reference,
		Reason:    mv.Reason,
		CreatedAt: mv.CreatedAt,
	}
}

// InventoryCountModel is the persistence model for inventory.InventoryCount
type InventoryCountModel struct {
	AggregateModel
	Reference    string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	CountDate    time.Time `gorm:"not null"`
	Status       string    `gorm:"type:varchar(20);not null;index"`
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ReconciledAt *time.Time
	ReconciledBy *uuid.UUID                `gorm:"type:uuid"`
	Notes        string                    `gorm:"type:text"`
	Items        []InventoryCountItemModel `gorm:"foreignKey:CountID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InventoryCountModel) TableName() string {
	return "inventory_counts"
}

// ToDomain converts the model (with preloaded items) to a domain InventoryCount
func (m *InventoryCountModel) ToDomain() *inventory.InventoryCount {
	c := &inventory.InventoryCount{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Reference:         m.Reference,
		CountDate:         m.CountDate,
		Status:            inventory.CountStatus(m.Status),
		CreatedBy:         m.CreatedBy,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
		ReconciledAt:      m.ReconciledAt,
		ReconciledBy:      m.ReconciledBy,
		Notes:             m.Notes,
		Items:             make([]inventory.CountItem, len(m.Items)),
	}
	for i := range m.Items {
		c.Items[i] = m.Items[i].ToDomain()
	}
	return c
}

// InventoryCountModelFromDomain creates a model, items included, from a domain InventoryCount
func InventoryCountModelFromDomain(c *inventory.InventoryCount) *InventoryCountModel {
	m := &InventoryCountModel{
		Reference:    c.Reference,
		CountDate:    c.CountDate,
		Status:       string(c.Status),
		CreatedBy:    c.CreatedBy,
		StartedAt:    c.StartedAt,
		CompletedAt:  c.CompletedAt,
		ReconciledAt: c.ReconciledAt,
		ReconciledBy: c.ReconciledBy,
		Notes:        c.Notes,
		Items:        make([]InventoryCountItemModel, len(c.Items)),
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	for i := range c.Items {
		m.Items[i] = InventoryCountItemModelFromDomain(c.ID, &c.Items[i])
	}
	return m
}

// InventoryCountItemModel is the persistence model for inventory.CountItem.
// The decision columns are null until the count is reconciled.
type InventoryCountItemModel struct {
	ID                 uuid.UUID        `gorm:"type:uuid;primaryKey"`
	CountID            uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_count_item_product,priority:1"`
	ProductID          uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_count_item_product,priority:2"`
	ExpectedQuantity   decimal.Decimal  `gorm:"type:decimal(20,6);not null"`
	ActualQuantity     *decimal.Decimal `gorm:"type:decimal(20,6)"`
	Variance           decimal.Decimal  `gorm:"type:decimal(20,6);not null;default:0"`
	VariancePercentage *decimal.Decimal `gorm:"type:decimal(12,4)"`
	VarianceUndefined  bool             `gorm:"not null;default:false"`
	CountedAt          *time.Time
	DecisionApproved   *bool
	AppliedQuantity    *decimal.Decimal `gorm:"type:decimal(20,6)"`
	Overridden         bool             `gorm:"not null;default:false"`
	ReasonCode         string           `gorm:"type:varchar(50)"`
	DecisionNotes      string           `gorm:"type:varchar(500)"`
	DecidedAt          *time.Time
}

// TableName returns the table name for GORM
func (InventoryCountItemModel) TableName() string {
	return "inventory_count_items"
}

// ToDomain converts the model to a domain CountItem
func (m *InventoryCountItemModel) ToDomain() inventory.CountItem {
	it := inventory.CountItem{
		ID:                 m.ID,
		ProductID:          m.ProductID,
		ExpectedQuantity:   m.ExpectedQuantity,
		ActualQuantity:     m.ActualQuantity,
		Variance:           m.Variance,
		VariancePercentage: m.VariancePercentage,
		VarianceUndefined:  m.VarianceUndefined,
		CountedAt:          m.CountedAt,
	}
	if m.DecisionApproved != nil {
		d := &inventory.ItemDecision{
			Approved:        *m.DecisionApproved,
			AppliedQuantity: decimal.Zero,
			Overridden:      m.Overridden,
			ReasonCode:      m.ReasonCode,
			Notes:           m.DecisionNotes,
		}
		if m.AppliedQuantity != nil {
			d.AppliedQuantity = *m.AppliedQuantity
		}
		if m.DecidedAt != nil {
			d.DecidedAt = *m.DecidedAt
		}
		it.Decision = d
	}
	return it
}

// InventoryCountItemModelFromDomain creates an item model owned by countID
func InventoryCountItemModelFromDomain(countID uuid.UUID, it *inventory.CountItem) InventoryCountItemModel {
	m := InventoryCountItemModel{
		ID:                 it.ID,
		CountID:            countID,
		ProductID:          it.ProductID,
		ExpectedQuantity:   it.ExpectedQuantity,
		ActualQuantity:     it.ActualQuantity,
		Variance:           it.Variance,
		VariancePercentage: it.VariancePercentage,
		VarianceUndefined:  it.VarianceUndefined,
		CountedAt:          it.CountedAt,
	}
	if d := it.Decision; d != nil {
		approved := d.Approved
		applied := d.AppliedQuantity
		decidedAt := d.DecidedAt
		m.DecisionApproved = &approved
		m.AppliedQuantity = &applied
		m.Overridden = d.Overridden
		m.ReasonCode = d.ReasonCode
		m.DecisionNotes = d.Notes
		m.DecidedAt = &decidedAt
	}
	return m
}

// AllModels lists every model for AutoMigrate in tests and local runs
func AllModels() []any {
	return []any{
		&ProductModel{},
		&StockAdjustmentModel{},
		&BOMModel{},
		&BOMItemModel{},
		&ProductionOrderModel{},
		&ProductionRecordModel{},
		&InventoryBatchModel{},
		&BatchMovementModel{},
		&InventoryCountModel{},
		&InventoryCountItemModel{},
	}
}
