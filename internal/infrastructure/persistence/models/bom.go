package models

import (
	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMModel is the persistence model for bom.BillOfMaterials
type BOMModel struct {
	AggregateModel
	Code               string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_bom_code_revision,priority:1"`
	Revision           int             `gorm:"not null;uniqueIndex:idx_bom_code_revision,priority:2"`
	Name               string          `gorm:"type:varchar(200);not null"`
	OutputProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	OutputQuantity     decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	OutputUnit         string          `gorm:"type:varchar(20);not null"`
	PreviousRevisionID *uuid.UUID      `gorm:"type:uuid"`
	IsActive           bool            `gorm:"not null;default:true;index"`
	Items              []BOMItemModel  `gorm:"foreignKey:BOMID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (BOMModel) TableName() string {
	return "bills_of_materials"
}

// ToDomain converts the model (with preloaded items) to a domain BOM
func (m *BOMModel) ToDomain() *bom.BillOfMaterials {
	b := &bom.BillOfMaterials{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		Code:               m.Code,
		Name:               m.Name,
		OutputProductID:    m.OutputProductID,
		OutputQuantity:     m.OutputQuantity,
		OutputUnit:         m.OutputUnit,
		Revision:           m.Revision,
		PreviousRevisionID: m.PreviousRevisionID,
		IsActive:           m.IsActive,
		Items:              make([]bom.BOMItem, len(m.Items)),
	}
	for i := range m.Items {
		b.Items[i] = m.Items[i].ToDomain()
	}
	return b
}

// BOMModelFromDomain creates a model, items included, from a domain BOM
func BOMModelFromDomain(b *bom.BillOfMaterials) *BOMModel {
	m := &BOMModel{
		Code:               b.Code,
		Revision:           b.Revision,
		Name:               b.Name,
		OutputProductID:    b.OutputProductID,
		OutputQuantity:     b.OutputQuantity,
		OutputUnit:         b.OutputUnit,
		PreviousRevisionID: b.PreviousRevisionID,
		IsActive:           b.IsActive,
		Items:              make([]BOMItemModel, len(b.Items)),
	}
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	for i := range b.Items {
		m.Items[i] = BOMItemModelFromDomain(b.ID, b.Items[i])
	}
	return m
}

// BOMItemModel is the persistence model for bom.BOMItem
type BOMItemModel struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BOMID                 uuid.UUID       `gorm:"column:bom_id;type:uuid;not null;index"`
	ProductID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityPerOutputUnit decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Unit                  string          `gorm:"type:varchar(20);not null"`
	WastagePercent        decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	Sequence              int             `gorm:"not null"`
	Notes                 string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (BOMItemModel) TableName() string {
	return "bom_items"
}

// ToDomain converts the model to a domain BOMItem
func (m *BOMItemModel) ToDomain() bom.BOMItem {
	return bom.BOMItem{
		ID:                    m.ID,
		ProductID:             m.ProductID,
		QuantityPerOutputUnit: m.QuantityPerOutputUnit,
		Unit:                  m.Unit,
		WastagePercent:        m.WastagePercent,
		Sequence:              m.Sequence,
		Notes:                 m.Notes,
	}
}

// BOMItemModelFromDomain creates an item model owned by bomID
func BOMItemModelFromDomain(bomID uuid.UUID, it bom.BOMItem) BOMItemModel {
	return BOMItemModel{
		ID:                    it.ID,
		BOMID:                 bomID,
		ProductID:             it.ProductID,
		QuantityPerOutputUnit: it.QuantityPerOutputUnit,
		Unit:                  it.Unit,
		WastagePercent:        it.WastagePercent,
		Sequence:              it.Sequence,
		Notes:                 it.Notes,
	}
}
