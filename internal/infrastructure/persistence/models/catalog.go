package models

import (
	"time"

	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	AggregateModel
	SKU           string          `gorm:"column:sku;type:varchar(50);not null;uniqueIndex"`
	Name          string          `gorm:"type:varchar(200);not null"`
	Unit          string          `gorm:"type:varchar(20);not null"`
	CurrentStock  decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	MinimumStock  decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	LeadTimeDays  int             `gorm:"not null;default:0"`
	IsRawMaterial bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		SKU:               m.SKU,
		Name:              m.Name,
		Unit:              m.Unit,
		CurrentStock:      m.CurrentStock,
		MinimumStock:      m.MinimumStock,
		UnitCost:          m.UnitCost,
		LeadTimeDays:      m.LeadTimeDays,
		IsRawMaterial:     m.IsRawMaterial,
	}
}

// ProductModelFromDomain creates a model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{
		SKU:           p.SKU,
		Name:          p.Name,
		Unit:          p.Unit,
		CurrentStock:  p.CurrentStock,
		MinimumStock:  p.MinimumStock,
		UnitCost:      p.UnitCost,
		LeadTimeDays:  p.LeadTimeDays,
		IsRawMaterial: p.IsRawMaterial,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// StockAdjustmentModel is the persistence model for catalog.StockAdjustment
type StockAdjustmentModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Delta         decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Source        string          `gorm:"type:varchar(30);not null"`
	Reference     string          `gorm:"type:varchar(100);index"`
	Reason        string          `gorm:"type:varchar(500)"`
	CreatedAt     time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (StockAdjustmentModel) TableName() string {
	return "stock_adjustments"
}

// ToDomain converts the model to a domain StockAdjustment
func (m *StockAdjustmentModel) ToDomain() *catalog.StockAdjustment {
	return &catalog.StockAdjustment{
		ID:            m.ID,
		ProductID:     m.ProductID,
		Delta:         m.Delta,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		Source:        catalog.AdjustmentSource(m.Source),
		Reference:     m.Reference,
		Reason:        m.Reason,
		CreatedAt:     m.CreatedAt,
	}
}

// StockAdjustmentModelFromDomain creates a model from a domain StockAdjustment
func StockAdjustmentModelFromDomain(a *catalog.StockAdjustment) *StockAdjustmentModel {
	return &StockAdjustmentModel{
		ID:            a.ID,
		ProductID:     a.ProductID,
		Delta:         a.Delta,
		BalanceBefore: a.BalanceBefore,
		BalanceAfter:  a.BalanceAfter,
		Source:        string(a.Source),
		Reference:     a.Reference,
		Reason:        a.Reason,
		CreatedAt:     a.CreatedAt,
	}
}
