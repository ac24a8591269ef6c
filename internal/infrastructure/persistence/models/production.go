package models

import (
	"time"

	"github.com/erp/bomengine/internal/domain/production"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductionOrderModel is the persistence model for production.ProductionOrder
type ProductionOrderModel struct {
	AggregateModel
	OrderNumber       string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	BOMID             uuid.UUID       `gorm:"column:bom_id;type:uuid;not null;index"`
	OutputProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	TargetQuantity    decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	CompletedQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	WastedQuantity    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null;index"`
	Priority          string          `gorm:"type:varchar(20);not null"`
	PlannedStartDate  time.Time       `gorm:"not null"`
	ActualStartDate   *time.Time
	CompletedDate     *time.Time
	CancelledDate     *time.Time
	AssignedTo        *uuid.UUID `gorm:"type:uuid"`
	Notes             string     `gorm:"type:text"`
	BatchTracked      bool       `gorm:"not null;default:false"`
	ForceCompleted    bool       `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProductionOrderModel) TableName() string {
	return "production_orders"
}

// ToDomain converts the model to a domain ProductionOrder
func (m *ProductionOrderModel) ToDomain() *production.ProductionOrder {
	return &production.ProductionOrder{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		BOMID:             m.BOMID,
		OutputProductID:   m.OutputProductID,
		TargetQuantity:    m.TargetQuantity,
		CompletedQuantity: m.CompletedQuantity,
		WastedQuantity:    m.WastedQuantity,
		Status:            production.OrderStatus(m.Status),
		Priority:          production.Priority(m.Priority),
		PlannedStartDate:  m.PlannedStartDate,
		ActualStartDate:   m.ActualStartDate,
		CompletedDate:     m.CompletedDate,
		CancelledDate:     m.CancelledDate,
		AssignedTo:        m.AssignedTo,
		Notes:             m.Notes,
		BatchTracked:      m.BatchTracked,
		ForceCompleted:    m.ForceCompleted,
	}
}

// ProductionOrderModelFromDomain creates a model from a domain ProductionOrder
func ProductionOrderModelFromDomain(o *production.ProductionOrder) *ProductionOrderModel {
	m := &ProductionOrderModel{
		OrderNumber:       o.OrderNumber,
		BOMID:             o.BOMID,
		OutputProductID:   o.OutputProductID,
		TargetQuantity:    o.TargetQuantity,
		CompletedQuantity: o.CompletedQuantity,
		WastedQuantity:    o.WastedQuantity,
		Status:            string(o.Status),
		Priority:          string(o.Priority),
		PlannedStartDate:  o.PlannedStartDate,
		ActualStartDate:   o.ActualStartDate,
		CompletedDate:     o.CompletedDate,
		CancelledDate:     o.CancelledDate,
		AssignedTo:        o.AssignedTo,
		Notes:             o.Notes,
		BatchTracked:      o.BatchTracked,
		ForceCompleted:    o.ForceCompleted,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	return m
}

// ProductionRecordModel is the persistence model for production.ProductionRecord
type ProductionRecordModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmployeeID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity         decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Wastage          decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	QualityChecked   bool            `gorm:"not null;default:false"`
	QualityNotes     string          `gorm:"type:text"`
	QualityUpdatedAt *time.Time
	BatchNumber      string    `gorm:"type:varchar(50)"`
	CreatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductionRecordModel) TableName() string {
	return "production_records"
}

// ToDomain converts the model to a domain ProductionRecord
func (m *ProductionRecordModel) ToDomain() *production.ProductionRecord {
	return &production.ProductionRecord{
		ID:               m.ID,
		OrderID:          m.OrderID,
		EmployeeID:       m.EmployeeID,
		Quantity:         m.Quantity,
		Wastage:          m.Wastage,
		QualityChecked:   m.QualityChecked,
		QualityNotes:     m.QualityNotes,
		QualityUpdatedAt: m.QualityUpdatedAt,
		BatchNumber:      m.BatchNumber,
		CreatedAt:        m.CreatedAt,
	}
}

// ProductionRecordModelFromDomain creates a model from a domain ProductionRecord
func ProductionRecordModelFromDomain(r *production.ProductionRecord) *ProductionRecordModel {
	return &ProductionRecordModel{
		ID:               r.ID,
		OrderID:          r.OrderID,
		EmployeeID:       r.EmployeeID,
		Quantity:         r.Quantity,
		Wastage:          r.Wastage,
		QualityChecked:   r.QualityChecked,
		QualityNotes:     r.QualityNotes,
		QualityUpdatedAt: r.QualityUpdatedAt,
		BatchNumber:      r.BatchNumber,
		CreatedAt:        r.CreatedAt,
	}
}
