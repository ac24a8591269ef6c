package production

import (
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeProductionOrder is the aggregate type for order events
const AggregateTypeProductionOrder = "ProductionOrder"

// Event type constants
const (
	EventTypeProductionOrderCreated        = "ProductionOrderCreated"
	EventTypeProductionOrderStatusChanged  = "ProductionOrderStatusChanged"
	EventTypeProductionOrderForceCompleted = "ProductionOrderForceCompleted"
	EventTypeProductionRecorded            = "ProductionRecorded"
)

// ProductionOrderCreatedEvent is published when an order is planned
type ProductionOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	BOMID          uuid.UUID       `json:"bom_id"`
	TargetQuantity decimal.Decimal `json:"target_quantity"`
	Priority       Priority        `json:"priority"`
}

// NewProductionOrderCreatedEvent creates a new ProductionOrderCreatedEvent
func NewProductionOrderCreatedEvent(o *ProductionOrder) *ProductionOrderCreatedEvent {
	return &ProductionOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductionOrderCreated, AggregateTypeProductionOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		BOMID:           o.BOMID,
		TargetQuantity:  o.TargetQuantity,
		Priority:        o.Priority,
	}
}

// ProductionOrderStatusChangedEvent is published on every transition
type ProductionOrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
}

// NewProductionOrderStatusChangedEvent creates a new ProductionOrderStatusChangedEvent
func NewProductionOrderStatusChangedEvent(o *ProductionOrder, from OrderStatus) *ProductionOrderStatusChangedEvent {
	return &ProductionOrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductionOrderStatusChanged, AggregateTypeProductionOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		From:            from,
		To:              o.Status,
	}
}

// ProductionOrderForceCompletedEvent is published when an order is completed below target
type ProductionOrderForceCompletedEvent struct {
	shared.BaseDomainEvent
	OrderID           uuid.UUID       `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	TargetQuantity    decimal.Decimal `json:"target_quantity"`
	CompletedQuantity decimal.Decimal `json:"completed_quantity"`
}

// NewProductionOrderForceCompletedEvent creates a new ProductionOrderForceCompletedEvent
func NewProductionOrderForceCompletedEvent(o *ProductionOrder) *ProductionOrderForceCompletedEvent {
	return &ProductionOrderForceCompletedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeProductionOrderForceCompleted, AggregateTypeProductionOrder, o.ID),
		OrderID:           o.ID,
		OrderNumber:       o.OrderNumber,
		TargetQuantity:    o.TargetQuantity,
		CompletedQuantity: o.CompletedQuantity,
	}
}

// ProductionRecordedEvent is published after a recording commits
type ProductionRecordedEvent struct {
	shared.BaseDomainEvent
	OrderID           uuid.UUID       `json:"order_id"`
	RecordID          uuid.UUID       `json:"record_id"`
	EmployeeID        uuid.UUID       `json:"employee_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	Wastage           decimal.Decimal `json:"wastage"`
	CompletedQuantity decimal.Decimal `json:"completed_quantity"`
}

// NewProductionRecordedEvent creates a new ProductionRecordedEvent
func NewProductionRecordedEvent(o *ProductionOrder, r *ProductionRecord) *ProductionRecordedEvent {
	return &ProductionRecordedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeProductionRecorded, AggregateTypeProductionOrder, o.ID),
		OrderID:           o.ID,
		RecordID:          r.ID,
		EmployeeID:        r.EmployeeID,
		Quantity:          r.Quantity,
		Wastage:           r.Wastage,
		CompletedQuantity: o.CompletedQuantity,
	}
}
