package production

import (
	"time"

	"github.com/erp/bomengine/internal/domain/production"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest represents a request to plan a production order
type CreateOrderRequest struct {
	BOMID            uuid.UUID       `json:"bom_id" binding:"required"`
	TargetQuantity   decimal.Decimal `json:"target_quantity"`
	Priority         string          `json:"priority" binding:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	PlannedStartDate *time.Time      `json:"planned_start_date"`
	AssignedTo       *uuid.UUID      `json:"assigned_to"`
	Notes            string          `json:"notes" binding:"max=2000"`
	BatchTracked     bool            `json:"batch_tracked"`
}

// TransitionOrderRequest moves an order to another status
type TransitionOrderRequest struct {
	Status string `json:"status" binding:"required,oneof=PLANNED IN_PROGRESS COMPLETED CANCELLED ON_HOLD"`
	Force  bool   `json:"force"`
}

// BatchInfo describes the finished-goods batch a recording produces
type BatchInfo struct {
	BatchNumber     string     `json:"batch_number" binding:"required,min=1,max=50"`
	ManufactureDate *time.Time `json:"manufacture_date"`
	ExpiryDate      *time.Time `json:"expiry_date"`
}

// QualityInfo is the quality outcome captured with a recording
type QualityInfo struct {
	Checked bool   `json:"checked"`
	Notes   string `json:"notes" binding:"max=2000"`
}

// RecordProductionRequest records produced output against an order
type RecordProductionRequest struct {
	EmployeeID   uuid.UUID       `json:"employee_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Wastage      decimal.Decimal `json:"wastage"`
	Batch        *BatchInfo      `json:"batch"`
	Quality      *QualityInfo    `json:"quality"`
	AllowOverage *bool           `json:"allow_overage"`
	// IdempotencyKey makes retries of the same recording harmless
	IdempotencyKey string `json:"-"`
}

// UpdateQualityRequest sets the quality outcome of a record once
type UpdateQualityRequest struct {
	Checked bool   `json:"checked"`
	Notes   string `json:"notes" binding:"max=2000"`
}

// ListOrdersRequest filters order listings
type ListOrdersRequest struct {
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=200"`
	OrderBy  string     `form:"order_by" binding:"omitempty,oneof=created_at updated_at order_number planned_start_date status priority"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
	Search   string     `form:"search" binding:"max=100"`
	Status   string     `form:"status" binding:"omitempty,oneof=PLANNED IN_PROGRESS COMPLETED CANCELLED ON_HOLD"`
	BOMID    *uuid.UUID `form:"-"`
}

// OrderResponse represents a production order in API responses
type OrderResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	BOMID             uuid.UUID       `json:"bom_id"`
	OutputProductID   uuid.UUID       `json:"output_product_id"`
	TargetQuantity    decimal.Decimal `json:"target_quantity"`
	CompletedQuantity decimal.Decimal `json:"completed_quantity"`
	WastedQuantity    decimal.Decimal `json:"wasted_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Status            string          `json:"status"`
	Priority          string          `json:"priority"`
	PlannedStartDate  time.Time       `json:"planned_start_date"`
	ActualStartDate   *time.Time      `json:"actual_start_date,omitempty"`
	CompletedDate     *time.Time      `json:"completed_date,omitempty"`
	CancelledDate     *time.Time      `json:"cancelled_date,omitempty"`
	AssignedTo        *uuid.UUID      `json:"assigned_to,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	BatchTracked      bool            `json:"batch_tracked"`
	ForceCompleted    bool            `json:"force_completed"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// RecordResponse represents a production record in API responses
type RecordResponse struct {
	ID               uuid.UUID       `json:"id"`
	OrderID          uuid.UUID       `json:"order_id"`
	EmployeeID       uuid.UUID       `json:"employee_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	Wastage          decimal.Decimal `json:"wastage"`
	QualityChecked   bool            `json:"quality_checked"`
	QualityNotes     string          `json:"quality_notes,omitempty"`
	QualityUpdatedAt *time.Time      `json:"quality_updated_at,omitempty"`
	BatchNumber      string          `json:"batch_number,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// RecordProductionResponse is the order after a recording plus the record itself.
// Record is nil when an idempotency key was replayed.
type RecordProductionResponse struct {
	Order    OrderResponse   `json:"order"`
	Record   *RecordResponse `json:"record,omitempty"`
	Replayed bool            `json:"replayed"`
}

// ToOrderResponse converts a domain order to its response
func ToOrderResponse(o *production.ProductionOrder) OrderResponse {
	return OrderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		BOMID:             o.BOMID,
		OutputProductID:   o.OutputProductID,
		TargetQuantity:    o.TargetQuantity,
		CompletedQuantity: o.CompletedQuantity,
		WastedQuantity:    o.WastedQuantity,
		RemainingQuantity: o.RemainingQuantity(),
		Status:            o.Status.String(),
		Priority:          string(o.Priority),
		PlannedStartDate:  o.PlannedStartDate,
		ActualStartDate:   o.ActualStartDate,
		CompletedDate:     o.CompletedDate,
		CancelledDate:     o.CancelledDate,
		AssignedTo:        o.AssignedTo,
		Notes:             o.Notes,
		BatchTracked:      o.BatchTracked,
		ForceCompleted:    o.ForceCompleted,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		Version:           o.Version,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []production.ProductionOrder) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// ToRecordResponse converts a domain record to its response
func ToRecordResponse(r *production.ProductionRecord) RecordResponse {
	return RecordResponse{
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

// ToRecordResponses converts a slice of records
func ToRecordResponses(records []production.ProductionRecord) []RecordResponse {
	out := make([]RecordResponse, len(records))
	for i := range records {
		out[i] = ToRecordResponse(&records[i])
	}
	return out
}
