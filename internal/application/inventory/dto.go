package inventory

import (
	"time"

	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiveBatchRequest represents a request to receive a new batch
type ReceiveBatchRequest struct {
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	BatchNumber     string          `json:"batch_number" binding:"required,min=1,max=50"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	ManufactureDate *time.Time      `json:"manufacture_date"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
	ReceivedDate    *time.Time      `json:"received_date"`
	Reference       string          `json:"reference" binding:"max=100"`
}

// ReturnToBatchRequest puts material back into a batch
type ReturnToBatchRequest struct {
	Quantity  decimal.Decimal `json:"quantity"`
	Reference string          `json:"reference" binding:"max=100"`
	Reason    string          `json:"reason" binding:"max=255"`
}

// AdjustBatchRequest corrects the quantity of a batch
type AdjustBatchRequest struct {
	Delta     decimal.Decimal `json:"delta"`
	Reference string          `json:"reference" binding:"max=100"`
	Reason    string          `json:"reason" binding:"required,max=255"`
}

// RetireBatchRequest deactivates a batch
type RetireBatchRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// AllocationPreviewRequest asks how a quantity would be drawn
type AllocationPreviewRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// BatchResponse represents a batch in API responses
type BatchResponse struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	BatchNumber     string          `json:"batch_number"`
	InitialQuantity decimal.Decimal `json:"initial_quantity"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	ManufactureDate *time.Time      `json:"manufacture_date,omitempty"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
	ReceivedDate    time.Time       `json:"received_date"`
	IsActive        bool            `json:"is_active"`
	IsExpired       bool            `json:"is_expired"`
	ExhaustedAt     *time.Time      `json:"exhausted_at,omitempty"`
	RetiredReason   string          `json:"retired_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

// MovementResponse is one ledger row
type MovementResponse struct {
	ID        uuid.UUID       `json:"id"`
	BatchID   uuid.UUID       `json:"batch_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Type      string          `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Reference string          `json:"reference,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// BatchMovementResponse is a batch together with the movement that changed it
type BatchMovementResponse struct {
	Batch    BatchResponse    `json:"batch"`
	Movement MovementResponse `json:"movement"`
}

// CreateCountRequest opens a count over a set of products
type CreateCountRequest struct {
	Reference  string      `json:"reference" binding:"required,min=1,max=50"`
	CountDate  *time.Time  `json:"count_date"`
	ProductIDs []uuid.UUID `json:"product_ids" binding:"required,min=1"`
	CreatedBy  uuid.UUID   `json:"created_by" binding:"required"`
	Notes      string      `json:"notes" binding:"max=500"`
}

// RecordActualRequest stores the counted quantity of one product
type RecordActualRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Actual    decimal.Decimal `json:"actual"`
}

// DecisionRequest is the ruling on one count item
type DecisionRequest struct {
	ProductID        uuid.UUID        `json:"product_id" binding:"required"`
	Approve          bool             `json:"approve"`
	OverrideQuantity *decimal.Decimal `json:"override_quantity"`
	ReasonCode       string           `json:"reason_code" binding:"max=50"`
	Notes            string           `json:"notes" binding:"max=500"`
}

// ReconcileCountRequest carries one decision per count item
type ReconcileCountRequest struct {
	ReconciledBy uuid.UUID         `json:"reconciled_by" binding:"required"`
	Decisions    []DecisionRequest `json:"decisions" binding:"required,min=1,dive"`
}

// CountDecisionResponse is the stored decision of an item
type CountDecisionResponse struct {
	Approved        bool            `json:"approved"`
	AppliedQuantity decimal.Decimal `json:"applied_quantity"`
	Overridden      bool            `json:"overridden"`
	ReasonCode      string          `json:"reason_code"`
	Notes           string          `json:"notes,omitempty"`
	DecidedAt       time.Time       `json:"decided_at"`
}

// CountItemResponse is one product line of a count
type CountItemResponse struct {
	ID                 uuid.UUID              `json:"id"`
	ProductID          uuid.UUID              `json:"product_id"`
	ExpectedQuantity   decimal.Decimal        `json:"expected_quantity"`
	ActualQuantity     *decimal.Decimal       `json:"actual_quantity,omitempty"`
	Variance           decimal.Decimal        `json:"variance"`
	VariancePercentage *decimal.Decimal       `json:"variance_percentage"`
	VarianceUndefined  bool                   `json:"variance_undefined"`
	CountedAt          *time.Time             `json:"counted_at,omitempty"`
	Decision           *CountDecisionResponse `json:"decision,omitempty"`
}

// CountResponse represents an inventory count in API responses
type CountResponse struct {
	ID           uuid.UUID           `json:"id"`
	Reference    string              `json:"reference"`
	CountDate    time.Time           `json:"count_date"`
	Status       string              `json:"status"`
	CreatedBy    uuid.UUID           `json:"created_by"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	ReconciledAt *time.Time          `json:"reconciled_at,omitempty"`
	ReconciledBy *uuid.UUID          `json:"reconciled_by,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	Items        []CountItemResponse `json:"items"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Version      int                 `json:"version"`
}

// ToBatchResponse converts a domain batch to its response
func ToBatchResponse(b *inventory.InventoryBatch) BatchResponse {
	return BatchResponse{
		ID:              b.ID,
		ProductID:       b.ProductID,
		BatchNumber:     b.BatchNumber,
		InitialQuantity: b.InitialQuantity,
		CurrentQuantity: b.CurrentQuantity,
		UnitCost:        b.UnitCost,
		ManufactureDate: b.ManufactureDate,
		ExpiryDate:      b.ExpiryDate,
		ReceivedDate:    b.ReceivedDate,
		IsActive:        b.IsActive,
		IsExpired:       b.IsExpiredAt(time.Now()),
		ExhaustedAt:     b.ExhaustedAt,
		RetiredReason:   b.RetiredReason,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
		Version:         b.Version,
	}
}

// ToBatchResponses converts a slice of batches
func ToBatchResponses(batches []inventory.InventoryBatch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = ToBatchResponse(&batches[i])
	}
	return out
}

// ToMovementResponse converts a ledger row
func ToMovementResponse(m *inventory.BatchMovement) MovementResponse {
	return MovementResponse{
		ID:        m.ID,
		BatchID:   m.BatchID,
		ProductID: m.ProductID,
		Type:      string(m.Type),
		Quantity:  m.Quantity,
		UnitCost:  m.UnitCost,
		Reference: m.Reference,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}

// ToMovementResponses converts ledger rows
func ToMovementResponses(movements []inventory.BatchMovement) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i := range movements {
		out[i] = ToMovementResponse(&movements[i])
	}
	return out
}

// ToCountResponse converts a domain count to its response
func ToCountResponse(c *inventory.InventoryCount) CountResponse {
	items := make([]CountItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = CountItemResponse{
			ID:                 it.ID,
			ProductID:          it.ProductID,
			ExpectedQuantity:   it.ExpectedQuantity,
			ActualQuantity:     it.ActualQuantity,
			Variance:           it.Variance,
			VariancePercentage: it.VariancePercentage,
			VarianceUndefined:  it.VarianceUndefined,
			CountedAt:          it.CountedAt,
		}
		if d := it.Decision; d != nil {
			items[i].Decision = &CountDecisionResponse{
				Approved:        d.Approved,
				AppliedQuantity: d.AppliedQuantity,
				Overridden:      d.Overridden,
				ReasonCode:      d.ReasonCode,
				Notes:           d.Notes,
				DecidedAt:       d.DecidedAt,
			}
		}
	}
	return CountResponse{
		ID:           c.ID,
		Reference:    c.Reference,
		CountDate:    c.CountDate,
		Status:       c.Status.String(),
		CreatedBy:    c.CreatedBy,
		StartedAt:    c.StartedAt,
		CompletedAt:  c.CompletedAt,
		ReconciledAt: c.ReconciledAt,
		ReconciledBy: c.ReconciledBy,
		Notes:        c.Notes,
		Items:        items,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Version:      c.Version,
	}
}

// ToCountResponses converts a slice of counts
func ToCountResponses(counts []inventory.InventoryCount) []CountResponse {
	out := make([]CountResponse, len(counts))
	for i := range counts {
		out[i] = ToCountResponse(&counts[i])
	}
	return out
}

func toDecisions(reqs []DecisionRequest) []inventory.Decision {
	out := make([]inventory.Decision, len(reqs))
	for i, r := range reqs {
		out[i] = inventory.Decision{
			ProductID:        r.ProductID,
			Approve:          r.Approve,
			OverrideQuantity: r.OverrideQuantity,
			ReasonCode:       r.ReasonCode,
			Notes:            r.Notes,
		}
	}
	return out
}
