package bom

import (
	"time"

	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BOMItemRequest is one component line of a BOM
type BOMItemRequest struct {
	ProductID      uuid.UUID       `json:"product_id" binding:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit" binding:"required,max=20"`
	WastagePercent decimal.Decimal `json:"wastage_percent"`
	Notes          string          `json:"notes" binding:"max=500"`
}

// CreateBOMRequest represents a request to create revision 1 of a BOM
type CreateBOMRequest struct {
	Code            string           `json:"code" binding:"required,min=1,max=50"`
	Name            string           `json:"name" binding:"required,min=1,max=200"`
	OutputProductID uuid.UUID        `json:"output_product_id" binding:"required"`
	OutputQuantity  decimal.Decimal  `json:"output_quantity"`
	OutputUnit      string           `json:"output_unit" binding:"required,max=20"`
	Items           []BOMItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateBOMRequest replaces the header values and items of a BOM. A BOM
// referenced by a live order gets a new revision instead; InPlace refuses
// that and fails with BOM_LOCKED.
type UpdateBOMRequest struct {
	Name           string           `json:"name" binding:"max=200"`
	OutputQuantity decimal.Decimal  `json:"output_quantity"`
	OutputUnit     string           `json:"output_unit" binding:"required,max=20"`
	Items          []BOMItemRequest `json:"items" binding:"required,min=1,dive"`
	InPlace        bool             `json:"in_place"`
}

// PlanRequest asks for requirements, availability or cost of a quantity
type PlanRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// BOMItemResponse is a component line in API responses
type BOMItemResponse struct {
	ID                    uuid.UUID       `json:"id"`
	ProductID             uuid.UUID       `json:"product_id"`
	QuantityPerOutputUnit decimal.Decimal `json:"quantity_per_output_unit"`
	Unit                  string          `json:"unit"`
	WastagePercent        decimal.Decimal `json:"wastage_percent"`
	Sequence              int             `json:"sequence"`
	Notes                 string          `json:"notes,omitempty"`
}

// BOMResponse represents a BOM revision in API responses
type BOMResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Code               string            `json:"code"`
	Name               string            `json:"name"`
	OutputProductID    uuid.UUID         `json:"output_product_id"`
	OutputQuantity     decimal.Decimal   `json:"output_quantity"`
	OutputUnit         string            `json:"output_unit"`
	Revision           int               `json:"revision"`
	PreviousRevisionID *uuid.UUID        `json:"previous_revision_id,omitempty"`
	IsActive           bool              `json:"is_active"`
	Items              []BOMItemResponse `json:"items"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	Version            int               `json:"version"`
}

// UpdateBOMResponse tells whether the update created a new revision
type UpdateBOMResponse struct {
	BOMResponse
	NewRevision bool `json:"new_revision"`
}

// RequirementsResponse lists the material requirements for a quantity
type RequirementsResponse struct {
	BOMID    uuid.UUID             `json:"bom_id"`
	Code     string                `json:"code"`
	Revision int                   `json:"revision"`
	Quantity decimal.Decimal       `json:"quantity"`
	Lines    []bom.RequirementLine `json:"lines"`
}

// AvailabilityResponse is an advisory availability check
type AvailabilityResponse struct {
	BOMID     uuid.UUID       `json:"bom_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	CheckedAt time.Time       `json:"checked_at"`
	bom.AvailabilityResult
}

// CostEstimateResponse is a cost roll-up for a quantity
type CostEstimateResponse struct {
	BOMID    uuid.UUID       `json:"bom_id"`
	Quantity decimal.Decimal `json:"quantity"`
	// UnitCost is TotalCost divided by Quantity
	UnitCost decimal.Decimal `json:"unit_cost"`
	*bom.CostEstimate
}

// ToBOMResponse converts a domain BOM to BOMResponse
func ToBOMResponse(b *bom.BillOfMaterials) BOMResponse {
	sorted := b.SortedItems()
	items := make([]BOMItemResponse, len(sorted))
	for i, it := range sorted {
		items[i] = BOMItemResponse{
			ID:                    it.ID,
			ProductID:             it.ProductID,
			QuantityPerOutputUnit: it.QuantityPerOutputUnit,
			Unit:                  it.Unit,
			WastagePercent:        it.WastagePercent,
			Sequence:              it.Sequence,
			Notes:                 it.Notes,
		}
	}
	return BOMResponse{
		ID:                 b.ID,
		Code:               b.Code,
		Name:               b.Name,
		OutputProductID:    b.OutputProductID,
		OutputQuantity:     b.OutputQuantity,
		OutputUnit:         b.OutputUnit,
		Revision:           b.Revision,
		PreviousRevisionID: b.PreviousRevisionID,
		IsActive:           b.IsActive,
		Items:              items,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
		Version:            b.GetVersion(),
	}
}

func toItemSpecs(items []BOMItemRequest) []bom.ItemSpec {
	specs := make([]bom.ItemSpec, len(items))
	for i, it := range items {
		specs[i] = bom.ItemSpec{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			Unit:           it.Unit,
			WastagePercent: it.WastagePercent,
			Notes:          it.Notes,
		}
	}
	return specs
}
