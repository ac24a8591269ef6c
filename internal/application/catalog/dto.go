package catalog

import (
	"time"

	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	SKU           string           `json:"sku" binding:"required,min=1,max=50"`
	Name          string           `json:"name" binding:"required,min=1,max=200"`
	Unit          string           `json:"unit" binding:"required,min=1,max=20"`
	IsRawMaterial bool             `json:"is_raw_material"`
	UnitCost      *decimal.Decimal `json:"unit_cost"`
	MinimumStock  *decimal.Decimal `json:"minimum_stock"`
	LeadTimeDays  *int             `json:"lead_time_days" binding:"omitempty,min=0"`
	// InitialStock is booked as a MANUAL adjustment so it shows in the audit trail
	InitialStock *decimal.Decimal `json:"initial_stock"`
}

// UpdateProductRequest represents a request to update a product.
// Stock is not updatable here; use AdjustStock.
type UpdateProductRequest struct {
	Name         *string          `json:"name" binding:"omitempty,min=1,max=200"`
	UnitCost     *decimal.Decimal `json:"unit_cost"`
	MinimumStock *decimal.Decimal `json:"minimum_stock"`
	LeadTimeDays *int             `json:"lead_time_days" binding:"omitempty,min=0"`
}

// AdjustStockRequest is a manual stock correction
type AdjustStockRequest struct {
	Delta     decimal.Decimal `json:"delta"`
	Reason    string          `json:"reason" binding:"max=500"`
	Reference string          `json:"reference" binding:"max=100"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID             uuid.UUID       `json:"id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	CurrentStock   decimal.Decimal `json:"current_stock"`
	MinimumStock   decimal.Decimal `json:"minimum_stock"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	LeadTimeDays   int             `json:"lead_time_days"`
	IsRawMaterial  bool            `json:"is_raw_material"`
	IsBelowMinimum bool            `json:"is_below_minimum"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// StockAdjustmentResponse is one row of the stock audit trail
type StockAdjustmentResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	Delta         decimal.Decimal `json:"delta"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Source        string          `json:"source"`
	Reference     string          `json:"reference"`
	Reason        string          `json:"reason"`
	CreatedAt     time.Time       `json:"created_at"`
}

// StockLevelResponse is the answer to a GetStock query
type StockLevelResponse struct {
	ProductID    uuid.UUID       `json:"product_id"`
	CurrentStock decimal.Decimal `json:"current_stock"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Unit:           p.Unit,
		CurrentStock:   p.CurrentStock,
		MinimumStock:   p.MinimumStock,
		UnitCost:       p.UnitCost,
		LeadTimeDays:   p.LeadTimeDays,
		IsRawMaterial:  p.IsRawMaterial,
		IsBelowMinimum: p.IsBelowMinimum(),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Version:        p.GetVersion(),
	}
}

// ToProductResponses converts a slice of products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}

// ToStockAdjustmentResponse converts an audit row
func ToStockAdjustmentResponse(a *catalog.StockAdjustment) StockAdjustmentResponse {
	return StockAdjustmentResponse{
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

// ToStockAdjustmentResponses converts a slice of audit rows
func ToStockAdjustmentResponses(adjs []catalog.StockAdjustment) []StockAdjustmentResponse {
	responses := make([]StockAdjustmentResponse, len(adjs))
	for i := range adjs {
		responses[i] = ToStockAdjustmentResponse(&adjs[i])
	}
	return responses
}
