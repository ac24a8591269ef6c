package bom

import (
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostPrecision is the number of decimal places costs are rounded to
const CostPrecision int32 = 4

// CostSnapshot maps product id to its current unit cost (per stock unit)
type CostSnapshot map[uuid.UUID]decimal.Decimal

// CostLine is the cost of one requirement line
type CostLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	LineCost  decimal.Decimal `json:"line_cost"`
}

// CostEstimate is the rolled-up material cost of a production run
type CostEstimate struct {
	MaterialCost decimal.Decimal `json:"material_cost"`
	OverheadCost decimal.Decimal `json:"overhead_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Breakdown    []CostLine      `json:"breakdown"`
}

// CostEstimator multiplies requirements by unit costs
type CostEstimator struct {
	overheadPercent decimal.Decimal
}

// NewCostEstimator creates an estimator. overheadPercent is added on top of
// material cost; negative values are treated as zero.
func NewCostEstimator(overheadPercent decimal.Decimal) *CostEstimator {
	if overheadPercent.IsNegative() {
		overheadPercent = decimal.Zero
	}
	return &CostEstimator{overheadPercent: overheadPercent}
}

// Estimate prices each line; MaterialCost is the sum of the rounded line costs
func (e *CostEstimator) Estimate(requirements []RequirementLine, costs CostSnapshot) (*CostEstimate, error) {
	estimate := &CostEstimate{
		MaterialCost: decimal.Zero,
		Breakdown:    make([]CostLine, 0, len(requirements)),
	}
	for _, line := range requirements {
		unitCost, ok := costs[line.ProductID]
		if !ok {
			return nil, shared.NewNotFoundError("product cost", line.ProductID)
		}
		lineCost := line.Quantity.Mul(unitCost).Round(CostPrecision)
		estimate.Breakdown = append(estimate.Breakdown, CostLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Unit:      line.Unit,
			UnitCost:  unitCost,
			LineCost:  lineCost,
		})
		estimate.MaterialCost = estimate.MaterialCost.Add(lineCost)
	}
	estimate.OverheadCost = estimate.MaterialCost.Mul(e.overheadPercent).Div(hundred).Round(CostPrecision)
	estimate.TotalCost = estimate.MaterialCost.Add(estimate.OverheadCost)
	return estimate, nil
}
