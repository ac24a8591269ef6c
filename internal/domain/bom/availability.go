package bom

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockSnapshot is a point-in-time view of on-hand stock by product
type StockSnapshot map[uuid.UUID]decimal.Decimal

// Shortage describes a material whose stock does not cover the requirement
type Shortage struct {
	ProductID uuid.UUID       `json:"product_id"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
	Shortage  decimal.Decimal `json:"shortage"`
	Unit      string          `json:"unit"`
}

// AvailabilityResult is the verdict for a requirement list
type AvailabilityResult struct {
	IsAvailable bool       `json:"is_available"`
	Shortages   []Shortage `json:"shortages"`
}

// AvailabilityChecker compares requirements with a stock snapshot.
// It has no state and never touches stock.
type AvailabilityChecker struct{}

// NewAvailabilityChecker creates an AvailabilityChecker
func NewAvailabilityChecker() AvailabilityChecker {
	return AvailabilityChecker{}
}

// Check returns the shortages, in requirement order. A product absent from
// the snapshot counts as zero stock.
func (AvailabilityChecker) Check(requirements []RequirementLine, stock StockSnapshot) AvailabilityResult {
	result := AvailabilityResult{IsAvailable: true, Shortages: make([]Shortage, 0)}
	for _, line := range requirements {
		available := stock[line.ProductID]
		shortage := line.Quantity.Sub(available)
		if !shortage.IsPositive() {
			continue
		}
		result.IsAvailable = false
		result.Shortages = append(result.Shortages, Shortage{
			ProductID: line.ProductID,
			Required:  line.Quantity,
			Available: available,
			Shortage:  shortage,
			Unit:      line.Unit,
		})
	}
	return result
}
