package bom

import (
	"fmt"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuantityPrecision is the number of decimal places quantities are stored with.
const QuantityPrecision int32 = 6

// RoundingPolicy decides how a scaled requirement is rounded
type RoundingPolicy string

const (
	// RoundingExact keeps the exact scaled quantity (at QuantityPrecision)
	RoundingExact RoundingPolicy = "exact"
	// RoundingCeilDiscrete rounds lines in discrete units (PCS, BOX) up to a
	// whole number and keeps continuous units exact
	RoundingCeilDiscrete RoundingPolicy = "ceil_discrete"
)

// IsValid checks if the policy is a known value
func (p RoundingPolicy) IsValid() bool {
	return p == RoundingExact || p == RoundingCeilDiscrete
}

// RequirementLine is the amount of one material needed for a requested output
type RequirementLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Sequence  int             `json:"sequence"`
	Quantity  decimal.Decimal `json:"required_quantity"`
	Unit      string          `json:"unit"`
}

// RequirementCalculator explodes a BOM for a requested output quantity
type RequirementCalculator struct {
	rounding RoundingPolicy
}

// NewRequirementCalculator creates a calculator; an unknown policy falls back to exact
func NewRequirementCalculator(rounding RoundingPolicy) *RequirementCalculator {
	if !rounding.IsValid() {
		rounding = RoundingExact
	}
	return &RequirementCalculator{rounding: rounding}
}

// Calculate returns one line per BOM item, in sequence order:
//
//	required = qtyPerOutput * requested / outputQuantity * (1 + wastage/100)
//
// evaluated as a single division rounded half-up to QuantityPrecision places.
// Doubling requested doubles the result exactly only when the quotient
// terminates within that precision; otherwise the two differ by at most one
// unit in the last place (1/3 gives 0.333333, 2/3 gives 0.666667).
func (c *RequirementCalculator) Calculate(b *BillOfMaterials, requested decimal.Decimal) ([]RequirementLine, error) {
	if !requested.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("Requested output quantity must be greater than zero, got %s", requested))
	}
	if b == nil || len(b.Items) == 0 {
		return nil, shared.NewDomainError(shared.CodeIncompleteBOM, "Bill of materials has no items")
	}
	if !b.OutputQuantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeIncompleteBOM,
			fmt.Sprintf("BOM %s has a non-positive output quantity", b.Code))
	}

	items := b.SortedItems()
	lines := make([]RequirementLine, 0, len(items))
	denominator := b.OutputQuantity.Mul(hundred)
	for _, it := range items {
		unit, ok := valueobject.LookupUnit(it.Unit)
		if !ok {
			return nil, shared.NewDomainError(shared.CodeIncompleteBOM,
				fmt.Sprintf("BOM %s item %d has no resolvable unit (%q)", b.Code, it.Sequence, it.Unit)).
				WithDetail("product_id", it.ProductID.String()).
				WithDetail("unit", it.Unit)
		}

		numerator := it.QuantityPerOutputUnit.Mul(requested).Mul(hundred.Add(it.WastagePercent))
		lines = append(lines, RequirementLine{
			ProductID: it.ProductID,
			Sequence:  it.Sequence,
			Quantity:  c.round(numerator, denominator, unit),
			Unit:      unit.Code(),
		})
	}
	return lines, nil
}

func (c *RequirementCalculator) round(numerator, denominator decimal.Decimal, unit valueobject.Unit) decimal.Decimal {
	if c.rounding == RoundingCeilDiscrete && unit.IsDiscrete() {
		return numerator.Div(denominator).Ceil()
	}
	return numerator.DivRound(denominator, QuantityPrecision)
}

// NormalizeToStockUnits re-expresses each line in the stock unit of its
// product. stockUnits maps product id to the product's unit code.
func NormalizeToStockUnits(lines []RequirementLine, stockUnits map[uuid.UUID]string) ([]RequirementLine, error) {
	out := make([]RequirementLine, 0, len(lines))
	for _, line := range lines {
		code, ok := stockUnits[line.ProductID]
		if !ok {
			return nil, shared.NewNotFoundError("product", line.ProductID)
		}
		if valueobject.NormalizeUnitCode(code) == line.Unit {
			out = append(out, line)
			continue
		}
		from, okFrom := valueobject.LookupUnit(line.Unit)
		to, okTo := valueobject.LookupUnit(code)
		if !okFrom || !okTo || !from.CanConvertTo(to) {
			return nil, shared.NewDomainError(shared.CodeIncompleteBOM,
				fmt.Sprintf("Unit %s of component %s cannot be converted to stock unit %s", line.Unit, line.ProductID, code)).
				WithDetail("product_id", line.ProductID.String())
		}
		qty, err := from.ConvertTo(line.Quantity, to)
		if err != nil {
			return nil, err
		}
		out = append(out, RequirementLine{
			ProductID: line.ProductID,
			Sequence:  line.Sequence,
			Quantity:  qty.Round(QuantityPrecision),
			Unit:      to.Code(),
		})
	}
	return out, nil
}
