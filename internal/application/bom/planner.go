package bom

import (
	"context"

	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Planner explodes a BOM into material lines expressed in each component's
// stock unit, ready to be compared with or drawn from stock.
type Planner struct {
	calculator *bom.RequirementCalculator
}

// NewPlanner creates a Planner with the given rounding policy
func NewPlanner(rounding bom.RoundingPolicy) *Planner {
	return &Planner{calculator: bom.NewRequirementCalculator(rounding)}
}

// Requirements returns the lines in the units the BOM lists them in
func (p *Planner) Requirements(b *bom.BillOfMaterials, quantity decimal.Decimal) ([]bom.RequirementLine, error) {
	return p.calculator.Calculate(b, quantity)
}

// StockRequirements returns the lines converted to stock units together with
// the component products they were resolved against.
func (p *Planner) StockRequirements(
	ctx context.Context,
	products catalog.ProductRepository,
	b *bom.BillOfMaterials,
	quantity decimal.Decimal,
) ([]bom.RequirementLine, map[uuid.UUID]*catalog.Product, error) {
	lines, err := p.calculator.Calculate(b, quantity)
	if err != nil {
		return nil, nil, err
	}
	byID, err := loadProducts(ctx, products, b.ComponentIDs())
	if err != nil {
		return nil, nil, err
	}
	units := make(map[uuid.UUID]string, len(byID))
	for id, prod := range byID {
		units[id] = prod.Unit
	}
	lines, err = bom.NormalizeToStockUnits(lines, units)
	if err != nil {
		return nil, nil, err
	}
	return lines, byID, nil
}

func loadProducts(ctx context.Context, products catalog.ProductRepository, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	found, err := products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	return byID, nil
}

// CostSnapshot prices every product at its current unit cost
func CostSnapshot(products map[uuid.UUID]*catalog.Product) bom.CostSnapshot {
	costs := make(bom.CostSnapshot, len(products))
	for id, p := range products {
		costs[id] = p.UnitCost
	}
	return costs
}
