package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var skuPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_.-]*$`)

// Product is a stock-keeping unit known to the engine.
// CurrentStock is only changed through the stock catalog's atomic adjustment.
type Product struct {
	shared.BaseAggregateRoot
	SKU           string
	Name          string
	Unit          string
	CurrentStock  decimal.Decimal
	MinimumStock  decimal.Decimal
	UnitCost      decimal.Decimal
	LeadTimeDays  int
	IsRawMaterial bool
}

// NewProduct creates a product with zero stock and cost
func NewProduct(sku, name, unit string, isRawMaterial bool) (*Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	u, ok := valueobject.LookupUnit(unit)
	if !ok {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown unit %q", unit))
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
		Unit:              u.Code(),
		CurrentStock:      decimal.Zero,
		MinimumStock:      decimal.Zero,
		UnitCost:          decimal.Zero,
		IsRawMaterial:     isRawMaterial,
	}
	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// Rename changes the display name
func (p *Product) Rename(name string) error {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return err
	}
	p.Name = name
	p.Touch()
	p.IncrementVersion()
	return nil
}

// SetUnitCost sets the current unit cost used for estimates
func (p *Product) SetUnitCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unit cost cannot be negative")
	}
	p.UnitCost = cost
	p.Touch()
	p.IncrementVersion()
	return nil
}

// SetMinimumStock sets the low-stock threshold
func (p *Product) SetMinimumStock(qty decimal.Decimal) error {
	if qty.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Minimum stock cannot be negative")
	}
	p.MinimumStock = qty
	p.Touch()
	p.IncrementVersion()
	return nil
}

// SetLeadTimeDays sets the replenishment lead time
func (p *Product) SetLeadTimeDays(days int) error {
	if days < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Lead time cannot be negative")
	}
	p.LeadTimeDays = days
	p.Touch()
	p.IncrementVersion()
	return nil
}

// ApplyStockDelta changes CurrentStock by delta. It fails without changing
// anything if the result would be negative.
func (p *Product) ApplyStockDelta(delta decimal.Decimal) error {
	next := p.CurrentStock.Add(delta)
	if next.IsNegative() {
		return NewInsufficientStockError(p.ID, delta.Neg(), p.CurrentStock)
	}
	wasBelow := p.IsBelowMinimum()
	p.CurrentStock = next
	p.Touch()
	p.IncrementVersion()
	if !wasBelow && p.IsBelowMinimum() {
		p.AddDomainEvent(NewStockBelowMinimumEvent(p))
	}
	return nil
}

// IsBelowMinimum reports whether stock is under the configured minimum
func (p *Product) IsBelowMinimum() bool {
	return p.MinimumStock.IsPositive() && p.CurrentStock.LessThan(p.MinimumStock)
}

// StockUnit resolves the product's unit of measure
func (p *Product) StockUnit() (valueobject.Unit, bool) {
	return valueobject.LookupUnit(p.Unit)
}

// NewInsufficientStockError reports a stock decrement that cannot be satisfied
func NewInsufficientStockError(productID uuid.UUID, requested, available decimal.Decimal) *shared.DomainError {
	shortage := requested.Sub(available)
	if shortage.IsNegative() {
		shortage = decimal.Zero
	}
	return shared.NewDomainError(shared.CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for product %s: requested %s, available %s", productID, requested, available)).
		WithDetail("product_id", productID.String()).
		WithDetail("requested", requested.String()).
		WithDetail("available", available.String()).
		WithDetail("shortage", shortage.String())
}

func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product SKU cannot be empty")
	}
	if len(sku) > 50 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product SKU cannot exceed 50 characters")
	}
	if !skuPattern.MatchString(sku) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product SKU can only contain letters, digits, '-', '_' and '.'")
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot exceed 200 characters")
	}
	return nil
}
