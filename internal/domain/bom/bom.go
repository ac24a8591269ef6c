package bom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BOMItem is one component line of a bill of materials.
// QuantityPerOutputUnit is the amount needed for one BOM output batch
// (OutputQuantity units of the output product).
type BOMItem struct {
	ID                    uuid.UUID
	ProductID             uuid.UUID
	QuantityPerOutputUnit decimal.Decimal
	Unit                  string
	WastagePercent        decimal.Decimal
	Sequence              int
	Notes                 string
}

// ItemSpec describes a component line to add to a BOM
type ItemSpec struct {
	ProductID      uuid.UUID
	Quantity       decimal.Decimal
	Unit           string
	WastagePercent decimal.Decimal
	Notes          string
}

// BillOfMaterials is a recipe: OutputQuantity of OutputProductID is made
// from the listed items. Revisions share a Code; only one is active.
type BillOfMaterials struct {
	shared.BaseAggregateRoot
	Code               string
	Name               string
	OutputProductID    uuid.UUID
	OutputQuantity     decimal.Decimal
	OutputUnit         string
	Revision           int
	PreviousRevisionID *uuid.UUID
	IsActive           bool
	Items              []BOMItem
}

// NewBillOfMaterials creates revision 1 of a BOM with no items
func NewBillOfMaterials(code, name string, outputProductID uuid.UUID, outputQuantity decimal.Decimal, outputUnit string) (*BillOfMaterials, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "BOM code cannot be empty")
	}
	if len(code) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "BOM code cannot exceed 50 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "BOM name cannot be empty")
	}
	if outputProductID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Output product cannot be empty")
	}
	if !outputQuantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Output quantity must be greater than zero")
	}

	b := &BillOfMaterials{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		OutputProductID:   outputProductID,
		OutputQuantity:    outputQuantity,
		OutputUnit:        valueobject.NormalizeUnitCode(outputUnit),
		Revision:          1,
		IsActive:          true,
		Items:             make([]BOMItem, 0),
	}
	b.AddDomainEvent(NewBOMCreatedEvent(b))
	return b, nil
}

// AddItem appends a component line. Units are stored as given (normalized);
// whether they resolve is checked when requirements are calculated.
func (b *BillOfMaterials) AddItem(spec ItemSpec) (*BOMItem, error) {
	if spec.ProductID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Component product cannot be empty")
	}
	if spec.ProductID == b.OutputProductID {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "A BOM cannot consume its own output product")
	}
	if !spec.Quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("Quantity for component %s must be greater than zero", spec.ProductID))
	}
	if spec.WastagePercent.IsNegative() || spec.WastagePercent.GreaterThan(hundred) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Wastage percent must be between 0 and 100")
	}
	for _, it := range b.Items {
		if it.ProductID == spec.ProductID {
			return nil, shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Component %s is already listed in this BOM", spec.ProductID))
		}
	}

	item := BOMItem{
		ID:                    uuid.New(),
		ProductID:             spec.ProductID,
		QuantityPerOutputUnit: spec.Quantity,
		Unit:                  valueobject.NormalizeUnitCode(spec.Unit),
		WastagePercent:        spec.WastagePercent,
		Sequence:              len(b.Items) + 1,
		Notes:                 strings.TrimSpace(spec.Notes),
	}
	b.Items = append(b.Items, item)
	b.Touch()
	return &b.Items[len(b.Items)-1], nil
}

// ReplaceItems rewrites the component list in place. Callers must make sure
// the BOM is not referenced by an active order; otherwise use Revise.
func (b *BillOfMaterials) ReplaceItems(specs []ItemSpec) error {
	previous := b.Items
	b.Items = make([]BOMItem, 0, len(specs))
	for _, spec := range specs {
		if _, err := b.AddItem(spec); err != nil {
			b.Items = previous
			return err
		}
	}
	b.IncrementVersion()
	return nil
}

// Edit changes the header and items of an unreferenced BOM in place. Nothing
// changes when any value is invalid.
func (b *BillOfMaterials) Edit(name string, outputQuantity decimal.Decimal, outputUnit string, specs []ItemSpec) error {
	if !b.IsActive {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("BOM %s revision %d is not the active revision", b.Code, b.Revision))
	}
	if !outputQuantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Output quantity must be greater than zero")
	}
	if name = strings.TrimSpace(name); name == "" {
		name = b.Name
	}
	prevQty, prevUnit := b.OutputQuantity, b.OutputUnit
	b.OutputQuantity = outputQuantity
	b.OutputUnit = valueobject.NormalizeUnitCode(outputUnit)
	if err := b.ReplaceItems(specs); err != nil {
		b.OutputQuantity, b.OutputUnit = prevQty, prevUnit
		return err
	}
	b.Name = name
	b.Touch()
	return nil
}

// Revise produces the next revision with new header values and items. The
// receiver is deactivated and otherwise left untouched.
func (b *BillOfMaterials) Revise(name string, outputQuantity decimal.Decimal, outputUnit string, specs []ItemSpec) (*BillOfMaterials, error) {
	if !b.IsActive {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("BOM %s revision %d is not the active revision", b.Code, b.Revision))
	}
	if strings.TrimSpace(name) == "" {
		name = b.Name
	}
	next, err := NewBillOfMaterials(b.Code, name, b.OutputProductID, outputQuantity, outputUnit)
	if err != nil {
		return nil, err
	}
	next.ClearDomainEvents()
	for _, spec := range specs {
		if _, err := next.AddItem(spec); err != nil {
			return nil, err
		}
	}
	prevID := b.ID
	next.Revision = b.Revision + 1
	next.PreviousRevisionID = &prevID

	b.IsActive = false
	b.Touch()
	b.IncrementVersion()

	next.AddDomainEvent(NewBOMRevisedEvent(next))
	return next, nil
}

// SortedItems returns the items ordered by sequence
func (b *BillOfMaterials) SortedItems() []BOMItem {
	items := make([]BOMItem, len(b.Items))
	copy(items, b.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Sequence < items[j].Sequence
	})
	return items
}

// ComponentIDs returns the distinct component product ids
func (b *BillOfMaterials) ComponentIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Items))
	for _, it := range b.Items {
		ids = append(ids, it.ProductID)
	}
	return ids
}

// ValidateComponents checks that every component exists in products and is
// flagged as a raw material, and that the output product exists.
func (b *BillOfMaterials) ValidateComponents(products map[uuid.UUID]*catalog.Product) error {
	if _, ok := products[b.OutputProductID]; !ok {
		return shared.NewNotFoundError("product", b.OutputProductID)
	}
	for _, it := range b.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return shared.NewNotFoundError("product", it.ProductID)
		}
		if !p.IsRawMaterial {
			return shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Component %s (%s) is not a raw material", p.SKU, p.ID)).
				WithDetail("product_id", p.ID.String())
		}
	}
	return nil
}
