package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VariancePrecision is the number of decimal places of variance percentages
const VariancePrecision int32 = 4

// CountStatus represents the status of an inventory count
type CountStatus string

const (
	CountStatusPending    CountStatus = "PENDING"
	CountStatusInProgress CountStatus = "IN_PROGRESS"
	CountStatusCompleted  CountStatus = "COMPLETED"
	CountStatusReconciled CountStatus = "RECONCILED"
)

// IsValid checks if the status is a valid CountStatus
func (s CountStatus) IsValid() bool {
	switch s {
	case CountStatusPending, CountStatusInProgress, CountStatusCompleted, CountStatusReconciled:
		return true
	}
	return false
}

// String returns the string representation of CountStatus
func (s CountStatus) String() string {
	return string(s)
}

// CanTransitionTo allows only the next step of the linear lifecycle
func (s CountStatus) CanTransitionTo(target CountStatus) bool {
	switch s {
	case CountStatusPending:
		return target == CountStatusInProgress
	case CountStatusInProgress:
		return target == CountStatusCompleted
	case CountStatusCompleted:
		return target == CountStatusReconciled
	}
	return false
}

// ItemDecision is the stored outcome of reconciling one count item
type ItemDecision struct {
	Approved        bool
	AppliedQuantity decimal.Decimal
	Overridden      bool
	ReasonCode      string
	Notes           string
	DecidedAt       time.Time
}

// CountItem is a product line of an inventory count
type CountItem struct {
	ID                 uuid.UUID
	ProductID          uuid.UUID
	ExpectedQuantity   decimal.Decimal
	ActualQuantity     *decimal.Decimal
	Variance           decimal.Decimal
	VariancePercentage *decimal.Decimal
	VarianceUndefined  bool
	CountedAt          *time.Time
	Decision           *ItemDecision
}

// IsCounted reports whether an actual quantity has been recorded
func (i *CountItem) IsCounted() bool {
	return i.ActualQuantity != nil
}

func (i *CountItem) record(actual decimal.Decimal) {
	now := time.Now()
	i.ActualQuantity = &actual
	i.CountedAt = &now
	i.Variance, i.VariancePercentage, i.VarianceUndefined = ComputeVariance(i.ExpectedQuantity, actual)
}

// ComputeVariance returns actual-expected and the variance as a percentage of
// expected. With expected == 0 the percentage is 0 when actual is also 0 and
// undefined (nil, flagged) otherwise.
func ComputeVariance(expected, actual decimal.Decimal) (variance decimal.Decimal, percentage *decimal.Decimal, undefined bool) {
	variance = actual.Sub(expected)
	if expected.IsZero() {
		if actual.IsZero() {
			zero := decimal.Zero
			return variance, &zero, false
		}
		return variance, nil, true
	}
	pct := variance.Mul(decimal.NewFromInt(100)).DivRound(expected, VariancePrecision)
	return variance, &pct, false
}

// Decision is an operator's ruling on one count item
type Decision struct {
	ProductID        uuid.UUID
	Approve          bool
	OverrideQuantity *decimal.Decimal
	ReasonCode       string
	Notes            string
}

// StockEffect is a stock change that reconciling a count requires
type StockEffect struct {
	ProductID  uuid.UUID
	Delta      decimal.Decimal
	ReasonCode string
}

// InventoryCount is a physical count of a set of products
type InventoryCount struct {
	shared.BaseAggregateRoot
	Reference    string
	CountDate    time.Time
	Status       CountStatus
	CreatedBy    uuid.UUID
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ReconciledAt *time.Time
	ReconciledBy *uuid.UUID
	Notes        string
	Items        []CountItem
}

// NewInventoryCount creates a PENDING count with no items
func NewInventoryCount(reference string, countDate time.Time, createdBy uuid.UUID) (*InventoryCount, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Count reference cannot be empty")
	}
	if len(reference) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Count reference cannot exceed 50 characters")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Creator cannot be empty")
	}
	if countDate.IsZero() {
		countDate = time.Now()
	}
	c := &InventoryCount{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		CountDate:         countDate,
		Status:            CountStatusPending,
		CreatedBy:         createdBy,
		Items:             make([]CountItem, 0),
	}
	c.AddDomainEvent(NewInventoryCountCreatedEvent(c))
	return c, nil
}

// AddItem adds a product with its expected (system) quantity
func (c *InventoryCount) AddItem(productID uuid.UUID, expected decimal.Decimal) error {
	if c.Status != CountStatusPending && c.Status != CountStatusInProgress {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot add items to a count in status %s", c.Status))
	}
	if productID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if expected.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Expected quantity cannot be negative")
	}
	if c.findItem(productID) != nil {
		return shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("Product %s is already part of count %s", productID, c.Reference))
	}
	c.Items = append(c.Items, CountItem{
		ID:               uuid.New(),
		ProductID:        productID,
		ExpectedQuantity: expected,
	})
	c.Touch()
	c.IncrementVersion()
	return nil
}

// Start moves PENDING to IN_PROGRESS
func (c *InventoryCount) Start() error {
	if len(c.Items) == 0 {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot start a count without items")
	}
	if err := c.transition(CountStatusInProgress); err != nil {
		return err
	}
	now := time.Now()
	c.StartedAt = &now
	return nil
}

// RecordActual stores the counted quantity of a product. Recording on a
// PENDING count starts it; COMPLETED counts may still be corrected.
func (c *InventoryCount) RecordActual(productID uuid.UUID, actual decimal.Decimal) error {
	if c.Status == CountStatusReconciled {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Count %s is reconciled and can no longer be edited", c.Reference))
	}
	if actual.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Actual quantity cannot be negative")
	}
	item := c.findItem(productID)
	if item == nil {
		return shared.NewNotFoundError("count item", productID)
	}
	if c.Status == CountStatusPending {
		if err := c.Start(); err != nil {
			return err
		}
	}
	item.record(actual)
	c.Touch()
	c.IncrementVersion()
	return nil
}

// Complete moves IN_PROGRESS to COMPLETED once every item is counted
func (c *InventoryCount) Complete() error {
	if !c.Status.CanTransitionTo(CountStatusCompleted) {
		return shared.NewStateTransitionError("inventory count", c.Status.String(), CountStatusCompleted.String())
	}
	if uncounted := c.UncountedProducts(); len(uncounted) > 0 {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("%d item(s) of count %s are not counted yet", len(uncounted), c.Reference)).
			WithDetail("uncounted_products", uuidStrings(uncounted))
	}
	if err := c.transition(CountStatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	c.CompletedAt = &now
	return nil
}

// Reconcile applies one decision per item and moves the count to RECONCILED.
// Every decision is validated before anything changes. The returned effects
// are the stock deltas of approved items, in item order; approved items with a
// zero delta produce no effect.
func (c *InventoryCount) Reconcile(decisions []Decision, by uuid.UUID) ([]StockEffect, error) {
	if !c.Status.CanTransitionTo(CountStatusReconciled) {
		return nil, shared.NewStateTransitionError("inventory count", c.Status.String(), CountStatusReconciled.String())
	}

	byProduct := make(map[uuid.UUID]Decision, len(decisions))
	for _, d := range decisions {
		if c.findItem(d.ProductID) == nil {
			return nil, shared.NewNotFoundError("count item", d.ProductID)
		}
		if _, dup := byProduct[d.ProductID]; dup {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Product %s has more than one decision", d.ProductID))
		}
		if strings.TrimSpace(d.ReasonCode) == "" {
			return nil, shared.NewDomainError(shared.CodeMissingReason,
				fmt.Sprintf("A reason code is required for the decision on product %s", d.ProductID)).
				WithDetail("product_id", d.ProductID.String())
		}
		if d.OverrideQuantity != nil && !d.Approve {
			return nil, shared.NewDomainError(shared.CodeInvalidInput,
				fmt.Sprintf("Rejected item %s cannot carry an override quantity", d.ProductID))
		}
		byProduct[d.ProductID] = d
	}
	missing := make([]uuid.UUID, 0)
	for _, it := range c.Items {
		if _, ok := byProduct[it.ProductID]; !ok {
			missing = append(missing, it.ProductID)
		}
	}
	if len(missing) > 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("%d item(s) of count %s have no decision", len(missing), c.Reference)).
			WithDetail("undecided_products", uuidStrings(missing))
	}

	now := time.Now()
	effects := make([]StockEffect, 0, len(c.Items))
	for i := range c.Items {
		it := &c.Items[i]
		d := byProduct[it.ProductID]
		decision := &ItemDecision{
			Approved:        d.Approve,
			AppliedQuantity: decimal.Zero,
			ReasonCode:      strings.TrimSpace(d.ReasonCode),
			Notes:           strings.TrimSpace(d.Notes),
			DecidedAt:       now,
		}
		if d.Approve {
			delta := it.Variance
			if d.OverrideQuantity != nil {
				delta = *d.OverrideQuantity
				decision.Overridden = true
			}
			decision.AppliedQuantity = delta
			if !delta.IsZero() {
				effects = append(effects, StockEffect{ProductID: it.ProductID, Delta: delta, ReasonCode: decision.ReasonCode})
			}
		}
		it.Decision = decision
	}

	c.Status = CountStatusReconciled
	c.ReconciledAt = &now
	c.ReconciledBy = &by
	c.Touch()
	c.IncrementVersion()
	c.AddDomainEvent(NewInventoryCountReconciledEvent(c, effects))
	return effects, nil
}

// UncountedProducts lists the products without an actual quantity
func (c *InventoryCount) UncountedProducts() []uuid.UUID {
	out := make([]uuid.UUID, 0)
	for _, it := range c.Items {
		if !it.IsCounted() {
			out = append(out, it.ProductID)
		}
	}
	return out
}

// ProductIDs returns the products of the count, sorted for stable lock order
func (c *InventoryCount) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Item returns the item of a product, or nil
func (c *InventoryCount) Item(productID uuid.UUID) *CountItem {
	return c.findItem(productID)
}

func (c *InventoryCount) findItem(productID uuid.UUID) *CountItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *InventoryCount) transition(target CountStatus) error {
	if !c.Status.CanTransitionTo(target) {
		return shared.NewStateTransitionError("inventory count", c.Status.String(), target.String())
	}
	c.Status = target
	c.Touch()
	c.IncrementVersion()
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
