package inventory

import (
	"fmt"
	"sort"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationStrategy names a batch ordering policy
type AllocationStrategy string

const (
	// AllocationStrategyFEFO consumes the soonest-expiring batches first
	AllocationStrategyFEFO AllocationStrategy = "FEFO"
	// AllocationStrategyFIFO consumes the earliest-received batches first
	AllocationStrategyFIFO AllocationStrategy = "FIFO"
)

// IsValid checks if the strategy is a known value
func (s AllocationStrategy) IsValid() bool {
	return s == AllocationStrategyFEFO || s == AllocationStrategyFIFO
}

// BatchOrdering decides which of two batches is consumed first
type BatchOrdering interface {
	Strategy() AllocationStrategy
	Less(a, b *InventoryBatch) bool
}

// FEFOOrdering sorts by expiry ascending with undated batches last, then by
// received date, then by batch number.
type FEFOOrdering struct{}

// Strategy returns AllocationStrategyFEFO
func (FEFOOrdering) Strategy() AllocationStrategy { return AllocationStrategyFEFO }

// Less implements BatchOrdering
func (FEFOOrdering) Less(a, b *InventoryBatch) bool {
	switch {
	case a.ExpiryDate != nil && b.ExpiryDate != nil:
		if !a.ExpiryDate.Equal(*b.ExpiryDate) {
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
	case a.ExpiryDate != nil:
		return true
	case b.ExpiryDate != nil:
		return false
	}
	return receivedFirst(a, b)
}

// FIFOOrdering sorts by received date, then by batch number
type FIFOOrdering struct{}

// Strategy returns AllocationStrategyFIFO
func (FIFOOrdering) Strategy() AllocationStrategy { return AllocationStrategyFIFO }

// Less implements BatchOrdering
func (FIFOOrdering) Less(a, b *InventoryBatch) bool {
	return receivedFirst(a, b)
}

func receivedFirst(a, b *InventoryBatch) bool {
	if !a.ReceivedDate.Equal(b.ReceivedDate) {
		return a.ReceivedDate.Before(b.ReceivedDate)
	}
	return a.BatchNumber < b.BatchNumber
}

// Allocation is the planned draw from one batch
type Allocation struct {
	BatchID          uuid.UUID       `json:"batch_id"`
	BatchNumber      string          `json:"batch_number"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	Cost             decimal.Decimal `json:"cost"`
	RemainingInBatch decimal.Decimal `json:"remaining_in_batch"`
	Exhausts         bool            `json:"exhausts"`
}

// AllocationPlan is a complete, validated allocation across batches.
// A plan is only produced when the batches cover the whole request.
type AllocationPlan struct {
	ProductID           uuid.UUID       `json:"product_id"`
	Requested           decimal.Decimal `json:"requested"`
	Allocations         []Allocation    `json:"allocations"`
	TotalCost           decimal.Decimal `json:"total_cost"`
	WeightedAverageCost decimal.Decimal `json:"weighted_average_cost"`
}

// BatchAllocator plans consumption across a product's batches
type BatchAllocator struct {
	ordering BatchOrdering
}

// NewBatchAllocator creates an allocator; anything other than FIFO means FEFO
func NewBatchAllocator(strategy AllocationStrategy) *BatchAllocator {
	if strategy == AllocationStrategyFIFO {
		return &BatchAllocator{ordering: FIFOOrdering{}}
	}
	return &BatchAllocator{ordering: FEFOOrdering{}}
}

// Strategy returns the ordering policy in use
func (a *BatchAllocator) Strategy() AllocationStrategy {
	return a.ordering.Strategy()
}

// Order returns the consumable batches of productID in consumption order
func (a *BatchAllocator) Order(productID uuid.UUID, batches []*InventoryBatch) []*InventoryBatch {
	eligible := make([]*InventoryBatch, 0, len(batches))
	for _, b := range batches {
		if b.ProductID == productID && b.IsConsumable() {
			eligible = append(eligible, b)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return a.ordering.Less(eligible[i], eligible[j])
	})
	return eligible
}

// Plan allocates requested across batches greedily in consumption order.
// It never mutates the batches and fails with INSUFFICIENT_BATCH_STOCK when
// the consumable total is below requested.
func (a *BatchAllocator) Plan(productID uuid.UUID, requested decimal.Decimal, batches []*InventoryBatch) (*AllocationPlan, error) {
	if !requested.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Requested quantity must be greater than zero")
	}
	ordered := a.Order(productID, batches)

	available := decimal.Zero
	for _, b := range ordered {
		available = available.Add(b.CurrentQuantity)
	}
	if available.LessThan(requested) {
		return nil, NewInsufficientBatchStockError(productID, requested, available)
	}

	plan := &AllocationPlan{
		ProductID:   productID,
		Requested:   requested,
		Allocations: make([]Allocation, 0, len(ordered)),
		TotalCost:   decimal.Zero,
	}
	remaining := requested
	for _, b := range ordered {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, b.CurrentQuantity)
		cost := take.Mul(b.UnitCost)
		left := b.CurrentQuantity.Sub(take)
		plan.Allocations = append(plan.Allocations, Allocation{
			BatchID:          b.ID,
			BatchNumber:      b.BatchNumber,
			Quantity:         take,
			UnitCost:         b.UnitCost,
			Cost:             cost,
			RemainingInBatch: left,
			Exhausts:         left.IsZero(),
		})
		plan.TotalCost = plan.TotalCost.Add(cost)
		remaining = remaining.Sub(take)
	}
	plan.WeightedAverageCost = plan.TotalCost.Div(requested).Round(4)
	return plan, nil
}

// Apply draws every allocation from the matching batch. All allocations are
// checked against the batches before any of them is drawn.
func (p *AllocationPlan) Apply(batches []*InventoryBatch, movementType MovementType, reference string) ([]*BatchMovement, error) {
	byID := make(map[uuid.UUID]*InventoryBatch, len(batches))
	for _, b := range batches {
		byID[b.ID] = b
	}
	for _, alloc := range p.Allocations {
		b, ok := byID[alloc.BatchID]
		if !ok {
			return nil, shared.NewNotFoundError("batch", alloc.BatchID)
		}
		if !b.IsConsumable() || b.CurrentQuantity.LessThan(alloc.Quantity) {
			return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
				fmt.Sprintf("Batch %s changed after the allocation was planned", b.BatchNumber))
		}
	}

	movements := make([]*BatchMovement, 0, len(p.Allocations))
	for _, alloc := range p.Allocations {
		m, err := byID[alloc.BatchID].Draw(alloc.Quantity, movementType, reference)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, nil
}
