package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryBatch is a received lot of one product.
// 0 <= CurrentQuantity <= InitialQuantity holds at all times, and every change
// to CurrentQuantity produces exactly one BatchMovement.
type InventoryBatch struct {
	shared.BaseAggregateRoot
	ProductID       uuid.UUID
	BatchNumber     string
	InitialQuantity decimal.Decimal
	CurrentQuantity decimal.Decimal
	UnitCost        decimal.Decimal
	ManufactureDate *time.Time
	ExpiryDate      *time.Time
	ReceivedDate    time.Time
	IsActive        bool
	ExhaustedAt     *time.Time
	RetiredReason   string
}

// NewInventoryBatch creates an active batch holding its full initial quantity
func NewInventoryBatch(
	productID uuid.UUID,
	batchNumber string,
	quantity, unitCost decimal.Decimal,
	manufactureDate, expiryDate *time.Time,
	receivedDate time.Time,
) (*InventoryBatch, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	batchNumber = strings.TrimSpace(batchNumber)
	if batchNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Batch number cannot be empty")
	}
	if len(batchNumber) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Batch number cannot exceed 50 characters")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Batch quantity must be greater than zero")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unit cost cannot be negative")
	}
	if manufactureDate != nil && expiryDate != nil && expiryDate.Before(*manufactureDate) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Expiry date cannot be before manufacture date")
	}
	if receivedDate.IsZero() {
		receivedDate = time.Now()
	}

	b := &InventoryBatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		BatchNumber:       batchNumber,
		InitialQuantity:   quantity,
		CurrentQuantity:   quantity,
		UnitCost:          unitCost,
		ManufactureDate:   manufactureDate,
		ExpiryDate:        expiryDate,
		ReceivedDate:      receivedDate,
		IsActive:          true,
	}
	b.AddDomainEvent(NewBatchReceivedEvent(b))
	return b, nil
}

// Draw takes quantity out of the batch as an OUT or WASTE movement.
func (b *InventoryBatch) Draw(quantity decimal.Decimal, movementType MovementType, reference string) (*BatchMovement, error) {
	if movementType != MovementTypeOut && movementType != MovementTypeWaste {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Draw only records OUT or WASTE movements, got %s", movementType))
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity to draw must be greater than zero")
	}
	if !b.IsActive {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Batch %s is not active", b.BatchNumber))
	}
	if quantity.GreaterThan(b.CurrentQuantity) {
		return nil, NewInsufficientBatchStockError(b.ProductID, quantity, b.CurrentQuantity)
	}

	b.CurrentQuantity = b.CurrentQuantity.Sub(quantity)
	if b.CurrentQuantity.IsZero() {
		now := time.Now()
		b.IsActive = false
		b.ExhaustedAt = &now
		b.AddDomainEvent(NewBatchExhaustedEvent(b))
	}
	b.Touch()
	b.IncrementVersion()
	return newBatchMovement(b, movementType, quantity, reference, ""), nil
}

// Return puts previously drawn material back as an IN movement.
// The batch can never hold more than it was received with.
func (b *InventoryBatch) Return(quantity decimal.Decimal, reference, reason string) (*BatchMovement, error) {
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Returned quantity must be greater than zero")
	}
	if b.RetiredReason != "" {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Batch %s is retired", b.BatchNumber))
	}
	next := b.CurrentQuantity.Add(quantity)
	if next.GreaterThan(b.InitialQuantity) {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("Returning %s would exceed the initial quantity %s of batch %s", quantity, b.InitialQuantity, b.BatchNumber))
	}

	b.CurrentQuantity = next
	b.IsActive = true
	b.ExhaustedAt = nil
	b.Touch()
	b.IncrementVersion()
	return newBatchMovement(b, MovementTypeIn, quantity.Neg(), reference, reason), nil
}

// Adjust changes the current quantity by delta as an ADJUSTMENT movement.
func (b *InventoryBatch) Adjust(delta decimal.Decimal, reference, reason string) (*BatchMovement, error) {
	if delta.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Adjustment cannot be zero")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewDomainError(shared.CodeMissingReason, "Batch adjustments require a reason")
	}
	next := b.CurrentQuantity.Add(delta)
	if next.IsNegative() {
		return nil, NewInsufficientBatchStockError(b.ProductID, delta.Neg(), b.CurrentQuantity)
	}
	if next.GreaterThan(b.InitialQuantity) {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("Adjustment would exceed the initial quantity %s of batch %s", b.InitialQuantity, b.BatchNumber))
	}

	b.CurrentQuantity = next
	now := time.Now()
	switch {
	case next.IsZero():
		b.IsActive = false
		b.ExhaustedAt = &now
	case b.RetiredReason == "":
		b.IsActive = true
		b.ExhaustedAt = nil
	}
	b.Touch()
	b.IncrementVersion()
	return newBatchMovement(b, MovementTypeAdjustment, delta.Neg(), reference, reason), nil
}

// Retire deactivates the batch without touching its quantity
func (b *InventoryBatch) Retire(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError(shared.CodeMissingReason, "Retiring a batch requires a reason")
	}
	if b.RetiredReason != "" {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Batch %s is already retired", b.BatchNumber))
	}
	b.IsActive = false
	b.RetiredReason = reason
	b.Touch()
	b.IncrementVersion()
	return nil
}

// IsExpiredAt reports whether the batch expired before t
func (b *InventoryBatch) IsExpiredAt(t time.Time) bool {
	return b.ExpiryDate != nil && b.ExpiryDate.Before(t)
}

// IsConsumable reports whether the batch can be drawn from
func (b *InventoryBatch) IsConsumable() bool {
	return b.IsActive && b.CurrentQuantity.IsPositive()
}

// DrawnQuantity is InitialQuantity - CurrentQuantity
func (b *InventoryBatch) DrawnQuantity() decimal.Decimal {
	return b.InitialQuantity.Sub(b.CurrentQuantity)
}

// NewInsufficientBatchStockError reports that active batches cannot cover a request
func NewInsufficientBatchStockError(productID uuid.UUID, requested, available decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(shared.CodeInsufficientBatchStock,
		fmt.Sprintf("Insufficient batch stock for product %s: requested %s, available %s", productID, requested, available)).
		WithDetail("product_id", productID.String()).
		WithDetail("requested", requested.String()).
		WithDetail("available", available.String()).
		WithDetail("shortage", requested.Sub(available).String())
}
