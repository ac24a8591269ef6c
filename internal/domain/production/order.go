package production

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductionOrder is a production run of a BOM towards a target quantity.
// CompletedQuantity only moves forward, through RecordOutput.
type ProductionOrder struct {
	shared.BaseAggregateRoot
	OrderNumber       string
	BOMID             uuid.UUID
	OutputProductID   uuid.UUID
	TargetQuantity    decimal.Decimal
	CompletedQuantity decimal.Decimal
	WastedQuantity    decimal.Decimal
	Status            OrderStatus
	Priority          Priority
	PlannedStartDate  time.Time
	ActualStartDate   *time.Time
	CompletedDate     *time.Time
	CancelledDate     *time.Time
	AssignedTo        *uuid.UUID
	Notes             string
	BatchTracked      bool
	ForceCompleted    bool
}

// NewProductionOrder creates a PLANNED order
func NewProductionOrder(
	orderNumber string,
	bomID, outputProductID uuid.UUID,
	target decimal.Decimal,
	priority Priority,
	plannedStart time.Time,
) (*ProductionOrder, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order number cannot be empty")
	}
	if bomID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "BOM ID cannot be empty")
	}
	if !target.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("Target quantity must be greater than zero, got %s", target))
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Invalid priority %q", priority))
	}
	if plannedStart.IsZero() {
		plannedStart = time.Now()
	}

	o := &ProductionOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		BOMID:             bomID,
		OutputProductID:   outputProductID,
		TargetQuantity:    target,
		CompletedQuantity: decimal.Zero,
		WastedQuantity:    decimal.Zero,
		Status:            OrderStatusPlanned,
		Priority:          priority,
		PlannedStartDate:  plannedStart,
	}
	o.AddDomainEvent(NewProductionOrderCreatedEvent(o))
	return o, nil
}

// TransitionTo moves the order to target. Completing below target requires
// force; a forced partial completion is flagged on the order and announced
// with a ProductionOrderForceCompleted event.
func (o *ProductionOrder) TransitionTo(target OrderStatus, force bool) error {
	if !target.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("Unknown order status %q", target))
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewStateTransitionError("production order", o.Status.String(), target.String())
	}

	now := time.Now()
	forcedPartial := false
	switch target {
	case OrderStatusInProgress:
		if o.ActualStartDate == nil {
			o.ActualStartDate = &now
		}
	case OrderStatusCompleted:
		if o.CompletedQuantity.LessThan(o.TargetQuantity) {
			if !force {
				return shared.NewStateTransitionError("production order", o.Status.String(), target.String()).
					WithDetail("completed_quantity", o.CompletedQuantity.String()).
					WithDetail("target_quantity", o.TargetQuantity.String()).
					WithDetail("reason", "completed quantity is below target; pass force to complete partially")
			}
			forcedPartial = true
			o.ForceCompleted = true
		}
		o.CompletedDate = &now
	case OrderStatusCancelled:
		o.CancelledDate = &now
	}

	from := o.Status
	o.Status = target
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewProductionOrderStatusChangedEvent(o, from))
	if forcedPartial {
		o.AddDomainEvent(NewProductionOrderForceCompletedEvent(o))
	}
	return nil
}

// RecordOutput adds produced and wasted quantities. Without allowOverage the
// completed quantity may not pass the target.
func (o *ProductionOrder) RecordOutput(quantity, wastage decimal.Decimal, allowOverage bool) error {
	if o.Status != OrderStatusInProgress {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot record production for order %s in status %s", o.OrderNumber, o.Status)).
			WithDetail("status", o.Status.String())
	}
	if !quantity.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Produced quantity must be greater than zero")
	}
	if wastage.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Wastage cannot be negative")
	}
	next := o.CompletedQuantity.Add(quantity)
	if next.GreaterThan(o.TargetQuantity) && !allowOverage {
		return shared.NewDomainError(shared.CodeOverProduction,
			fmt.Sprintf("Recording %s would bring order %s to %s, above target %s", quantity, o.OrderNumber, next, o.TargetQuantity)).
			WithDetail("target_quantity", o.TargetQuantity.String()).
			WithDetail("completed_quantity", o.CompletedQuantity.String()).
			WithDetail("requested_quantity", quantity.String()).
			WithDetail("remaining_quantity", o.RemainingQuantity().String())
	}

	o.CompletedQuantity = next
	o.WastedQuantity = o.WastedQuantity.Add(wastage)
	o.Touch()
	o.IncrementVersion()
	return nil
}

// RemainingQuantity is the quantity still to produce (never negative)
func (o *ProductionOrder) RemainingQuantity() decimal.Decimal {
	remaining := o.TargetQuantity.Sub(o.CompletedQuantity)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ReachedTarget reports whether the completed quantity covers the target
func (o *ProductionOrder) ReachedTarget() bool {
	return o.CompletedQuantity.GreaterThanOrEqual(o.TargetQuantity)
}

// BlocksBOMChanges reports whether the order pins its BOM revision
func (o *ProductionOrder) BlocksBOMChanges() bool {
	return o.Status != OrderStatusCancelled
}

// Assign sets the responsible user
func (o *ProductionOrder) Assign(userID uuid.UUID) error {
	if o.Status.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot assign order %s in status %s", o.OrderNumber, o.Status))
	}
	o.AssignedTo = &userID
	o.Touch()
	o.IncrementVersion()
	return nil
}

// SetNotes replaces the free-text notes
func (o *ProductionOrder) SetNotes(notes string) {
	o.Notes = strings.TrimSpace(notes)
	o.Touch()
	o.IncrementVersion()
}

// EnableBatchTracking makes recordings consume raw materials lot by lot
func (o *ProductionOrder) EnableBatchTracking() error {
	if o.Status != OrderStatusPlanned {
		return shared.NewDomainError(shared.CodeInvalidState, "Batch tracking can only be changed while the order is planned")
	}
	o.BatchTracked = true
	return nil
}
