package inventory

import (
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeInventoryBatch = "InventoryBatch"
	AggregateTypeInventoryCount = "InventoryCount"
)

// Event type constants
const (
	EventTypeBatchReceived            = "BatchReceived"
	EventTypeBatchExhausted           = "BatchExhausted"
	EventTypeInventoryCountCreated    = "InventoryCountCreated"
	EventTypeInventoryCountReconciled = "InventoryCountReconciled"
)

// BatchReceivedEvent is published when a batch is received
type BatchReceivedEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID       `json:"batch_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewBatchReceivedEvent creates a new BatchReceivedEvent
func NewBatchReceivedEvent(b *InventoryBatch) *BatchReceivedEvent {
	return &BatchReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchReceived, AggregateTypeInventoryBatch, b.ID),
		BatchID:         b.ID,
		ProductID:       b.ProductID,
		BatchNumber:     b.BatchNumber,
		Quantity:        b.InitialQuantity,
	}
}

// BatchExhaustedEvent is published when a draw empties a batch
type BatchExhaustedEvent struct {
	shared.BaseDomainEvent
	BatchID     uuid.UUID `json:"batch_id"`
	ProductID   uuid.UUID `json:"product_id"`
	BatchNumber string    `json:"batch_number"`
}

// NewBatchExhaustedEvent creates a new BatchExhaustedEvent
func NewBatchExhaustedEvent(b *InventoryBatch) *BatchExhaustedEvent {
	return &BatchExhaustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBatchExhausted, AggregateTypeInventoryBatch, b.ID),
		BatchID:         b.ID,
		ProductID:       b.ProductID,
		BatchNumber:     b.BatchNumber,
	}
}

// InventoryCountCreatedEvent is published when a count is opened
type InventoryCountCreatedEvent struct {
	shared.BaseDomainEvent
	CountID   uuid.UUID `json:"count_id"`
	Reference string    `json:"reference"`
}

// NewInventoryCountCreatedEvent creates a new InventoryCountCreatedEvent
func NewInventoryCountCreatedEvent(c *InventoryCount) *InventoryCountCreatedEvent {
	return &InventoryCountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryCountCreated, AggregateTypeInventoryCount, c.ID),
		CountID:         c.ID,
		Reference:       c.Reference,
	}
}

// InventoryCountReconciledEvent is published when a count is reconciled
type InventoryCountReconciledEvent struct {
	shared.BaseDomainEvent
	CountID       uuid.UUID `json:"count_id"`
	Reference     string    `json:"reference"`
	ItemCount     int       `json:"item_count"`
	ApprovedCount int       `json:"approved_count"`
	AppliedCount  int       `json:"applied_count"`
}

// NewInventoryCountReconciledEvent creates a new InventoryCountReconciledEvent
func NewInventoryCountReconciledEvent(c *InventoryCount, effects []StockEffect) *InventoryCountReconciledEvent {
	approved := 0
	for _, it := range c.Items {
		if it.Decision != nil && it.Decision.Approved {
			approved++
		}
	}
	return &InventoryCountReconciledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryCountReconciled, AggregateTypeInventoryCount, c.ID),
		CountID:         c.ID,
		Reference:       c.Reference,
		ItemCount:       len(c.Items),
		ApprovedCount:   approved,
		AppliedCount:    len(effects),
	}
}
