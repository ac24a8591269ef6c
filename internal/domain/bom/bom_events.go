package bom

import (
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeBOM is the aggregate type for BOM events
const AggregateTypeBOM = "BillOfMaterials"

// Event type constants
const (
	EventTypeBOMCreated = "BOMCreated"
	EventTypeBOMRevised = "BOMRevised"
)

// BOMCreatedEvent is published when revision 1 of a BOM is created
type BOMCreatedEvent struct {
	shared.BaseDomainEvent
	BOMID           uuid.UUID `json:"bom_id"`
	Code            string    `json:"code"`
	OutputProductID uuid.UUID `json:"output_product_id"`
}

// NewBOMCreatedEvent creates a new BOMCreatedEvent
func NewBOMCreatedEvent(b *BillOfMaterials) *BOMCreatedEvent {
	return &BOMCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBOMCreated, AggregateTypeBOM, b.ID),
		BOMID:           b.ID,
		Code:            b.Code,
		OutputProductID: b.OutputProductID,
	}
}

// BOMRevisedEvent is published when a new revision supersedes an old one
type BOMRevisedEvent struct {
	shared.BaseDomainEvent
	BOMID              uuid.UUID `json:"bom_id"`
	Code               string    `json:"code"`
	Revision           int       `json:"revision"`
	PreviousRevisionID uuid.UUID `json:"previous_revision_id"`
}

// NewBOMRevisedEvent creates a new BOMRevisedEvent
func NewBOMRevisedEvent(b *BillOfMaterials) *BOMRevisedEvent {
	evt := &BOMRevisedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBOMRevised, AggregateTypeBOM, b.ID),
		BOMID:           b.ID,
		Code:            b.Code,
		Revision:        b.Revision,
	}
	if b.PreviousRevisionID != nil {
		evt.PreviousRevisionID = *b.PreviousRevisionID
	}
	return evt
}
