package production

import (
	"context"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	shared.Filter
	Status *OrderStatus
	BOMID  *uuid.UUID
}

// OrderRepository persists production orders
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionOrder, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]ProductionOrder, int64, error)
	// Create inserts a new order
	Create(ctx context.Context, order *ProductionOrder) error
	// SaveWithLock updates an existing order if its stored version still equals
	// expectedVersion (the version it was loaded with), failing with
	// CONCURRENCY_CONFLICT otherwise
	SaveWithLock(ctx context.Context, order *ProductionOrder, expectedVersion int) error
	// CountBlockingByBOM counts orders on the BOM that are not cancelled
	CountBlockingByBOM(ctx context.Context, bomID uuid.UUID) (int64, error)
	// GenerateOrderNumber returns the next free number, e.g. PO-2026-00001
	GenerateOrderNumber(ctx context.Context) (string, error)
}

// RecordRepository persists production records
type RecordRepository interface {
	Create(ctx context.Context, record *ProductionRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*ProductionRecord, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]ProductionRecord, error)
	// SaveQuality persists the quality fields only
	SaveQuality(ctx context.Context, record *ProductionRecord) error
}
