package inventory

import (
	"context"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
)

// BatchRepository persists inventory batches
type BatchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryBatch, error)
	// FindConsumable returns the active batches of a product with stock left
	FindConsumable(ctx context.Context, productID uuid.UUID) ([]*InventoryBatch, error)
	FindByProduct(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]InventoryBatch, int64, error)
	ExistsByNumber(ctx context.Context, productID uuid.UUID, batchNumber string) (bool, error)
	Create(ctx context.Context, batch *InventoryBatch) error
	// SaveWithLock updates a batch whose stored version still equals expectedVersion
	SaveWithLock(ctx context.Context, batch *InventoryBatch, expectedVersion int) error
}

// MovementRepository is the append-only batch ledger
type MovementRepository interface {
	Create(ctx context.Context, movement *BatchMovement) error
	CreateBatch(ctx context.Context, movements []*BatchMovement) error
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]BatchMovement, error)
	FindByReference(ctx context.Context, reference string) ([]BatchMovement, error)
}

// CountRepository persists inventory counts with their items
type CountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryCount, error)
	FindAll(ctx context.Context, filter shared.Filter, status *CountStatus) ([]InventoryCount, int64, error)
	ExistsByReference(ctx context.Context, reference string) (bool, error)
	Create(ctx context.Context, count *InventoryCount) error
	// SaveWithLock updates a count (and its items) whose stored version still equals expectedVersion
	SaveWithLock(ctx context.Context, count *InventoryCount, expectedVersion int) error
}
