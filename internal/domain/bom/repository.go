package bom

import (
	"context"

	"github.com/google/uuid"
)

// BOMRepository persists bills of materials together with their items
type BOMRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BillOfMaterials, error)
	// FindByIDForUpdate reads a BOM and holds a row lock until the surrounding
	// transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*BillOfMaterials, error)
	// FindActiveByCode returns the active revision for a code
	FindActiveByCode(ctx context.Context, code string) (*BillOfMaterials, error)
	// FindRevisions returns every revision of a code, newest first
	FindRevisions(ctx context.Context, code string) ([]BillOfMaterials, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, b *BillOfMaterials) error
}
