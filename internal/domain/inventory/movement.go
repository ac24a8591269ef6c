package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a batch ledger entry
type MovementType string

const (
	MovementTypeIn         MovementType = "IN"
	MovementTypeOut        MovementType = "OUT"
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	MovementTypeWaste      MovementType = "WASTE"
)

// IsValid checks if the movement type is a known value
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjustment, MovementTypeWaste:
		return true
	}
	return false
}

// BatchMovement is an append-only ledger entry. Quantity is the signed amount
// drawn out of the batch: OUT and WASTE are positive, IN is negative, and
// ADJUSTMENT carries either sign. Summed per batch it equals
// InitialQuantity - CurrentQuantity.
type BatchMovement struct {
	ID        uuid.UUID
	BatchID   uuid.UUID
	ProductID uuid.UUID
	Type      MovementType
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	Reference string
	Reason    string
	CreatedAt time.Time
}

func newBatchMovement(b *InventoryBatch, t MovementType, quantity decimal.Decimal, reference, reason string) *BatchMovement {
	return &BatchMovement{
		ID:        uuid.New(),
		BatchID:   b.ID,
		ProductID: b.ProductID,
		Type:      t,
		Quantity:  quantity,
		UnitCost:  b.UnitCost,
		Reference: reference,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}

// LedgerCheck is the outcome of comparing a batch with its movements
type LedgerCheck struct {
	BatchID       uuid.UUID       `json:"batch_id"`
	MovementSum   decimal.Decimal `json:"movement_sum"`
	DrawnQuantity decimal.Decimal `json:"drawn_quantity"`
	Balanced      bool            `json:"balanced"`
	Movements     int             `json:"movements"`
}

// VerifyLedger sums the movements of a batch and compares the total with
// the quantity drawn from it.
func VerifyLedger(b *InventoryBatch, movements []BatchMovement) LedgerCheck {
	sum := decimal.Zero
	n := 0
	for _, m := range movements {
		if m.BatchID != b.ID {
			continue
		}
		sum = sum.Add(m.Quantity)
		n++
	}
	drawn := b.DrawnQuantity()
	return LedgerCheck{
		BatchID:       b.ID,
		MovementSum:   sum,
		DrawnQuantity: drawn,
		Balanced:      sum.Equal(drawn),
		Movements:     n,
	}
}
