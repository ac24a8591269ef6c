package catalog

import (
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdjustmentSource identifies what caused a stock change
type AdjustmentSource string

const (
	AdjustmentSourceCount             AdjustmentSource = "COUNT"
	AdjustmentSourceProductionInput   AdjustmentSource = "PRODUCTION_INPUT"
	AdjustmentSourceProductionOutput  AdjustmentSource = "PRODUCTION_OUTPUT"
	AdjustmentSourceProductionWastage AdjustmentSource = "PRODUCTION_WASTAGE"
	AdjustmentSourceBatchReceipt      AdjustmentSource = "BATCH_RECEIPT"
	AdjustmentSourceBatchReturn       AdjustmentSource = "BATCH_RETURN"
	AdjustmentSourceBatchAdjustment   AdjustmentSource = "BATCH_ADJUSTMENT"
	AdjustmentSourceManual            AdjustmentSource = "MANUAL"
)

// IsValid checks if the source is a known value
func (s AdjustmentSource) IsValid() bool {
	switch s {
	case AdjustmentSourceCount, AdjustmentSourceProductionInput, AdjustmentSourceProductionOutput,
		AdjustmentSourceProductionWastage, AdjustmentSourceBatchReceipt, AdjustmentSourceBatchReturn,
		AdjustmentSourceBatchAdjustment, AdjustmentSourceManual:
		return true
	}
	return false
}

// StockAdjustment is an immutable audit row for a committed stock change.
type StockAdjustment struct {
	ID            uuid.UUID
	ProductID     uuid.UUID
	Delta         decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Source        AdjustmentSource
	Reference     string
	Reason        string
	CreatedAt     time.Time
}

// NewStockAdjustment records a delta applied to a product balance
func NewStockAdjustment(
	productID uuid.UUID,
	delta, balanceBefore decimal.Decimal,
	source AdjustmentSource,
	reference, reason string,
) (*StockAdjustment, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product ID cannot be empty")
	}
	if delta.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Adjustment delta cannot be zero")
	}
	if !source.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid adjustment source")
	}
	return &StockAdjustment{
		ID:            uuid.New(),
		ProductID:     productID,
		Delta:         delta,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore.Add(delta),
		Source:        source,
		Reference:     reference,
		Reason:        reason,
		CreatedAt:     time.Now(),
	}, nil
}
