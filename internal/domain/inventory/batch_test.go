package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func newTestBatch(t *testing.T, productID uuid.UUID, number string, qty int64, expiry *time.Time) *InventoryBatch {
	t.Helper()
	b, err := NewInventoryBatch(productID, number, decimal.NewFromInt(qty), decimal.NewFromInt(2), nil, expiry, time.Now())
	require.NoError(t, err)
	b.ClearDomainEvents()
	return b
}

func TestNewInventoryBatch(t *testing.T) {
	productID := uuid.New()

	t.Run("creates active batch", func(t *testing.T) {
		b, err := NewInventoryBatch(productID, " LOT-1 ", decimal.NewFromInt(10), decimal.NewFromFloat(1.5), date("2024-01-01"), date("2025-01-01"), time.Time{})

		require.NoError(t, err)
		assert.Equal(t, "LOT-1", b.BatchNumber)
		assert.True(t, b.IsActive)
		assert.True(t, b.CurrentQuantity.Equal(b.InitialQuantity))
		assert.False(t, b.ReceivedDate.IsZero())
		require.Len(t, b.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeBatchReceived, b.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewInventoryBatch(productID, "LOT-1", decimal.Zero, decimal.Zero, nil, nil, time.Now())
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})

	t.Run("rejects expiry before manufacture", func(t *testing.T) {
		_, err := NewInventoryBatch(productID, "LOT-1", decimal.NewFromInt(1), decimal.Zero, date("2024-06-01"), date("2024-01-01"), time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Expiry date cannot be before manufacture date")
	})

	t.Run("rejects empty batch number", func(t *testing.T) {
		_, err := NewInventoryBatch(productID, "  ", decimal.NewFromInt(1), decimal.Zero, nil, nil, time.Now())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Batch number cannot be empty")
	})
}

func TestInventoryBatch_Draw(t *testing.T) {
	t.Run("draws and records movement", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 10, nil)

		m, err := b.Draw(decimal.NewFromInt(4), MovementTypeOut, "PO-1")

		require.NoError(t, err)
		assert.True(t, b.CurrentQuantity.Equal(decimal.NewFromInt(6)))
		assert.Equal(t, MovementTypeOut, m.Type)
		assert.True(t, m.Quantity.Equal(decimal.NewFromInt(4)))
		assert.Equal(t, "PO-1", m.Reference)
		assert.True(t, b.IsActive)
	})

	t.Run("exhausting deactivates batch", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)

		_, err := b.Draw(decimal.NewFromInt(5), MovementTypeWaste, "PO-1")

		require.NoError(t, err)
		assert.False(t, b.IsActive)
		assert.NotNil(t, b.ExhaustedAt)
		require.Len(t, b.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeBatchExhausted, b.GetDomainEvents()[0].EventType())
	})

	t.Run("cannot overdraw", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)

		_, err := b.Draw(decimal.NewFromInt(6), MovementTypeOut, "PO-1")

		assert.True(t, errors.Is(err, shared.ErrInsufficientBatchStock))
		assert.True(t, b.CurrentQuantity.Equal(decimal.NewFromInt(5)))
	})

	t.Run("rejects adjustment type", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)
		_, err := b.Draw(decimal.NewFromInt(1), MovementTypeAdjustment, "PO-1")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("inactive batch cannot be drawn", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)
		require.NoError(t, b.Retire("recalled"))
		_, err := b.Draw(decimal.NewFromInt(1), MovementTypeOut, "PO-1")
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})
}

func TestInventoryBatch_ReturnAndAdjust(t *testing.T) {
	t.Run("return reactivates exhausted batch", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)
		_, err := b.Draw(decimal.NewFromInt(5), MovementTypeOut, "PO-1")
		require.NoError(t, err)

		m, err := b.Return(decimal.NewFromInt(2), "PO-1", "unused")

		require.NoError(t, err)
		assert.True(t, b.IsActive)
		assert.Nil(t, b.ExhaustedAt)
		assert.Equal(t, MovementTypeIn, m.Type)
		assert.True(t, m.Quantity.Equal(decimal.NewFromInt(-2)))
	})

	t.Run("return cannot exceed initial quantity", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)
		_, err := b.Return(decimal.NewFromInt(1), "R-1", "")
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})

	t.Run("adjust requires reason", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)
		_, err := b.Adjust(decimal.NewFromInt(-1), "ADJ-1", " ")
		assert.True(t, errors.Is(err, shared.ErrMissingReason))
	})

	t.Run("negative adjust records positive outflow", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)

		m, err := b.Adjust(decimal.NewFromInt(-2), "ADJ-1", "damaged")

		require.NoError(t, err)
		assert.True(t, b.CurrentQuantity.Equal(decimal.NewFromInt(3)))
		assert.True(t, m.Quantity.Equal(decimal.NewFromInt(2)))
		assert.Equal(t, "damaged", m.Reason)
	})

	t.Run("adjust cannot go below zero", func(t *testing.T) {
		b := newTestBatch(t, uuid.New(), "LOT-1", 5, nil)
		_, err := b.Adjust(decimal.NewFromInt(-6), "ADJ-1", "lost")
		assert.True(t, errors.Is(err, shared.ErrInsufficientBatchStock))
	})
}

func TestVerifyLedger(t *testing.T) {
	b := newTestBatch(t, uuid.New(), "LOT-1", 10, nil)
	movements := make([]BatchMovement, 0)

	m, err := b.Draw(decimal.NewFromInt(6), MovementTypeOut, "PO-1")
	require.NoError(t, err)
	movements = append(movements, *m)
	m, err = b.Draw(decimal.NewFromInt(1), MovementTypeWaste, "PO-1")
	require.NoError(t, err)
	movements = append(movements, *m)
	m, err = b.Return(decimal.NewFromInt(2), "PO-1", "surplus")
	require.NoError(t, err)
	movements = append(movements, *m)
	m, err = b.Adjust(decimal.NewFromFloat(-0.5), "ADJ-1", "spillage")
	require.NoError(t, err)
	movements = append(movements, *m)

	check := VerifyLedger(b, movements)

	assert.True(t, check.Balanced)
	assert.Equal(t, 4, check.Movements)
	assert.True(t, check.MovementSum.Equal(decimal.NewFromFloat(5.5)))
	assert.True(t, b.CurrentQuantity.Equal(decimal.NewFromFloat(4.5)))

	t.Run("detects missing movement", func(t *testing.T) {
		check := VerifyLedger(b, movements[:3])
		assert.False(t, check.Balanced)
	})
}
