package catalog

import (
	"errors"
	"testing"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	t.Run("creates product with valid inputs", func(t *testing.T) {
		p, err := NewProduct("flour-01", "Wheat flour", "kg", true)
		require.NoError(t, err)

		assert.Equal(t, "FLOUR-01", p.SKU)
		assert.Equal(t, "Wheat flour", p.Name)
		assert.Equal(t, "KG", p.Unit)
		assert.True(t, p.IsRawMaterial)
		assert.True(t, p.CurrentStock.IsZero())
		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.Equal(t, 1, p.GetVersion())
	})

	t.Run("publishes ProductCreated event", func(t *testing.T) {
		p, err := NewProduct("BREAD", "Bread", "pcs", false)
		require.NoError(t, err)

		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		evt, ok := events[0].(*ProductCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, p.ID, evt.ProductID)
		assert.Equal(t, "BREAD", evt.SKU)
		assert.False(t, evt.IsRawMaterial)
	})

	t.Run("fails with empty sku", func(t *testing.T) {
		_, err := NewProduct(" ", "Bread", "pcs", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SKU cannot be empty")
	})

	t.Run("fails with invalid sku characters", func(t *testing.T) {
		_, err := NewProduct("SKU@1", "Bread", "pcs", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "can only contain")
	})

	t.Run("fails with empty name", func(t *testing.T) {
		_, err := NewProduct("SKU-1", "", "pcs", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name cannot be empty")
	})

	t.Run("fails with unknown unit", func(t *testing.T) {
		_, err := NewProduct("SKU-1", "Rope", "fathom", true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestProduct_ApplyStockDelta(t *testing.T) {
	newProduct := func(t *testing.T, stock, minimum string) *Product {
		p, err := NewProduct("SUGAR", "Sugar", "kg", true)
		require.NoError(t, err)
		p.CurrentStock = decimal.RequireFromString(stock)
		p.MinimumStock = decimal.RequireFromString(minimum)
		p.ClearDomainEvents()
		return p
	}

	t.Run("increments and decrements", func(t *testing.T) {
		p := newProduct(t, "10", "0")
		require.NoError(t, p.ApplyStockDelta(decimal.NewFromInt(5)))
		require.NoError(t, p.ApplyStockDelta(decimal.NewFromFloat(-2.5)))
		assert.True(t, p.CurrentStock.Equal(decimal.NewFromFloat(12.5)))
	})

	t.Run("rejects a delta that would go negative and keeps the balance", func(t *testing.T) {
		p := newProduct(t, "3", "0")
		version := p.GetVersion()

		err := p.ApplyStockDelta(decimal.NewFromInt(-4))
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))

		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "1", de.Details["shortage"])
		assert.True(t, p.CurrentStock.Equal(decimal.NewFromInt(3)))
		assert.Equal(t, version, p.GetVersion())
	})

	t.Run("allows draining to exactly zero", func(t *testing.T) {
		p := newProduct(t, "3", "0")
		require.NoError(t, p.ApplyStockDelta(decimal.NewFromInt(-3)))
		assert.True(t, p.CurrentStock.IsZero())
	})

	t.Run("emits StockBelowMinimum only when crossing the threshold", func(t *testing.T) {
		p := newProduct(t, "10", "5")

		require.NoError(t, p.ApplyStockDelta(decimal.NewFromInt(-6)))
		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		evt, ok := events[0].(*StockBelowMinimumEvent)
		require.True(t, ok)
		assert.True(t, evt.CurrentStock.Equal(decimal.NewFromInt(4)))

		require.NoError(t, p.ApplyStockDelta(decimal.NewFromInt(-1)))
		assert.Len(t, p.GetDomainEvents(), 1)
	})
}

func TestProduct_Setters(t *testing.T) {
	p, err := NewProduct("OIL", "Oil", "L", true)
	require.NoError(t, err)

	require.NoError(t, p.SetUnitCost(decimal.NewFromFloat(2.75)))
	require.NoError(t, p.SetMinimumStock(decimal.NewFromInt(20)))
	require.NoError(t, p.SetLeadTimeDays(3))
	require.NoError(t, p.Rename("  Sunflower oil "))
	assert.Equal(t, 5, p.GetVersion())
	assert.Equal(t, "Sunflower oil", p.Name)

	assert.Error(t, p.SetUnitCost(decimal.NewFromInt(-1)))
	assert.Error(t, p.SetMinimumStock(decimal.NewFromInt(-1)))
	assert.Error(t, p.SetLeadTimeDays(-1))
	assert.Error(t, p.Rename(" "))
}

func TestNewStockAdjustment(t *testing.T) {
	productID := uuid.New()

	adj, err := NewStockAdjustment(productID, decimal.NewFromInt(-8), decimal.NewFromInt(100), AdjustmentSourceCount, "CNT-1", "DAMAGED")
	require.NoError(t, err)
	assert.True(t, adj.BalanceAfter.Equal(decimal.NewFromInt(92)))
	assert.Equal(t, AdjustmentSourceCount, adj.Source)

	_, err = NewStockAdjustment(productID, decimal.Zero, decimal.NewFromInt(1), AdjustmentSourceCount, "", "")
	assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))

	_, err = NewStockAdjustment(uuid.Nil, decimal.NewFromInt(1), decimal.Zero, AdjustmentSourceCount, "", "")
	assert.Error(t, err)

	_, err = NewStockAdjustment(productID, decimal.NewFromInt(1), decimal.Zero, AdjustmentSource("BOGUS"), "", "")
	assert.Error(t, err)
}
