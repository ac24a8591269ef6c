package testutil

import (
	"context"
	"testing"

	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ProductSeed describes a product to insert directly, bypassing the audit trail
type ProductSeed struct {
	SKU      string
	Unit     string
	Raw      bool
	Stock    string
	UnitCost string
	Minimum  string
}

// SeedProduct inserts a product with the given opening stock
func SeedProduct(t *testing.T, repos appshared.TransactionalRepositories, seed ProductSeed) *catalog.Product {
	t.Helper()

	unit := seed.Unit
	if unit == "" {
		unit = "PCS"
	}
	p, err := catalog.NewProduct(seed.SKU, "Product "+seed.SKU, unit, seed.Raw)
	require.NoError(t, err)
	if seed.UnitCost != "" {
		require.NoError(t, p.SetUnitCost(decimal.RequireFromString(seed.UnitCost)))
	}
	if seed.Minimum != "" {
		require.NoError(t, p.SetMinimumStock(decimal.RequireFromString(seed.Minimum)))
	}
	if seed.Stock != "" {
		p.CurrentStock = decimal.RequireFromString(seed.Stock)
	}
	p.ClearDomainEvents()
	require.NoError(t, repos.Products().Save(context.Background(), p))
	return p
}

// Stock reads the persisted stock of a product
func Stock(t *testing.T, repos appshared.TransactionalRepositories, p *catalog.Product) decimal.Decimal {
	t.Helper()

	qty, err := repos.Stock().GetStock(context.Background(), p.ID)
	require.NoError(t, err)
	return qty
}
