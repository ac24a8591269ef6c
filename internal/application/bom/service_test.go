package bom

import (
	"context"
	"errors"
	"testing"
	"time"

	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/production"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/persistence"
	"github.com/erp/bomengine/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc       *Service
	repos     appshared.TransactionalRepositories
	publisher *testutil.RecordingPublisher
	flour     *catalog.Product
	salt      *catalog.Product
	yeast     *catalog.Product
	bread     *catalog.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	repos := persistence.NewRepositories(db)
	svc := NewService(repos, persistence.NewGormTransactionScope(db), Options{
		Rounding:        bom.RoundingExact,
		OverheadPercent: decimal.NewFromInt(10),
	}, zap.NewNop())
	publisher := &testutil.RecordingPublisher{}
	svc.SetEventPublisher(publisher)

	return &fixture{
		svc:       svc,
		repos:     repos,
		publisher: publisher,
		flour:     testutil.SeedProduct(t, repos, testutil.ProductSeed{SKU: "FLOUR", Unit: "KG", Raw: true, Stock: "4", UnitCost: "1.5"}),
		salt:      testutil.SeedProduct(t, repos, testutil.ProductSeed{SKU: "SALT", Unit: "G", Raw: true, Stock: "1000", UnitCost: "0.01"}),
		yeast:     testutil.SeedProduct(t, repos, testutil.ProductSeed{SKU: "YEAST", Unit: "KG", Raw: true, Stock: "1", UnitCost: "10"}),
		bread:     testutil.SeedProduct(t, repos, testutil.ProductSeed{SKU: "BREAD", Unit: "PCS"}),
	}
}

func (f *fixture) breadRequest() CreateBOMRequest {
	return CreateBOMRequest{
		Code:            "bread-std",
		Name:            "Standard loaf",
		OutputProductID: f.bread.ID,
		OutputQuantity:  decimal.NewFromInt(10),
		OutputUnit:      "PCS",
		Items: []BOMItemRequest{
			{ProductID: f.flour.ID, Quantity: decimal.NewFromInt(2), Unit: "KG", WastagePercent: decimal.NewFromInt(10)},
			{ProductID: f.salt.ID, Quantity: decimal.NewFromInt(50), Unit: "G"},
			{ProductID: f.yeast.ID, Quantity: decimal.NewFromInt(20), Unit: "G"},
		},
	}
}

func (f *fixture) createBread(t *testing.T) *BOMResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), f.breadRequest())
	require.NoError(t, err)
	return resp
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates revision 1", func(t *testing.T) {
		f := newFixture(t)
		resp := f.createBread(t)

		assert.Equal(t, "BREAD-STD", resp.Code)
		assert.Equal(t, 1, resp.Revision)
		assert.True(t, resp.IsActive)
		require.Len(t, resp.Items, 3)
		assert.Equal(t, f.flour.ID, resp.Items[0].ProductID)
		assert.Equal(t, 3, resp.Items[2].Sequence)
		assert.Len(t, f.publisher.OfType(bom.EventTypeBOMCreated), 1)
	})

	t.Run("duplicate code", func(t *testing.T) {
		f := newFixture(t)
		f.createBread(t)
		_, err := f.svc.Create(ctx, f.breadRequest())
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("unknown component", func(t *testing.T) {
		f := newFixture(t)
		req := f.breadRequest()
		req.Items[1].ProductID = uuid.New()
		_, err := f.svc.Create(ctx, req)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("component must be a raw material", func(t *testing.T) {
		f := newFixture(t)
		cake := testutil.SeedProduct(t, f.repos, testutil.ProductSeed{SKU: "CAKE", Unit: "PCS"})
		req := f.breadRequest()
		req.Items[0].ProductID = cake.ID
		_, err := f.svc.Create(ctx, req)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("non positive output quantity", func(t *testing.T) {
		f := newFixture(t)
		req := f.breadRequest()
		req.OutputQuantity = decimal.Zero
		_, err := f.svc.Create(ctx, req)
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})
}

func TestService_ComputeRequirements(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.createBread(t)

	t.Run("scales by output batch size with wastage", func(t *testing.T) {
		resp, err := f.svc.ComputeRequirements(ctx, b.ID, decimal.NewFromInt(25))
		require.NoError(t, err)
		require.Len(t, resp.Lines, 3)
		assert.Equal(t, "5.5", resp.Lines[0].Quantity.String())
		assert.Equal(t, "KG", resp.Lines[0].Unit)
		assert.Equal(t, "125", resp.Lines[1].Quantity.String())
		assert.Equal(t, "50", resp.Lines[2].Quantity.String())
		assert.Equal(t, "G", resp.Lines[2].Unit)
	})

	t.Run("linear in the requested quantity", func(t *testing.T) {
		one, err := f.svc.ComputeRequirements(ctx, b.ID, decimal.NewFromInt(10))
		require.NoError(t, err)
		three, err := f.svc.ComputeRequirements(ctx, b.ID, decimal.NewFromInt(30))
		require.NoError(t, err)
		for i := range one.Lines {
			assert.True(t, one.Lines[i].Quantity.Mul(decimal.NewFromInt(3)).Equal(three.Lines[i].Quantity))
		}
	})

	t.Run("invalid quantity", func(t *testing.T) {
		_, err := f.svc.ComputeRequirements(ctx, b.ID, decimal.Zero)
		assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
	})

	t.Run("unknown bom", func(t *testing.T) {
		_, err := f.svc.ComputeRequirements(ctx, uuid.New(), decimal.NewFromInt(1))
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestService_CheckAvailability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.createBread(t)

	resp, err := f.svc.CheckAvailability(ctx, b.ID, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.False(t, resp.IsAvailable)
	require.Len(t, resp.Shortages, 1)
	short := resp.Shortages[0]
	assert.Equal(t, f.flour.ID, short.ProductID)
	assert.Equal(t, "5.5", short.Required.String())
	assert.Equal(t, "4", short.Available.String())
	assert.Equal(t, "1.5", short.Shortage.String())

	// yeast was compared in its stock unit
	ok, err := f.svc.CheckAvailability(ctx, b.ID, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.True(t, ok.IsAvailable)
	assert.Empty(t, ok.Shortages)

	// checking never touches stock
	assert.Equal(t, "4", testutil.Stock(t, f.repos, f.flour).String())
}

func TestService_EstimateCost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b := f.createBread(t)

	resp, err := f.svc.EstimateCost(ctx, b.ID, decimal.NewFromInt(25))
	require.NoError(t, err)
	require.Len(t, resp.Breakdown, 3)
	assert.Equal(t, "8.25", resp.Breakdown[0].LineCost.String())
	assert.Equal(t, "1.25", resp.Breakdown[1].LineCost.String())
	assert.Equal(t, "0.05", resp.Breakdown[2].Quantity.String())
	assert.Equal(t, "0.5", resp.Breakdown[2].LineCost.String())
	assert.Equal(t, "10", resp.MaterialCost.String())
	assert.Equal(t, "1", resp.OverheadCost.String())
	assert.Equal(t, "11", resp.TotalCost.String())
	assert.Equal(t, "0.44", resp.UnitCost.String())

	_, err = f.svc.EstimateCost(ctx, b.ID, decimal.NewFromInt(-1))
	assert.True(t, errors.Is(err, shared.ErrInvalidQuantity))
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	update := func(f *fixture) UpdateBOMRequest {
		return UpdateBOMRequest{
			Name:           "Loaf v2",
			OutputQuantity: decimal.NewFromInt(20),
			OutputUnit:     "PCS",
			Items: []BOMItemRequest{
				{ProductID: f.flour.ID, Quantity: decimal.NewFromInt(3), Unit: "KG"},
			},
		}
	}

	t.Run("unreferenced bom is edited in place", func(t *testing.T) {
		f := newFixture(t)
		b := f.createBread(t)

		resp, err := f.svc.Update(ctx, b.ID, update(f))
		require.NoError(t, err)
		assert.False(t, resp.NewRevision)
		assert.Equal(t, b.ID, resp.ID)
		assert.Equal(t, 1, resp.Revision)
		assert.Equal(t, "Loaf v2", resp.Name)
		require.Len(t, resp.Items, 1)

		got, err := f.svc.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "20", got.OutputQuantity.String())
	})

	t.Run("referenced bom gets a new revision", func(t *testing.T) {
		f := newFixture(t)
		b := f.createBread(t)
		order, err := production.NewProductionOrder("PO-1", b.ID, f.bread.ID, decimal.NewFromInt(5), production.PriorityNormal, time.Now())
		require.NoError(t, err)
		require.NoError(t, f.repos.Orders().Create(ctx, order))

		resp, err := f.svc.Update(ctx, b.ID, update(f))
		require.NoError(t, err)
		assert.True(t, resp.NewRevision)
		assert.NotEqual(t, b.ID, resp.ID)
		assert.Equal(t, 2, resp.Revision)
		require.NotNil(t, resp.PreviousRevisionID)
		assert.Equal(t, b.ID, *resp.PreviousRevisionID)

		old, err := f.svc.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, old.IsActive)
		assert.Equal(t, "10", old.OutputQuantity.String(), "the pinned revision is unchanged")
		assert.Len(t, old.Items, 3)

		active, err := f.svc.GetActiveByCode(ctx, "bread-std")
		require.NoError(t, err)
		assert.Equal(t, resp.ID, active.ID)

		revisions, err := f.svc.Revisions(ctx, "BREAD-STD")
		require.NoError(t, err)
		require.Len(t, revisions, 2)
		assert.Equal(t, 2, revisions[0].Revision)
		assert.Len(t, f.publisher.OfType(bom.EventTypeBOMRevised), 1)

		_, err = f.svc.Update(ctx, b.ID, update(f))
		assert.True(t, errors.Is(err, shared.ErrInvalidState), "an inactive revision cannot be edited")
	})

	t.Run("in place edit of a referenced bom is locked", func(t *testing.T) {
		f := newFixture(t)
		b := f.createBread(t)
		order, err := production.NewProductionOrder("PO-2", b.ID, f.bread.ID, decimal.NewFromInt(5), production.PriorityHigh, time.Now())
		require.NoError(t, err)
		require.NoError(t, f.repos.Orders().Create(ctx, order))

		req := update(f)
		req.InPlace = true
		_, err = f.svc.Update(ctx, b.ID, req)
		assert.True(t, errors.Is(err, shared.ErrBOMLocked))

		got, err := f.svc.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "Standard loaf", got.Name)
	})

	t.Run("invalid edit leaves the bom unchanged", func(t *testing.T) {
		f := newFixture(t)
		b := f.createBread(t)
		req := update(f)
		req.Items[0].ProductID = uuid.New()

		_, err := f.svc.Update(ctx, b.ID, req)
		assert.True(t, errors.Is(err, shared.ErrNotFound))

		got, err := f.svc.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Len(t, got.Items, 3)
	})
}

func TestService_Revisions_UnknownCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Revisions(context.Background(), "NOPE")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}
