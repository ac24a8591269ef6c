package telemetry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type stubLowStock struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (s *stubLowStock) CountBelowMinimum(context.Context) (int64, error) {
	s.calls.Add(1)
	return s.n, s.err
}

func TestNewProductionMetrics_NilMeter(t *testing.T) {
	pm, err := NewProductionMetrics(ProductionMetricsConfig{Logger: zap.NewNop()})
	assert.Nil(t, pm)
	assert.Equal(t, "NewProductionMetrics: meter cannot be nil", err.Error())
}

func TestProductionMetrics_Records(t *testing.T) {
	ctx := context.Background()
	reader, mp := newTestMeter(t)
	pm, err := NewProductionMetrics(ProductionMetricsConfig{Meter: mp.Meter("test")})
	require.NoError(t, err)

	pm.RecordOrderCreated(ctx, "BOM-A")
	pm.RecordTransition(ctx, "PLANNED", "IN_PROGRESS", false)
	pm.RecordProduction(ctx, decimal.RequireFromString("2.5"), decimal.NewFromInt(1))
	pm.RecordProduction(ctx, decimal.NewFromInt(1), decimal.Zero)
	pm.RecordStockMovements(ctx, "PRODUCTION_INPUT", 3)
	pm.RecordStockMovements(ctx, "PRODUCTION_INPUT", 0)
	pm.RecordShortages(ctx, "availability", 2)
	pm.RecordLowStock(ctx)
	pm.RecordCountReconciled(ctx)
	pm.RecordLockContention(ctx, "record_production")
	pm.ObserveOperation(ctx, "record_production", time.Now(), errors.New("boom"))

	data := collect(t, reader)

	sumOf := func(name string) int64 {
		s, ok := data[name].(metricdata.Sum[int64])
		require.True(t, ok, name)
		var total int64
		for _, dp := range s.DataPoints {
			total += dp.Value
		}
		return total
	}
	assert.Equal(t, int64(1), sumOf("bom_production_orders_created_total"))
	assert.Equal(t, int64(1), sumOf("bom_production_order_transitions_total"))
	assert.Equal(t, int64(2), sumOf("bom_production_records_total"))
	assert.Equal(t, int64(3), sumOf("bom_stock_movements_total"))
	assert.Equal(t, int64(2), sumOf("bom_stock_shortages_total"))
	assert.Equal(t, int64(1), sumOf("bom_stock_below_minimum_total"))
	assert.Equal(t, int64(1), sumOf("bom_inventory_counts_reconciled_total"))
	assert.Equal(t, int64(1), sumOf("bom_lock_contention_total"))

	produced := data["bom_produced_quantity_total"].(metricdata.Sum[float64])
	assert.InDelta(t, 3.5, produced.DataPoints[0].Value, 1e-9)
	wasted := data["bom_wasted_quantity_total"].(metricdata.Sum[float64])
	assert.InDelta(t, 1.0, wasted.DataPoints[0].Value, 1e-9)

	hist := data["bom_operation_duration_seconds"].(metricdata.Histogram[float64])
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestProductionMetrics_PeriodicCollection(t *testing.T) {
	provider := &stubLowStock{n: 4}
	pm, err := NewProductionMetrics(ProductionMetricsConfig{
		Meter:            noop.NewMeterProvider().Meter("test"),
		LowStockProvider: provider,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pm.StartPeriodicCollection(ctx, 10*time.Millisecond)
	pm.StartPeriodicCollection(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool { return provider.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	pm.Stop()
	pm.Stop()
}

func TestProductionMetrics_CollectWithoutProvider(t *testing.T) {
	pm, err := NewProductionMetrics(ProductionMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)
	assert.NotPanics(t, func() { pm.collectLowStock(context.Background()) })
}
