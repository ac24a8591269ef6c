package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ProductionMetrics records planning and shop-floor activity.
type ProductionMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	ordersCreated     *Counter
	orderTransitions  *Counter
	recordsTotal      *Counter
	producedQuantity  *FloatCounter
	wastedQuantity    *FloatCounter
	stockMovements    *Counter
	shortages         *Counter
	lowStockEvents    *Counter
	countsReconciled  *Counter
	lockContention    *Counter
	operationDuration *Histogram
	lowStockProducts  *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	lowStockProvider LowStockProvider
}

// LowStockProvider reports how many products sit below their minimum stock.
type LowStockProvider interface {
	CountBelowMinimum(ctx context.Context) (int64, error)
}

// ProductionMetricsConfig holds configuration for production metrics.
type ProductionMetricsConfig struct {
	Meter            metric.Meter
	Logger           *zap.Logger
	LowStockProvider LowStockProvider
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewProductionMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// NewProductionMetrics registers every production instrument on cfg.Meter.
func NewProductionMetrics(cfg ProductionMetricsConfig) (*ProductionMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &ProductionMetrics{
		meter:            cfg.Meter,
		logger:           logger,
		stopChan:         make(chan struct{}),
		lowStockProvider: cfg.LowStockProvider,
	}

	counters := []struct {
		target **Counter
		name   string
		desc   string
		unit   string
	}{
		{&pm.ordersCreated, "bom_production_orders_created_total", "Production orders created", "{orders}"},
		{&pm.orderTransitions, "bom_production_order_transitions_total", "Production order status transitions", "{transitions}"},
		{&pm.recordsTotal, "bom_production_records_total", "Production records written", "{records}"},
		{&pm.stockMovements, "bom_stock_movements_total", "Audited stock adjustments committed", "{movements}"},
		{&pm.shortages, "bom_stock_shortages_total", "Material lines short during availability checks or consumption", "{lines}"},
		{&pm.lowStockEvents, "bom_stock_below_minimum_total", "Products that crossed below their minimum stock", "{events}"},
		{&pm.countsReconciled, "bom_inventory_counts_reconciled_total", "Inventory counts completed and reconciled", "{counts}"},
		{&pm.lockContention, "bom_lock_contention_total", "Operations rejected because a lock was held", "{operations}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	if pm.producedQuantity, err = NewFloatCounter(cfg.Meter, "bom_produced_quantity_total", "Good units produced", "{units}"); err != nil {
		return nil, err
	}
	if pm.wastedQuantity, err = NewFloatCounter(cfg.Meter, "bom_wasted_quantity_total", "Units scrapped during production", "{units}"); err != nil {
		return nil, err
	}
	if pm.operationDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "bom_operation_duration_seconds",
		Description: "Duration of planning and production operations",
		Unit:        "s",
		Boundaries:  DurationBuckets,
	}); err != nil {
		return nil, err
	}
	if pm.lowStockProducts, err = NewGauge(cfg.Meter, "bom_products_below_minimum", "Products currently below minimum stock", "{products}"); err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordOrderCreated counts a new production order.
func (pm *ProductionMetrics) RecordOrderCreated(ctx context.Context, bomCode string) {
	pm.ordersCreated.Inc(ctx, AttrBOMCode.String(bomCode))
}

// RecordTransition counts a status change.
func (pm *ProductionMetrics) RecordTransition(ctx context.Context, from, to string, forced bool) {
	pm.orderTransitions.Inc(ctx,
		AttrFromStatus.String(from),
		AttrOrderStatus.String(to),
		AttrForceComplete.Bool(forced),
	)
}

// RecordProduction counts a production record and its quantities.
func (pm *ProductionMetrics) RecordProduction(ctx context.Context, quantity, wastage decimal.Decimal) {
	pm.recordsTotal.Inc(ctx)
	pm.producedQuantity.Add(ctx, quantity.InexactFloat64())
	if wastage.IsPositive() {
		pm.wastedQuantity.Add(ctx, wastage.InexactFloat64())
	}
}

// RecordStockMovements counts committed stock adjustments by source.
func (pm *ProductionMetrics) RecordStockMovements(ctx context.Context, source string, n int) {
	if n <= 0 {
		return
	}
	pm.stockMovements.Add(ctx, int64(n), AttrAdjustSource.String(source))
}

// RecordShortages counts short material lines for an operation.
func (pm *ProductionMetrics) RecordShortages(ctx context.Context, operation string, n int) {
	if n <= 0 {
		return
	}
	pm.shortages.Add(ctx, int64(n), AttrOperation.String(operation))
}

// RecordLowStock counts a StockBelowMinimum crossing.
func (pm *ProductionMetrics) RecordLowStock(ctx context.Context) {
	pm.lowStockEvents.Inc(ctx)
}

// RecordCountReconciled counts a completed inventory count.
func (pm *ProductionMetrics) RecordCountReconciled(ctx context.Context) {
	pm.countsReconciled.Inc(ctx)
}

// RecordLockContention counts an operation rejected on a held lock.
func (pm *ProductionMetrics) RecordLockContention(ctx context.Context, operation string) {
	pm.lockContention.Inc(ctx, AttrOperation.String(operation))
}

// ObserveOperation records how long operation took and whether it failed.
func (pm *ProductionMetrics) ObserveOperation(ctx context.Context, operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	pm.operationDuration.RecordDuration(ctx, time.Since(start),
		AttrOperation.String(operation),
		AttrOutcome.String(outcome),
	)
}

// StartPeriodicCollection samples the low-stock gauge every interval until
// Stop is called or ctx is done. It is non-blocking and runs at most once.
func (pm *ProductionMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	pm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go pm.runPeriodicCollection(ctx, interval)
	})
}

func (pm *ProductionMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.collectLowStock(ctx)
	for {
		select {
		case <-pm.stopChan:
			pm.logger.Info("Stopping periodic production metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.collectLowStock(ctx)
		}
	}
}

func (pm *ProductionMetrics) collectLowStock(ctx context.Context) {
	if pm.lowStockProvider == nil {
		return
	}
	n, err := pm.lowStockProvider.CountBelowMinimum(ctx)
	if err != nil {
		pm.logger.Warn("Failed to count products below minimum", zap.Error(err))
		return
	}
	pm.lowStockProducts.Record(ctx, n)
}

// Stop stops the periodic collection.
func (pm *ProductionMetrics) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}
