package catalog

import (
	"context"
	"fmt"

	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// StockBelowMinimumHandler raises a replenishment alert when a stock change
// takes a product under its minimum.
type StockBelowMinimumHandler struct {
	logger  *zap.Logger
	metrics *telemetry.ProductionMetrics
}

// NewStockBelowMinimumHandler creates a new handler for StockBelowMinimum events
func NewStockBelowMinimumHandler(logger *zap.Logger) *StockBelowMinimumHandler {
	return &StockBelowMinimumHandler{logger: logger}
}

// WithMetrics counts every alert
func (h *StockBelowMinimumHandler) WithMetrics(metrics *telemetry.ProductionMetrics) *StockBelowMinimumHandler {
	h.metrics = metrics
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *StockBelowMinimumHandler) EventTypes() []string {
	return []string{catalog.EventTypeStockBelowMinimum}
}

// Handle processes a StockBelowMinimumEvent
func (h *StockBelowMinimumHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*catalog.StockBelowMinimumEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", catalog.EventTypeStockBelowMinimum),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			catalog.EventTypeStockBelowMinimum, event.EventType())
	}

	alertType := "low_stock"
	if e.CurrentStock.IsZero() {
		alertType = "out_of_stock"
	}
	h.logger.Warn("stock below minimum",
		zap.String("alert_type", alertType),
		zap.String("product_id", e.ProductID.String()),
		zap.String("sku", e.SKU),
		zap.String("current_stock", e.CurrentStock.String()),
		zap.String("minimum_stock", e.MinimumStock.String()),
		zap.String("shortfall", e.MinimumStock.Sub(e.CurrentStock).String()),
		zap.Int("lead_time_days", e.LeadTimeDays),
	)
	if h.metrics != nil {
		h.metrics.RecordLowStock(ctx)
	}
	return nil
}

var _ shared.EventHandler = (*StockBelowMinimumHandler)(nil)
