// Package inventory holds the batch and physical count use cases. Batch
// consumption is also exposed as ConsumeWith so that production recording
// can draw material inside its own transaction.
package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const receiptReason = "batch received"

// ConsumeRequest draws a product from its batches. Quantity is booked as OUT
// movements and Wastage as WASTE movements; the catalog stock drops by both.
type ConsumeRequest struct {
	ProductID   uuid.UUID
	Quantity    decimal.Decimal
	Wastage     decimal.Decimal
	Reference   string
	OutSource   catalog.AdjustmentSource
	WasteSource catalog.AdjustmentSource
}

// Consumption is the outcome of ConsumeWith
type Consumption struct {
	ProductID uuid.UUID
	Out       *inventory.AllocationPlan
	Waste     *inventory.AllocationPlan
	Movements []*inventory.BatchMovement
	Moves     []*appshared.StockMove
	// Events holds batch and stock events, to publish after commit
	Events []shared.DomainEvent
}

// TotalCost is the batch cost of everything drawn
func (c *Consumption) TotalCost() decimal.Decimal {
	total := decimal.Zero
	if c.Out != nil {
		total = total.Add(c.Out.TotalCost)
	}
	if c.Waste != nil {
		total = total.Add(c.Waste.TotalCost)
	}
	return total
}

// ConsumptionResponse is the API view of a Consumption
type ConsumptionResponse struct {
	ProductID uuid.UUID                 `json:"product_id"`
	Out       *inventory.AllocationPlan `json:"out,omitempty"`
	Waste     *inventory.AllocationPlan `json:"waste,omitempty"`
	Movements []MovementResponse        `json:"movements"`
	TotalCost decimal.Decimal           `json:"total_cost"`
}

// BatchService handles batch receipt, consumption and corrections
type BatchService struct {
	repos     appshared.TransactionalRepositories
	txScope   appshared.TransactionScope
	allocator *inventory.BatchAllocator
	publisher shared.EventPublisher
	metrics   *telemetry.ProductionMetrics
	log       *zap.Logger
}

// NewBatchService creates a new BatchService. repos serves reads outside a
// transaction; every write goes through txScope.
func NewBatchService(
	repos appshared.TransactionalRepositories,
	txScope appshared.TransactionScope,
	strategy inventory.AllocationStrategy,
	log *zap.Logger,
) *BatchService {
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchService{
		repos:     repos,
		txScope:   txScope,
		allocator: inventory.NewBatchAllocator(strategy),
		log:       log,
	}
}

// SetEventPublisher sets the publisher used after commit
func (s *BatchService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *BatchService) SetMetrics(metrics *telemetry.ProductionMetrics) {
	s.metrics = metrics
}

// Strategy returns the allocation strategy in use
func (s *BatchService) Strategy() inventory.AllocationStrategy {
	return s.allocator.Strategy()
}

// ReceiveBatch creates a batch and credits the catalog stock of its product
func (s *BatchService) ReceiveBatch(ctx context.Context, req ReceiveBatchRequest) (*BatchResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "receive_batch",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.ProductID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer span.End()

	var (
		batch *inventory.InventoryBatch
		move  *appshared.StockMove
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		batch, move, err = s.ReceiveWith(ctx, repos, req, true)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	events := append(batch.PullDomainEvents(), move.Events...)
	s.publish(ctx, events)
	if s.metrics != nil {
		s.metrics.RecordStockMovements(ctx, string(catalog.AdjustmentSourceBatchReceipt), 1)
	}
	logger.Enrich(ctx, s.log).Info("batch received",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("product_id", batch.ProductID.String()),
		zap.String("quantity", batch.InitialQuantity.String()),
	)
	response := ToBatchResponse(batch)
	return &response, nil
}

// ReceiveWith creates a batch inside the caller's transaction. With
// creditStock the catalog stock of the product rises by the batch quantity;
// callers that already credited the stock pass false. The returned move is
// nil when no stock was credited.
func (s *BatchService) ReceiveWith(
	ctx context.Context,
	repos appshared.TransactionalRepositories,
	req ReceiveBatchRequest,
	creditStock bool,
) (*inventory.InventoryBatch, *appshared.StockMove, error) {
	if _, err := repos.Products().FindByID(ctx, req.ProductID); err != nil {
		return nil, nil, err
	}
	var received time.Time
	if req.ReceivedDate != nil {
		received = *req.ReceivedDate
	}
	batch, err := inventory.NewInventoryBatch(req.ProductID, req.BatchNumber, req.Quantity, req.UnitCost,
		req.ManufactureDate, req.ExpiryDate, received)
	if err != nil {
		return nil, nil, err
	}
	exists, err := repos.Batches().ExistsByNumber(ctx, batch.ProductID, batch.BatchNumber)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, shared.NewDomainError(shared.CodeAlreadyExists,
			"Batch number already exists for this product").
			WithDetail("product_id", batch.ProductID.String()).
			WithDetail("batch_number", batch.BatchNumber)
	}
	if err := repos.Batches().Create(ctx, batch); err != nil {
		return nil, nil, err
	}
	if !creditStock {
		return batch, nil, nil
	}

	reference := req.Reference
	if reference == "" {
		reference = batch.BatchNumber
	}
	move, err := appshared.MoveStock(ctx, repos, appshared.StockChange{
		ProductID: batch.ProductID,
		Delta:     batch.InitialQuantity,
		Source:    catalog.AdjustmentSourceBatchReceipt,
		Reference: reference,
		Reason:    receiptReason,
	})
	if err != nil {
		return nil, nil, err
	}
	return batch, move, nil
}

// Consume draws material from batches in allocation order in its own transaction
func (s *BatchService) Consume(ctx context.Context, req ConsumeRequest) (*ConsumptionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "consume",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.ProductID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer span.End()

	var c *Consumption
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		c, err = s.ConsumeWith(ctx, repos, req)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrInsufficientBatchStock) && s.metrics != nil {
			s.metrics.RecordShortages(ctx, "consume", 1)
		}
		return nil, err
	}

	s.publish(ctx, c.Events)
	s.recordMoves(ctx, c)
	return toConsumptionResponse(c), nil
}

// ConsumeWith plans and commits a consumption inside the caller's
// transaction. The combined quantity is checked against the consumable
// batches before anything changes, so a shortage leaves every batch untouched.
func (s *BatchService) ConsumeWith(ctx context.Context, repos appshared.TransactionalRepositories, req ConsumeRequest) (*Consumption, error) {
	if req.Quantity.IsNegative() || req.Wastage.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Consumed quantities cannot be negative")
	}
	total := req.Quantity.Add(req.Wastage)
	if !total.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Nothing to consume")
	}
	outSource, wasteSource := req.OutSource, req.WasteSource
	if outSource == "" {
		outSource = catalog.AdjustmentSourceProductionInput
	}
	if wasteSource == "" {
		wasteSource = catalog.AdjustmentSourceProductionWastage
	}

	batches, err := repos.Batches().FindConsumable(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if _, err := s.allocator.Plan(req.ProductID, total, batches); err != nil {
		return nil, err
	}
	expected := make(map[uuid.UUID]int, len(batches))
	for _, b := range batches {
		expected[b.ID] = b.GetVersion()
	}

	c := &Consumption{ProductID: req.ProductID}
	if req.Quantity.IsPositive() {
		if c.Out, err = s.allocator.Plan(req.ProductID, req.Quantity, batches); err != nil {
			return nil, err
		}
		movements, err := c.Out.Apply(batches, inventory.MovementTypeOut, req.Reference)
		if err != nil {
			return nil, err
		}
		c.Movements = append(c.Movements, movements...)
	}
	if req.Wastage.IsPositive() {
		if c.Waste, err = s.allocator.Plan(req.ProductID, req.Wastage, batches); err != nil {
			return nil, err
		}
		movements, err := c.Waste.Apply(batches, inventory.MovementTypeWaste, req.Reference)
		if err != nil {
			return nil, err
		}
		c.Movements = append(c.Movements, movements...)
	}

	touched := make(map[uuid.UUID]bool, len(c.Movements))
	for _, m := range c.Movements {
		touched[m.BatchID] = true
	}
	for _, b := range batches {
		if !touched[b.ID] {
			continue
		}
		if err := repos.Batches().SaveWithLock(ctx, b, expected[b.ID]); err != nil {
			return nil, err
		}
		c.Events = append(c.Events, b.PullDomainEvents()...)
	}
	if err := repos.Movements().CreateBatch(ctx, c.Movements); err != nil {
		return nil, err
	}

	c.Moves, err = appshared.MoveStockAll(ctx, repos, []appshared.StockChange{
		{ProductID: req.ProductID, Delta: req.Quantity.Neg(), Source: outSource, Reference: req.Reference},
		{ProductID: req.ProductID, Delta: req.Wastage.Neg(), Source: wasteSource, Reference: req.Reference},
	})
	if err != nil {
		return nil, err
	}
	c.Events = append(c.Events, appshared.CollectEvents(c.Moves)...)
	return c, nil
}

// PlanAllocation previews how a quantity would be drawn without changing anything
func (s *BatchService) PlanAllocation(ctx context.Context, req AllocationPreviewRequest) (*inventory.AllocationPlan, error) {
	batches, err := s.repos.Batches().FindConsumable(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	return s.allocator.Plan(req.ProductID, req.Quantity, batches)
}

// ReturnToBatch puts drawn material back into a batch and the catalog
func (s *BatchService) ReturnToBatch(ctx context.Context, batchID uuid.UUID, req ReturnToBatchRequest) (*BatchMovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "return_to_batch",
		telemetry.WithAttribute(telemetry.SpanAttrBatchID, batchID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer span.End()

	result, err := s.changeBatch(ctx, batchID, catalog.AdjustmentSourceBatchReturn,
		func(b *inventory.InventoryBatch) (*inventory.BatchMovement, decimal.Decimal, error) {
			m, err := b.Return(req.Quantity, req.Reference, strings.TrimSpace(req.Reason))
			return m, req.Quantity, err
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// AdjustBatch corrects the quantity of a batch and the catalog by delta
func (s *BatchService) AdjustBatch(ctx context.Context, batchID uuid.UUID, req AdjustBatchRequest) (*BatchMovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "adjust_batch",
		telemetry.WithAttribute(telemetry.SpanAttrBatchID, batchID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Delta),
	)
	defer span.End()

	result, err := s.changeBatch(ctx, batchID, catalog.AdjustmentSourceBatchAdjustment,
		func(b *inventory.InventoryBatch) (*inventory.BatchMovement, decimal.Decimal, error) {
			m, err := b.Adjust(req.Delta, req.Reference, strings.TrimSpace(req.Reason))
			return m, req.Delta, err
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	logger.Enrich(ctx, s.log).Info("batch adjusted",
		zap.String("batch_id", batchID.String()),
		zap.String("delta", req.Delta.String()),
		zap.String("reason", req.Reason),
	)
	return result, nil
}

// changeBatch applies a single-movement change to a batch together with the
// matching catalog stock change
func (s *BatchService) changeBatch(
	ctx context.Context,
	batchID uuid.UUID,
	source catalog.AdjustmentSource,
	change func(b *inventory.InventoryBatch) (*inventory.BatchMovement, decimal.Decimal, error),
) (*BatchMovementResponse, error) {
	var (
		batch    *inventory.InventoryBatch
		movement *inventory.BatchMovement
		move     *appshared.StockMove
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		expected := batch.GetVersion()
		var delta decimal.Decimal
		movement, delta, err = change(batch)
		if err != nil {
			return err
		}
		if err := repos.Batches().SaveWithLock(ctx, batch, expected); err != nil {
			return err
		}
		if err := repos.Movements().Create(ctx, movement); err != nil {
			return err
		}
		move, err = appshared.MoveStock(ctx, repos, appshared.StockChange{
			ProductID: batch.ProductID,
			Delta:     delta,
			Source:    source,
			Reference: movement.Reference,
			Reason:    movement.Reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, append(batch.PullDomainEvents(), move.Events...))
	if s.metrics != nil {
		s.metrics.RecordStockMovements(ctx, string(source), 1)
	}
	return &BatchMovementResponse{
		Batch:    ToBatchResponse(batch),
		Movement: ToMovementResponse(movement),
	}, nil
}

// RetireBatch deactivates a batch. Its remaining quantity stays on the books.
func (s *BatchService) RetireBatch(ctx context.Context, batchID uuid.UUID, req RetireBatchRequest) (*BatchResponse, error) {
	var batch *inventory.InventoryBatch
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		batch, err = repos.Batches().FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		expected := batch.GetVersion()
		if err := batch.Retire(req.Reason); err != nil {
			return err
		}
		return repos.Batches().SaveWithLock(ctx, batch, expected)
	})
	if err != nil {
		return nil, err
	}
	logger.Enrich(ctx, s.log).Info("batch retired",
		zap.String("batch_id", batch.ID.String()),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("remaining", batch.CurrentQuantity.String()),
		zap.String("reason", batch.RetiredReason),
	)
	response := ToBatchResponse(batch)
	return &response, nil
}

// GetBatch retrieves a batch by ID
func (s *BatchService) GetBatch(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	batch, err := s.repos.Batches().FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	response := ToBatchResponse(batch)
	return &response, nil
}

// ListBatches lists the batches of a product, newest receipt first
func (s *BatchService) ListBatches(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]BatchResponse, int64, error) {
	if filter.OrderBy == "" {
		filter.OrderBy = "received_date"
		filter.OrderDir = "desc"
	}
	batches, total, err := s.repos.Batches().FindByProduct(ctx, productID, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToBatchResponses(batches), total, nil
}

// ListMovements returns the ledger of a batch
func (s *BatchService) ListMovements(ctx context.Context, batchID uuid.UUID) ([]MovementResponse, error) {
	if _, err := s.repos.Batches().FindByID(ctx, batchID); err != nil {
		return nil, err
	}
	movements, err := s.repos.Movements().FindByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// ListMovementsByReference returns every ledger row written under reference
func (s *BatchService) ListMovementsByReference(ctx context.Context, reference string) ([]MovementResponse, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Reference cannot be empty")
	}
	movements, err := s.repos.Movements().FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return ToMovementResponses(movements), nil
}

// VerifyLedger recomputes the movement sum of a batch and compares it with
// the quantity drawn from it
func (s *BatchService) VerifyLedger(ctx context.Context, batchID uuid.UUID) (*inventory.LedgerCheck, error) {
	batch, err := s.repos.Batches().FindByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	movements, err := s.repos.Movements().FindByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	check := inventory.VerifyLedger(batch, movements)
	if !check.Balanced {
		logger.Enrich(ctx, s.log).Error("batch ledger out of balance",
			zap.String("batch_id", batchID.String()),
			zap.String("movement_sum", check.MovementSum.String()),
			zap.String("drawn", check.DrawnQuantity.String()),
		)
	}
	return &check, nil
}

func (s *BatchService) recordMoves(ctx context.Context, c *Consumption) {
	if s.metrics == nil {
		return
	}
	for _, m := range c.Moves {
		s.metrics.RecordStockMovements(ctx, string(m.Adjustment.Source), 1)
	}
}

func (s *BatchService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.log).Warn("failed to publish inventory events", zap.Error(err))
	}
}

func toConsumptionResponse(c *Consumption) *ConsumptionResponse {
	movements := make([]MovementResponse, len(c.Movements))
	for i, m := range c.Movements {
		movements[i] = ToMovementResponse(m)
	}
	return &ConsumptionResponse{
		ProductID: c.ProductID,
		Out:       c.Out,
		Waste:     c.Waste,
		Movements: movements,
		TotalCost: c.TotalCost(),
	}
}
