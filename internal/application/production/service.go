// Package production holds the production order use cases: planning,
// status changes and recording produced output with its material effects.
package production

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	appbom "github.com/erp/bomengine/internal/application/bom"
	appinventory "github.com/erp/bomengine/internal/application/inventory"
	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/production"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CompletionPolicy decides whether reaching the target completes an order
type CompletionPolicy string

const (
	// CompletionManual never completes an order on its own
	CompletionManual CompletionPolicy = "manual"
	// CompletionAutoOnTarget completes the order once completed >= target
	CompletionAutoOnTarget CompletionPolicy = "auto_on_target"
)

const (
	lockKeyPrefix        = "production_order:"
	idempotencyKeyPrefix = "production_record:"
)

// Options configures recording behaviour
type Options struct {
	CompletionPolicy    CompletionPolicy
	AllowOverageDefault bool
	LockTTL             time.Duration
	IdempotencyTTL      time.Duration
}

// Service handles production order business operations
type Service struct {
	repos       appshared.TransactionalRepositories
	txScope     appshared.TransactionScope
	planner     *appbom.Planner
	estimator   *bom.CostEstimator
	batches     *appinventory.BatchService
	locker      appshared.Locker
	idempotency shared.IdempotencyStore
	opts        Options
	publisher   shared.EventPublisher
	metrics     *telemetry.ProductionMetrics
	log         *zap.Logger
}

// NewService creates a new production service. The planner and estimator are
// shared with the BOM service so that recordings draw exactly what planning
// reports; batch-tracked orders consume through batches.
func NewService(
	repos appshared.TransactionalRepositories,
	txScope appshared.TransactionScope,
	planner *appbom.Planner,
	estimator *bom.CostEstimator,
	batches *appinventory.BatchService,
	opts Options,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.CompletionPolicy == "" {
		opts.CompletionPolicy = CompletionManual
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 30 * time.Second
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = shared.DefaultIdempotencyTTL
	}
	return &Service{
		repos:     repos,
		txScope:   txScope,
		planner:   planner,
		estimator: estimator,
		batches:   batches,
		opts:      opts,
		log:       log,
	}
}

// SetEventPublisher sets the publisher used after commit
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *Service) SetMetrics(metrics *telemetry.ProductionMetrics) {
	s.metrics = metrics
}

// SetLocker serializes recordings per order
func (s *Service) SetLocker(locker appshared.Locker) {
	s.locker = locker
}

// SetIdempotencyStore enables idempotency keys on RecordProduction
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// CreateOrder plans an order against an active BOM revision
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production", "create_order",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, req.BOMID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.TargetQuantity),
	)
	defer span.End()

	var (
		order *production.ProductionOrder
		b     *bom.BillOfMaterials
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		b, err = repos.BOMs().FindByIDForUpdate(ctx, req.BOMID)
		if err != nil {
			return err
		}
		if !b.IsActive {
			return shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("BOM %s revision %d is not the active revision", b.Code, b.Revision)).
				WithDetail("bom_id", b.ID.String())
		}
		number, err := repos.Orders().GenerateOrderNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to generate order number: %w", err)
		}
		var plannedStart time.Time
		if req.PlannedStartDate != nil {
			plannedStart = *req.PlannedStartDate
		}
		order, err = production.NewProductionOrder(number, b.ID, b.OutputProductID, req.TargetQuantity,
			production.Priority(strings.ToUpper(req.Priority)), plannedStart)
		if err != nil {
			return err
		}
		if req.BatchTracked {
			if err := order.EnableBatchTracking(); err != nil {
				return err
			}
		}
		if req.AssignedTo != nil {
			if err := order.Assign(*req.AssignedTo); err != nil {
				return err
			}
		}
		if req.Notes != "" {
			order.SetNotes(req.Notes)
		}
		return repos.Orders().Create(ctx, order)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, order.PullDomainEvents())
	if s.metrics != nil {
		s.metrics.RecordOrderCreated(ctx, b.Code)
	}
	logger.Enrich(ctx, s.log).Info("production order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("bom_code", b.Code),
		zap.Int("bom_revision", b.Revision),
		zap.String("target_quantity", order.TargetQuantity.String()),
		zap.Bool("batch_tracked", order.BatchTracked),
	)
	response := ToOrderResponse(order)
	return &response, nil
}

// TransitionOrder moves an order to another status. Completing below target
// needs force and is logged as a warning.
func (s *Service) TransitionOrder(ctx context.Context, orderID uuid.UUID, req TransitionOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "production", "transition_order",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
		telemetry.WithAttribute(telemetry.SpanAttrOrderStatus, req.Status),
	)
	defer span.End()

	target := production.OrderStatus(strings.ToUpper(req.Status))
	var (
		order *production.ProductionOrder
		from  production.OrderStatus
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		order, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		expected := order.GetVersion()
		from = order.Status
		if err := order.TransitionTo(target, req.Force); err != nil {
			return err
		}
		return repos.Orders().SaveWithLock(ctx, order, expected)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	forced := target == production.OrderStatusCompleted && order.ForceCompleted
	s.publish(ctx, order.PullDomainEvents())
	if s.metrics != nil {
		s.metrics.RecordTransition(ctx, from.String(), target.String(), forced)
	}
	log := logger.Enrich(ctx, s.log)
	if forced {
		log.Warn("production order force completed below target",
			zap.String("order_id", order.ID.String()),
			zap.String("order_number", order.OrderNumber),
			zap.String("completed_quantity", order.CompletedQuantity.String()),
			zap.String("target_quantity", order.TargetQuantity.String()),
		)
	} else {
		log.Info("production order status changed",
			zap.String("order_id", order.ID.String()),
			zap.String("from", from.String()),
			zap.String("to", target.String()),
		)
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// RecordProduction records output against an IN_PROGRESS order. The record,
// the order counters, raw material consumption, the output credit and an
// optional finished-goods batch commit together or not at all.
func (s *Service) RecordProduction(ctx context.Context, orderID uuid.UUID, req RecordProductionRequest) (*RecordProductionResponse, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "production", "record",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Quantity),
	)
	defer span.End()

	resp, err := s.recordProduction(ctx, orderID, req)
	if s.metrics != nil {
		s.metrics.ObserveOperation(ctx, "record_production", start, err)
		if errors.Is(err, shared.ErrInsufficientStock) || errors.Is(err, shared.ErrInsufficientBatchStock) {
			s.metrics.RecordShortages(ctx, "record_production", 1)
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

// materialUse collects the stock effects of one recording
type materialUse struct {
	lines    []bom.RequirementLine
	products map[uuid.UUID]*catalog.Product
	moves    []*appshared.StockMove
	events   []shared.DomainEvent
}

func (s *Service) recordProduction(ctx context.Context, orderID uuid.UUID, req RecordProductionRequest) (*RecordProductionResponse, error) {
	log := logger.Enrich(ctx, s.log)

	if s.locker != nil {
		key := lockKeyPrefix + orderID.String()
		lock, err := s.locker.Obtain(ctx, key, s.opts.LockTTL)
		if err != nil {
			if s.metrics != nil {
				s.metrics.RecordLockContention(ctx, "record_production")
			}
			log.Warn("production order lock not obtained", zap.String("lock_key", key), zap.Error(err))
			return nil, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("failed to release production order lock", zap.String("lock_key", key), zap.Error(err))
			}
		}()
	}

	var idemKey string
	if req.IdempotencyKey != "" && s.idempotency != nil {
		idemKey = idempotencyKeyPrefix + orderID.String() + ":" + req.IdempotencyKey
		done, err := s.idempotency.IsProcessed(ctx, idemKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if done {
			order, err := s.repos.Orders().FindByID(ctx, orderID)
			if err != nil {
				return nil, err
			}
			log.Info("production recording replayed",
				zap.String("order_id", orderID.String()),
				zap.String("idempotency_key", req.IdempotencyKey),
			)
			return &RecordProductionResponse{Order: ToOrderResponse(order), Replayed: true}, nil
		}
	}

	allowOverage := s.opts.AllowOverageDefault
	if req.AllowOverage != nil {
		allowOverage = *req.AllowOverage
	}

	var (
		order         *production.ProductionOrder
		record        *production.ProductionRecord
		use           *materialUse
		outputMoves   []*appshared.StockMove
		autoCompleted bool
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		order, err = repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		expected := order.GetVersion()
		if err := order.RecordOutput(req.Quantity, req.Wastage, allowOverage); err != nil {
			return err
		}

		var batchNumber, qualityNotes string
		var qualityChecked bool
		if req.Batch != nil {
			batchNumber = req.Batch.BatchNumber
		}
		if req.Quality != nil {
			qualityChecked, qualityNotes = req.Quality.Checked, req.Quality.Notes
		}
		record, err = production.NewProductionRecord(order.ID, req.EmployeeID, req.Quantity, req.Wastage,
			qualityChecked, qualityNotes, batchNumber)
		if err != nil {
			return err
		}
		reference := record.ID.String()

		b, err := repos.BOMs().FindByID(ctx, order.BOMID)
		if err != nil {
			return err
		}
		use, err = s.consumeMaterials(ctx, repos, order, b, req.Quantity, reference)
		if err != nil {
			return err
		}

		move, err := appshared.MoveStock(ctx, repos, appshared.StockChange{
			ProductID: order.OutputProductID,
			Delta:     req.Quantity,
			Source:    catalog.AdjustmentSourceProductionOutput,
			Reference: reference,
		})
		if err != nil {
			return err
		}
		outputMoves = append(outputMoves, move)

		if req.Batch != nil {
			unitCost, err := s.outputUnitCost(use, req.Quantity)
			if err != nil {
				return err
			}
			batch, _, err := s.batches.ReceiveWith(ctx, repos, appinventory.ReceiveBatchRequest{
				ProductID:       order.OutputProductID,
				BatchNumber:     req.Batch.BatchNumber,
				Quantity:        req.Quantity,
				UnitCost:        unitCost,
				ManufactureDate: req.Batch.ManufactureDate,
				ExpiryDate:      req.Batch.ExpiryDate,
				Reference:       reference,
			}, false)
			if err != nil {
				return err
			}
			use.events = append(use.events, batch.PullDomainEvents()...)
		}

		order.AddDomainEvent(production.NewProductionRecordedEvent(order, record))
		if s.opts.CompletionPolicy == CompletionAutoOnTarget && order.ReachedTarget() {
			if err := order.TransitionTo(production.OrderStatusCompleted, false); err != nil {
				return err
			}
			autoCompleted = true
		}
		if err := repos.Orders().SaveWithLock(ctx, order, expected); err != nil {
			return err
		}
		return repos.Records().Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	if idemKey != "" {
		if _, err := s.idempotency.MarkProcessed(ctx, idemKey, s.opts.IdempotencyTTL); err != nil {
			log.Warn("failed to mark idempotency key", zap.String("key", idemKey), zap.Error(err))
		}
	}

	events := order.PullDomainEvents()
	events = append(events, use.events...)
	events = append(events, appshared.CollectEvents(outputMoves)...)
	s.publish(ctx, events)

	if s.metrics != nil {
		s.metrics.RecordProduction(ctx, req.Quantity, req.Wastage)
		for _, m := range append(use.moves, outputMoves...) {
			s.metrics.RecordStockMovements(ctx, string(m.Adjustment.Source), 1)
		}
		if autoCompleted {
			s.metrics.RecordTransition(ctx, production.OrderStatusInProgress.String(), production.OrderStatusCompleted.String(), false)
		}
	}
	log.Info("production recorded",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("record_id", record.ID.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("wastage", req.Wastage.String()),
		zap.String("completed_quantity", order.CompletedQuantity.String()),
		zap.Int("material_lines", len(use.lines)),
		zap.Bool("auto_completed", autoCompleted),
	)

	recordResp := ToRecordResponse(record)
	return &RecordProductionResponse{Order: ToOrderResponse(order), Record: &recordResp}, nil
}

// consumeMaterials draws the BOM requirements for quantity. Reported wastage
// is an outcome of the run; expected loss is already priced into the BOM
// through each item's wastage percent.
func (s *Service) consumeMaterials(
	ctx context.Context,
	repos appshared.TransactionalRepositories,
	order *production.ProductionOrder,
	b *bom.BillOfMaterials,
	quantity decimal.Decimal,
	reference string,
) (*materialUse, error) {
	lines, products, err := s.planner.StockRequirements(ctx, repos.Products(), b, quantity)
	if err != nil {
		return nil, err
	}

	sequence := make([]uuid.UUID, 0, len(lines))
	totalByProduct := make(map[uuid.UUID]decimal.Decimal, len(lines))
	for _, l := range lines {
		if _, seen := totalByProduct[l.ProductID]; !seen {
			sequence = append(sequence, l.ProductID)
		}
		totalByProduct[l.ProductID] = totalByProduct[l.ProductID].Add(l.Quantity)
	}

	use := &materialUse{lines: lines, products: products}
	changes := make([]appshared.StockChange, 0, len(sequence))
	for _, productID := range sequence {
		if order.BatchTracked {
			c, err := s.batches.ConsumeWith(ctx, repos, appinventory.ConsumeRequest{
				ProductID: productID,
				Quantity:  totalByProduct[productID],
				Reference: reference,
				OutSource: catalog.AdjustmentSourceProductionInput,
			})
			if err != nil {
				return nil, err
			}
			use.moves = append(use.moves, c.Moves...)
			use.events = append(use.events, c.Events...)
			continue
		}
		changes = append(changes, appshared.StockChange{
			ProductID: productID,
			Delta:     totalByProduct[productID].Neg(),
			Source:    catalog.AdjustmentSourceProductionInput,
			Reference: reference,
		})
	}
	if len(changes) > 0 {
		moves, err := appshared.MoveStockAll(ctx, repos, changes)
		if err != nil {
			return nil, err
		}
		use.moves = append(use.moves, moves...)
		use.events = append(use.events, appshared.CollectEvents(moves)...)
	}
	return use, nil
}

// outputUnitCost prices a finished-goods batch at the estimated cost of
// everything consumed for it, spread over the good quantity
func (s *Service) outputUnitCost(use *materialUse, quantity decimal.Decimal) (decimal.Decimal, error) {
	estimate, err := s.estimator.Estimate(use.lines, appbom.CostSnapshot(use.products))
	if err != nil {
		return decimal.Zero, err
	}
	return estimate.TotalCost.DivRound(quantity, bom.CostPrecision), nil
}

// GetOrder retrieves an order by ID
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.repos.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToOrderResponse(order)
	return &response, nil
}

// ListOrders lists orders, newest first unless asked otherwise
func (s *Service) ListOrders(ctx context.Context, req ListOrdersRequest) ([]OrderResponse, int64, error) {
	filter := production.OrderFilter{
		Filter: shared.Filter{
			Page:     req.Page,
			PageSize: req.PageSize,
			OrderBy:  req.OrderBy,
			OrderDir: req.OrderDir,
			Search:   req.Search,
		},
		BOMID: req.BOMID,
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
		filter.OrderDir = "desc"
	}
	if req.Status != "" {
		status := production.OrderStatus(strings.ToUpper(req.Status))
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, "Invalid order status: "+req.Status)
		}
		filter.Status = &status
	}
	orders, total, err := s.repos.Orders().FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToOrderResponses(orders), total, nil
}

// ListRecords returns the production records of an order, oldest first
func (s *Service) ListRecords(ctx context.Context, orderID uuid.UUID) ([]RecordResponse, error) {
	if _, err := s.repos.Orders().FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	records, err := s.repos.Records().FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return ToRecordResponses(records), nil
}

// UpdateQuality sets the quality outcome of a record. It can be done once.
func (s *Service) UpdateQuality(ctx context.Context, recordID uuid.UUID, req UpdateQualityRequest) (*RecordResponse, error) {
	var record *production.ProductionRecord
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		record, err = repos.Records().FindByID(ctx, recordID)
		if err != nil {
			return err
		}
		if err := record.UpdateQuality(req.Checked, req.Notes); err != nil {
			return err
		}
		return repos.Records().SaveQuality(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	response := ToRecordResponse(record)
	return &response, nil
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.log).Warn("failed to publish production events", zap.Error(err))
	}
}
