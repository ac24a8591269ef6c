// Package bom holds the BOM maintenance and read-only planning use cases:
// requirements, availability and cost.
package bom

import (
	"context"
	"time"

	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options configures the planning policies
type Options struct {
	Rounding        bom.RoundingPolicy
	OverheadPercent decimal.Decimal
}

// Service handles BOM-related business operations
type Service struct {
	repos     appshared.TransactionalRepositories
	txScope   appshared.TransactionScope
	planner   *Planner
	checker   bom.AvailabilityChecker
	estimator *bom.CostEstimator
	publisher shared.EventPublisher
	metrics   *telemetry.ProductionMetrics
	log       *zap.Logger
}

// NewService creates a new BOM service. repos serves reads outside a
// transaction; every write goes through txScope.
func NewService(
	repos appshared.TransactionalRepositories,
	txScope appshared.TransactionScope,
	opts Options,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repos:     repos,
		txScope:   txScope,
		planner:   NewPlanner(opts.Rounding),
		checker:   bom.NewAvailabilityChecker(),
		estimator: bom.NewCostEstimator(opts.OverheadPercent),
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

// Planner returns the planner shared with the production service
func (s *Service) Planner() *Planner {
	return s.planner
}

// Estimator returns the cost estimator shared with the production service
func (s *Service) Estimator() *bom.CostEstimator {
	return s.estimator
}

// Create creates revision 1 of a BOM
func (s *Service) Create(ctx context.Context, req CreateBOMRequest) (*BOMResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "create",
		telemetry.WithAttribute(telemetry.SpanAttrBOMCode, req.Code),
	)
	defer span.End()

	b, err := bom.NewBillOfMaterials(req.Code, req.Name, req.OutputProductID, req.OutputQuantity, req.OutputUnit)
	if err != nil {
		return nil, err
	}
	if err := b.ReplaceItems(toItemSpecs(req.Items)); err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		exists, err := repos.BOMs().ExistsByCode(ctx, b.Code)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "BOM with this code already exists").
				WithDetail("code", b.Code)
		}
		if err := s.validateComponents(ctx, repos, b); err != nil {
			return err
		}
		return repos.BOMs().Save(ctx, b)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, b.GetDomainEvents())
	b.ClearDomainEvents()
	response := ToBOMResponse(b)
	return &response, nil
}

// Update changes a BOM. An unreferenced BOM is edited in place; one that a
// non-cancelled order points at is superseded by a new revision.
func (s *Service) Update(ctx context.Context, bomID uuid.UUID, req UpdateBOMRequest) (*UpdateBOMResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "update",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, bomID),
	)
	defer span.End()

	specs := toItemSpecs(req.Items)
	var (
		result  *bom.BillOfMaterials
		revised bool
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		// the row lock orders this check against CreateOrder on the same BOM
		current, err := repos.BOMs().FindByIDForUpdate(ctx, bomID)
		if err != nil {
			return err
		}
		blocking, err := repos.Orders().CountBlockingByBOM(ctx, current.ID)
		if err != nil {
			return err
		}

		if blocking == 0 {
			if err := current.Edit(req.Name, req.OutputQuantity, req.OutputUnit, specs); err != nil {
				return err
			}
			if err := s.validateComponents(ctx, repos, current); err != nil {
				return err
			}
			result = current
			return repos.BOMs().Save(ctx, current)
		}

		if req.InPlace {
			return shared.NewDomainError(shared.CodeBOMLocked,
				"BOM is referenced by production orders; edit it as a new revision").
				WithDetail("bom_id", current.ID.String()).
				WithDetail("blocking_orders", blocking)
		}
		next, err := current.Revise(req.Name, req.OutputQuantity, req.OutputUnit, specs)
		if err != nil {
			return err
		}
		if err := s.validateComponents(ctx, repos, next); err != nil {
			return err
		}
		// the old revision is deactivated before the new one becomes active
		if err := repos.BOMs().Save(ctx, current); err != nil {
			return err
		}
		if err := repos.BOMs().Save(ctx, next); err != nil {
			return err
		}
		result, revised = next, true
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if revised {
		logger.Enrich(ctx, s.log).Info("bom revised",
			zap.String("code", result.Code),
			zap.Int("revision", result.Revision),
			zap.String("previous_revision_id", bomID.String()),
		)
	}
	s.publish(ctx, result.GetDomainEvents())
	result.ClearDomainEvents()
	return &UpdateBOMResponse{BOMResponse: ToBOMResponse(result), NewRevision: revised}, nil
}

// Get returns a BOM revision by id
func (s *Service) Get(ctx context.Context, bomID uuid.UUID) (*BOMResponse, error) {
	b, err := s.repos.BOMs().FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	response := ToBOMResponse(b)
	return &response, nil
}

// GetActiveByCode returns the active revision of a code
func (s *Service) GetActiveByCode(ctx context.Context, code string) (*BOMResponse, error) {
	b, err := s.repos.BOMs().FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	response := ToBOMResponse(b)
	return &response, nil
}

// Revisions lists every revision of a code, newest first
func (s *Service) Revisions(ctx context.Context, code string) ([]BOMResponse, error) {
	revisions, err := s.repos.BOMs().FindRevisions(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(revisions) == 0 {
		return nil, shared.NewNotFoundError("bom", code)
	}
	responses := make([]BOMResponse, len(revisions))
	for i := range revisions {
		responses[i] = ToBOMResponse(&revisions[i])
	}
	return responses, nil
}

// ComputeRequirements explodes a BOM for quantity units of output
func (s *Service) ComputeRequirements(ctx context.Context, bomID uuid.UUID, quantity decimal.Decimal) (*RequirementsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "compute_requirements",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, bomID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, quantity),
	)
	defer span.End()

	b, err := s.repos.BOMs().FindByID(ctx, bomID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	lines, err := s.planner.Requirements(b, quantity)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrLines, len(lines))
	return &RequirementsResponse{
		BOMID:    b.ID,
		Code:     b.Code,
		Revision: b.Revision,
		Quantity: quantity,
		Lines:    lines,
	}, nil
}

// CheckAvailability compares the requirements with a fresh stock snapshot.
// The answer is advisory: stock may change right after it is read.
func (s *Service) CheckAvailability(ctx context.Context, bomID uuid.UUID, quantity decimal.Decimal) (*AvailabilityResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "check_availability",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, bomID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, quantity),
	)
	defer span.End()
	start := time.Now()

	result, err := s.checkAvailability(ctx, bomID, quantity)
	if s.metrics != nil {
		s.metrics.ObserveOperation(ctx, "check_availability", start, err)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (s *Service) checkAvailability(ctx context.Context, bomID uuid.UUID, quantity decimal.Decimal) (*AvailabilityResponse, error) {
	b, err := s.repos.BOMs().FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	lines, _, err := s.planner.StockRequirements(ctx, s.repos.Products(), b, quantity)
	if err != nil {
		return nil, err
	}

	snapshot := make(bom.StockSnapshot, len(lines))
	for _, line := range lines {
		qty, err := s.repos.Stock().GetStock(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		snapshot[line.ProductID] = qty
	}
	result := s.checker.Check(lines, snapshot)

	if !result.IsAvailable {
		logger.Enrich(ctx, s.log).Info("material shortage",
			zap.String("bom_id", b.ID.String()),
			zap.String("bom_code", b.Code),
			zap.String("quantity", quantity.String()),
			zap.Int("short_lines", len(result.Shortages)),
		)
		if s.metrics != nil {
			s.metrics.RecordShortages(ctx, "availability", len(result.Shortages))
		}
	}
	return &AvailabilityResponse{
		BOMID:              b.ID,
		Quantity:           quantity,
		CheckedAt:          time.Now().UTC(),
		AvailabilityResult: result,
	}, nil
}

// EstimateCost rolls up material cost, overhead and total for quantity
func (s *Service) EstimateCost(ctx context.Context, bomID uuid.UUID, quantity decimal.Decimal) (*CostEstimateResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bom", "estimate_cost",
		telemetry.WithAttribute(telemetry.SpanAttrBOMID, bomID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, quantity),
	)
	defer span.End()

	b, err := s.repos.BOMs().FindByID(ctx, bomID)
	if err != nil {
		return nil, err
	}
	lines, products, err := s.planner.StockRequirements(ctx, s.repos.Products(), b, quantity)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	estimate, err := s.estimator.Estimate(lines, CostSnapshot(products))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &CostEstimateResponse{
		BOMID:        b.ID,
		Quantity:     quantity,
		UnitCost:     estimate.TotalCost.DivRound(quantity, bom.CostPrecision),
		CostEstimate: estimate,
	}, nil
}

func (s *Service) validateComponents(ctx context.Context, repos appshared.TransactionalRepositories, b *bom.BillOfMaterials) error {
	ids := append(b.ComponentIDs(), b.OutputProductID)
	products, err := loadProducts(ctx, repos.Products(), ids)
	if err != nil {
		return err
	}
	return b.ValidateComponents(products)
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.log).Warn("failed to publish bom events", zap.Error(err))
	}
}
