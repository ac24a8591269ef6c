package inventory

import (
	"context"
	"strings"
	"time"

	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CountService runs physical inventory counts and reconciles them against
// the catalog
type CountService struct {
	repos     appshared.TransactionalRepositories
	txScope   appshared.TransactionScope
	publisher shared.EventPublisher
	metrics   *telemetry.ProductionMetrics
	log       *zap.Logger
}

// NewCountService creates a new CountService
func NewCountService(
	repos appshared.TransactionalRepositories,
	txScope appshared.TransactionScope,
	log *zap.Logger,
) *CountService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CountService{
		repos:   repos,
		txScope: txScope,
		log:     log,
	}
}

// SetEventPublisher sets the publisher used after commit
func (s *CountService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *CountService) SetMetrics(metrics *telemetry.ProductionMetrics) {
	s.metrics = metrics
}

// CreateCount opens a PENDING count and snapshots the current catalog stock
// of every product as its expected quantity
func (s *CountService) CreateCount(ctx context.Context, req CreateCountRequest) (*CountResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "create_count",
		telemetry.WithAttribute(telemetry.SpanAttrLines, len(req.ProductIDs)),
	)
	defer span.End()

	if len(req.ProductIDs) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "A count needs at least one product")
	}
	var countDate time.Time
	if req.CountDate != nil {
		countDate = *req.CountDate
	}
	count, err := inventory.NewInventoryCount(req.Reference, countDate, req.CreatedBy)
	if err != nil {
		return nil, err
	}
	count.Notes = strings.TrimSpace(req.Notes)

	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		exists, err := repos.Counts().ExistsByReference(ctx, count.Reference)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Inventory count with this reference already exists").
				WithDetail("reference", count.Reference)
		}
		for _, productID := range req.ProductIDs {
			expected, err := repos.Stock().GetStock(ctx, productID)
			if err != nil {
				return err
			}
			if err := count.AddItem(productID, expected); err != nil {
				return err
			}
		}
		return repos.Counts().Create(ctx, count)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, count.PullDomainEvents())
	logger.Enrich(ctx, s.log).Info("inventory count created",
		zap.String("count_id", count.ID.String()),
		zap.String("reference", count.Reference),
		zap.Int("items", len(count.Items)),
	)
	response := ToCountResponse(count)
	return &response, nil
}

// StartCount moves a PENDING count to IN_PROGRESS
func (s *CountService) StartCount(ctx context.Context, countID uuid.UUID) (*CountResponse, error) {
	return s.mutate(ctx, countID, func(c *inventory.InventoryCount) error {
		return c.Start()
	})
}

// RecordActual stores the counted quantity of one product
func (s *CountService) RecordActual(ctx context.Context, countID uuid.UUID, req RecordActualRequest) (*CountResponse, error) {
	return s.mutate(ctx, countID, func(c *inventory.InventoryCount) error {
		return c.RecordActual(req.ProductID, req.Actual)
	})
}

// CompleteCount closes counting once every item has an actual quantity
func (s *CountService) CompleteCount(ctx context.Context, countID uuid.UUID) (*CountResponse, error) {
	return s.mutate(ctx, countID, func(c *inventory.InventoryCount) error {
		return c.Complete()
	})
}

func (s *CountService) mutate(ctx context.Context, countID uuid.UUID, fn func(c *inventory.InventoryCount) error) (*CountResponse, error) {
	var count *inventory.InventoryCount
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		count, err = repos.Counts().FindByID(ctx, countID)
		if err != nil {
			return err
		}
		expected := count.GetVersion()
		if err := fn(count); err != nil {
			return err
		}
		return repos.Counts().SaveWithLock(ctx, count, expected)
	})
	if err != nil {
		return nil, err
	}
	response := ToCountResponse(count)
	return &response, nil
}

// ReconcileCount applies one decision per item. Approved items adjust the
// catalog stock by their variance (or override) with an audit row of source
// COUNT. Either every adjustment applies and the count becomes RECONCILED, or
// nothing changes.
func (s *CountService) ReconcileCount(ctx context.Context, countID uuid.UUID, req ReconcileCountRequest) (*CountResponse, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "reconcile_count",
		telemetry.WithAttribute(telemetry.SpanAttrCountID, countID),
		telemetry.WithAttribute(telemetry.SpanAttrLines, len(req.Decisions)),
	)
	defer span.End()

	var (
		count   *inventory.InventoryCount
		effects []inventory.StockEffect
		moves   []*appshared.StockMove
	)
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		count, err = repos.Counts().FindByID(ctx, countID)
		if err != nil {
			return err
		}
		expected := count.GetVersion()
		effects, err = count.Reconcile(toDecisions(req.Decisions), req.ReconciledBy)
		if err != nil {
			return err
		}
		if err := repos.Counts().SaveWithLock(ctx, count, expected); err != nil {
			return err
		}
		changes := make([]appshared.StockChange, len(effects))
		for i, e := range effects {
			changes[i] = appshared.StockChange{
				ProductID: e.ProductID,
				Delta:     e.Delta,
				Source:    catalog.AdjustmentSourceCount,
				Reference: count.Reference,
				Reason:    e.ReasonCode,
			}
		}
		moves, err = appshared.MoveStockAll(ctx, repos, changes)
		return err
	})
	if s.metrics != nil {
		s.metrics.ObserveOperation(ctx, "reconcile_count", start, err)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, append(count.PullDomainEvents(), appshared.CollectEvents(moves)...))
	if s.metrics != nil {
		s.metrics.RecordCountReconciled(ctx)
		s.metrics.RecordStockMovements(ctx, string(catalog.AdjustmentSourceCount), len(moves))
	}
	logger.Enrich(ctx, s.log).Info("inventory count reconciled",
		zap.String("count_id", count.ID.String()),
		zap.String("reference", count.Reference),
		zap.Int("items", len(count.Items)),
		zap.Int("adjustments", len(effects)),
	)
	response := ToCountResponse(count)
	return &response, nil
}

// GetCount retrieves a count with its items
func (s *CountService) GetCount(ctx context.Context, countID uuid.UUID) (*CountResponse, error) {
	count, err := s.repos.Counts().FindByID(ctx, countID)
	if err != nil {
		return nil, err
	}
	response := ToCountResponse(count)
	return &response, nil
}

// ListCounts lists counts, optionally restricted to one status
func (s *CountService) ListCounts(ctx context.Context, filter shared.Filter, status string) ([]CountResponse, int64, error) {
	var st *inventory.CountStatus
	if status != "" {
		parsed := inventory.CountStatus(strings.ToUpper(status))
		if !parsed.IsValid() {
			return nil, 0, shared.NewDomainError(shared.CodeInvalidInput, "Invalid count status: "+status)
		}
		st = &parsed
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "count_date"
		filter.OrderDir = "desc"
	}
	counts, total, err := s.repos.Counts().FindAll(ctx, filter, st)
	if err != nil {
		return nil, 0, err
	}
	return ToCountResponses(counts), total, nil
}

func (s *CountService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.log).Warn("failed to publish count events", zap.Error(err))
	}
}
