// Package catalog holds the product use cases: product maintenance, manual
// stock corrections and the stock audit trail.
package catalog

import (
	"context"
	"strings"

	appshared "github.com/erp/bomengine/internal/application/shared"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const openingBalanceReason = "opening balance"

// ProductService handles product-related business operations
type ProductService struct {
	repos     appshared.TransactionalRepositories
	txScope   appshared.TransactionScope
	publisher shared.EventPublisher
	metrics   *telemetry.ProductionMetrics
	log       *zap.Logger
}

// NewProductService creates a new ProductService. repos serves reads outside
// a transaction; every write goes through txScope.
func NewProductService(
	repos appshared.TransactionalRepositories,
	txScope appshared.TransactionScope,
	log *zap.Logger,
) *ProductService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductService{
		repos:   repos,
		txScope: txScope,
		log:     log,
	}
}

// SetEventPublisher sets the publisher used after commit
func (s *ProductService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *ProductService) SetMetrics(metrics *telemetry.ProductionMetrics) {
	s.metrics = metrics
}

// Create creates a new product, optionally booking an opening balance
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "create_product")
	defer span.End()

	product, err := catalog.NewProduct(req.SKU, req.Name, req.Unit, req.IsRawMaterial)
	if err != nil {
		return nil, err
	}
	if req.UnitCost != nil {
		if err := product.SetUnitCost(*req.UnitCost); err != nil {
			return nil, err
		}
	}
	if req.MinimumStock != nil {
		if err := product.SetMinimumStock(*req.MinimumStock); err != nil {
			return nil, err
		}
	}
	if req.LeadTimeDays != nil {
		if err := product.SetLeadTimeDays(*req.LeadTimeDays); err != nil {
			return nil, err
		}
	}
	if req.InitialStock != nil && req.InitialStock.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Initial stock cannot be negative")
	}

	var moves []*appshared.StockMove
	err = s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		exists, err := repos.Products().ExistsBySKU(ctx, product.SKU)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists, "Product with this SKU already exists").
				WithDetail("sku", product.SKU)
		}
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}
		if req.InitialStock == nil || req.InitialStock.IsZero() {
			return nil
		}
		move, err := appshared.MoveStock(ctx, repos, appshared.StockChange{
			ProductID: product.ID,
			Delta:     *req.InitialStock,
			Source:    catalog.AdjustmentSourceManual,
			Reference: product.SKU,
			Reason:    openingBalanceReason,
		})
		if err != nil {
			return err
		}
		moves = append(moves, move)
		product.CurrentStock = move.Adjustment.BalanceAfter
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	events := append(product.GetDomainEvents(), appshared.CollectEvents(moves)...)
	product.ClearDomainEvents()
	s.publish(ctx, events)
	if s.metrics != nil {
		s.metrics.RecordStockMovements(ctx, string(catalog.AdjustmentSourceManual), len(moves))
	}

	logger.Enrich(ctx, s.log).Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.String("sku", product.SKU),
	)
	response := ToProductResponse(product)
	return &response, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.repos.Products().FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// GetBySKU retrieves a product by SKU
func (s *ProductService) GetBySKU(ctx context.Context, sku string) (*ProductResponse, error) {
	product, err := s.repos.Products().FindBySKU(ctx, strings.ToUpper(strings.TrimSpace(sku)))
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// Update changes the descriptive and planning attributes of a product
func (s *ProductService) Update(ctx context.Context, productID uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	var product *catalog.Product
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		product, err = repos.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			if err := product.Rename(*req.Name); err != nil {
				return err
			}
		}
		if req.UnitCost != nil {
			if err := product.SetUnitCost(*req.UnitCost); err != nil {
				return err
			}
		}
		if req.MinimumStock != nil {
			if err := product.SetMinimumStock(*req.MinimumStock); err != nil {
				return err
			}
		}
		if req.LeadTimeDays != nil {
			if err := product.SetLeadTimeDays(*req.LeadTimeDays); err != nil {
				return err
			}
		}
		return repos.Products().Save(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	response := ToProductResponse(product)
	return &response, nil
}

// ListBelowMinimum lists products whose stock is under their minimum
func (s *ProductService) ListBelowMinimum(ctx context.Context, filter shared.Filter) ([]ProductResponse, int64, error) {
	products, total, err := s.repos.Products().FindBelowMinimum(ctx, normalizeFilter(filter, "current_stock", "asc"))
	if err != nil {
		return nil, 0, err
	}
	return ToProductResponses(products), total, nil
}

// GetStock returns the current stock of a product
func (s *ProductService) GetStock(ctx context.Context, productID uuid.UUID) (*StockLevelResponse, error) {
	qty, err := s.repos.Stock().GetStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &StockLevelResponse{ProductID: productID, CurrentStock: qty}, nil
}

// AdjustStock books a manual correction. A reason is mandatory and the
// balance may not go negative.
func (s *ProductService) AdjustStock(ctx context.Context, productID uuid.UUID, req AdjustStockRequest) (*StockAdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "catalog", "adjust_stock",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, productID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, req.Delta),
	)
	defer span.End()

	if strings.TrimSpace(req.Reason) == "" {
		return nil, shared.NewDomainError(shared.CodeMissingReason, "A reason is required for a manual stock adjustment")
	}
	if req.Delta.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Adjustment delta cannot be zero")
	}

	var move *appshared.StockMove
	err := s.txScope.Execute(ctx, func(repos appshared.TransactionalRepositories) error {
		var err error
		move, err = appshared.MoveStock(ctx, repos, appshared.StockChange{
			ProductID: productID,
			Delta:     req.Delta,
			Source:    catalog.AdjustmentSourceManual,
			Reference: req.Reference,
			Reason:    strings.TrimSpace(req.Reason),
		})
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, move.Events)
	if s.metrics != nil {
		s.metrics.RecordStockMovements(ctx, string(catalog.AdjustmentSourceManual), 1)
	}
	logger.Enrich(ctx, s.log).Info("manual stock adjustment",
		zap.String("product_id", productID.String()),
		zap.String("delta", req.Delta.String()),
		zap.String("balance_after", move.Adjustment.BalanceAfter.String()),
		zap.String("reason", move.Adjustment.Reason),
	)
	response := ToStockAdjustmentResponse(move.Adjustment)
	return &response, nil
}

// ListAdjustments returns the audit trail of a product, newest first
func (s *ProductService) ListAdjustments(ctx context.Context, productID uuid.UUID, filter shared.Filter) ([]StockAdjustmentResponse, int64, error) {
	if _, err := s.repos.Products().FindByID(ctx, productID); err != nil {
		return nil, 0, err
	}
	adjs, total, err := s.repos.Adjustments().FindByProduct(ctx, productID, normalizeFilter(filter, "created_at", "desc"))
	if err != nil {
		return nil, 0, err
	}
	return ToStockAdjustmentResponses(adjs), total, nil
}

// ListAdjustmentsByReference returns every audit row written under reference,
// e.g. all stock effects of one production record or count.
func (s *ProductService) ListAdjustmentsByReference(ctx context.Context, reference string) ([]StockAdjustmentResponse, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Reference cannot be empty")
	}
	adjs, err := s.repos.Adjustments().FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	return ToStockAdjustmentResponses(adjs), nil
}

func (s *ProductService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		logger.Enrich(ctx, s.log).Warn("failed to publish product events", zap.Error(err))
	}
}

func normalizeFilter(filter shared.Filter, orderBy, orderDir string) shared.Filter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = orderBy
	}
	if filter.OrderDir == "" {
		filter.OrderDir = orderDir
	}
	return filter
}
