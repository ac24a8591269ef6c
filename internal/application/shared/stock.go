package shared

import (
	"context"
	"fmt"

	"github.com/erp/bomengine/internal/domain/catalog"
	domain "github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockChange describes one audited stock movement
type StockChange struct {
	ProductID uuid.UUID
	Delta     decimal.Decimal
	Source    catalog.AdjustmentSource
	Reference string
	Reason    string
}

// StockMove is the committed result of a StockChange
type StockMove struct {
	Adjustment *catalog.StockAdjustment
	// Events holds a StockBelowMinimum event when the change crossed the minimum
	Events []domain.DomainEvent
}

// MoveStock applies change through the atomic stock catalog and writes the
// audit row. It must run inside a transaction scope so that the audit row and
// the balance change commit together.
func MoveStock(ctx context.Context, repos TransactionalRepositories, change StockChange) (*StockMove, error) {
	if err := repos.Stock().AdjustStock(ctx, change.ProductID, change.Delta); err != nil {
		return nil, err
	}
	product, err := repos.Products().FindByID(ctx, change.ProductID)
	if err != nil {
		return nil, err
	}
	before := product.CurrentStock.Sub(change.Delta)

	adj, err := catalog.NewStockAdjustment(change.ProductID, change.Delta, before, change.Source, change.Reference, change.Reason)
	if err != nil {
		return nil, err
	}
	if err := repos.Adjustments().Create(ctx, adj); err != nil {
		return nil, fmt.Errorf("failed to record stock adjustment: %w", err)
	}

	move := &StockMove{Adjustment: adj}
	wasBelow := product.MinimumStock.IsPositive() && before.LessThan(product.MinimumStock)
	if !wasBelow && product.IsBelowMinimum() {
		move.Events = append(move.Events, catalog.NewStockBelowMinimumEvent(product))
	}
	return move, nil
}

// MoveStockAll applies changes in order and stops at the first failure.
// Zero deltas are skipped. Callers roll back through the transaction scope.
func MoveStockAll(ctx context.Context, repos TransactionalRepositories, changes []StockChange) ([]*StockMove, error) {
	moves := make([]*StockMove, 0, len(changes))
	for _, ch := range changes {
		if ch.Delta.IsZero() {
			continue
		}
		m, err := MoveStock(ctx, repos, ch)
		if err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, nil
}

// CollectEvents flattens the events of moves
func CollectEvents(moves []*StockMove) []domain.DomainEvent {
	events := make([]domain.DomainEvent, 0)
	for _, m := range moves {
		events = append(events, m.Events...)
	}
	return events
}
