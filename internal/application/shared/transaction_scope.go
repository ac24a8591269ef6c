// Package shared holds the application-layer plumbing used by every service:
// the transaction scope and the audited stock mover.
package shared

import (
	"context"

	"github.com/erp/bomengine/internal/domain/bom"
	"github.com/erp/bomengine/internal/domain/catalog"
	"github.com/erp/bomengine/internal/domain/inventory"
	"github.com/erp/bomengine/internal/domain/production"
)

// TransactionScope runs a unit of work atomically.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to every repository. Inside
// TransactionScope.Execute all of them share the same database transaction.
type TransactionalRepositories interface {
	Products() catalog.ProductRepository
	// Stock is the atomic, never-negative stock contract
	Stock() catalog.StockCatalog
	Adjustments() catalog.StockAdjustmentRepository
	BOMs() bom.BOMRepository
	Orders() production.OrderRepository
	Records() production.RecordRepository
	Batches() inventory.BatchRepository
	Movements() inventory.MovementRepository
	Counts() inventory.CountRepository
}

// NoOpTransactionScope runs fn directly against a fixed set of repositories.
// Used in tests with in-memory repositories.
type NoOpTransactionScope struct {
	repos TransactionalRepositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over repos
func NewNoOpTransactionScope(repos TransactionalRepositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s.repos)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
