package persistence

import (
	"errors"
	"strings"

	"github.com/erp/bomengine/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Allowed ORDER BY columns per table
var (
	productSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "sku": true, "name": true, "current_stock": true, "minimum_stock": true,
	}
	orderSortFields = map[string]bool{
		"created_at": true, "updated_at": true, "order_number": true, "planned_start_date": true, "status": true, "priority": true,
	}
	batchSortFields = map[string]bool{
		"created_at": true, "received_date": true, "expiry_date": true, "batch_number": true,
	}
	countSortFields = map[string]bool{
		"created_at": true, "count_date": true, "reference": true, "status": true,
	}
	adjustmentSortFields = map[string]bool{
		"created_at": true,
	}
)

// ValidateSortOrder normalizes a sort direction to ASC or DESC (the default)
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField if it is allowed, otherwise defaultField
func ValidateSortField(sortField string, allowed map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed != "" && allowed[trimmed] {
		return trimmed
	}
	return defaultField
}

// page applies ordering and pagination from filter
func page(q *gorm.DB, filter shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	field := ValidateSortField(filter.OrderBy, allowed, defaultField)
	return q.Order(field + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit())
}

// forUpdate adds SELECT ... FOR UPDATE on dialects that support row locks.
// SQLite serializes writers on its own.
func forUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// notFound maps gorm.ErrRecordNotFound to a NOT_FOUND domain error
func notFound(err error, resource string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.NewNotFoundError(resource, id)
	}
	return err
}

func concurrencyConflict(resource string, id any) error {
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		"The "+resource+" was modified by another transaction").
		WithDetail("resource", resource).
		WithDetail("id", id)
}
