package production

import (
	"strings"
	"time"

	"github.com/erp/bomengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductionRecord is one output event on an order. Records are immutable;
// corrections are new records. Quality fields may be set once afterwards.
type ProductionRecord struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	EmployeeID       uuid.UUID
	Quantity         decimal.Decimal
	Wastage          decimal.Decimal
	QualityChecked   bool
	QualityNotes     string
	QualityUpdatedAt *time.Time
	BatchNumber      string
	CreatedAt        time.Time
}

// NewProductionRecord creates a record
func NewProductionRecord(
	orderID, employeeID uuid.UUID,
	quantity, wastage decimal.Decimal,
	qualityChecked bool,
	qualityNotes, batchNumber string,
) (*ProductionRecord, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order ID cannot be empty")
	}
	if employeeID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Employee ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Produced quantity must be greater than zero")
	}
	if wastage.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Wastage cannot be negative")
	}
	return &ProductionRecord{
		ID:             uuid.New(),
		OrderID:        orderID,
		EmployeeID:     employeeID,
		Quantity:       quantity,
		Wastage:        wastage,
		QualityChecked: qualityChecked,
		QualityNotes:   strings.TrimSpace(qualityNotes),
		BatchNumber:    strings.TrimSpace(batchNumber),
		CreatedAt:      time.Now(),
	}, nil
}

// UpdateQuality sets the quality outcome. It may be called only once.
func (r *ProductionRecord) UpdateQuality(checked bool, notes string) error {
	if r.QualityUpdatedAt != nil {
		return shared.NewDomainError(shared.CodeInvalidState, "Quality fields of a production record can only be updated once")
	}
	now := time.Now()
	r.QualityChecked = checked
	r.QualityNotes = strings.TrimSpace(notes)
	r.QualityUpdatedAt = &now
	return nil
}
