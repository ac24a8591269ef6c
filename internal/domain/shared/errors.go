package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrNotFound) matches any NOT_FOUND error.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra detail field
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Code: e.Code, Message: e.Message, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeIncompleteBOM          = "INCOMPLETE_BOM"
	CodeInvalidState           = "INVALID_STATE"
	CodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	CodeOverProduction         = "OVER_PRODUCTION"
	CodeInsufficientBatchStock = "INSUFFICIENT_BATCH_STOCK"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeMissingReason          = "MISSING_REASON"
	CodeConcurrencyConflict    = "CONCURRENCY_CONFLICT"
	CodeBOMLocked              = "BOM_LOCKED"
)

// Common domain errors
var (
	ErrNotFound               = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists          = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput           = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidQuantity        = NewDomainError(CodeInvalidQuantity, "Quantity must be greater than zero")
	ErrIncompleteBOM          = NewDomainError(CodeIncompleteBOM, "Bill of materials is incomplete")
	ErrInvalidState           = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrInvalidStateTransition = NewDomainError(CodeInvalidStateTransition, "State transition not allowed")
	ErrOverProduction         = NewDomainError(CodeOverProduction, "Quantity exceeds the order target")
	ErrInsufficientBatchStock = NewDomainError(CodeInsufficientBatchStock, "Insufficient batch stock available")
	ErrInsufficientStock      = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrMissingReason          = NewDomainError(CodeMissingReason, "A reason is required")
	ErrConcurrencyConflict    = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrBOMLocked              = NewDomainError(CodeBOMLocked, "Bill of materials is referenced by an active production order")
)

// NewNotFoundError builds a NOT_FOUND error naming the missing resource
func NewNotFoundError(resource string, id any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %v not found", resource, id)).
		WithDetail("resource", resource).
		WithDetail("id", fmt.Sprint(id))
}

// NewStateTransitionError builds an INVALID_STATE_TRANSITION error naming both states
func NewStateTransitionError(entity, from, to string) *DomainError {
	return NewDomainError(CodeInvalidStateTransition,
		fmt.Sprintf("Cannot transition %s from %s to %s", entity, from, to)).
		WithDetail("current_state", from).
		WithDetail("requested_state", to)
}
