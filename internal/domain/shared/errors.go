package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes shared by every domain package.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidQuantity       = "INVALID_QUANTITY"
	CodeInvalidConversionRate = "INVALID_CONVERSION_RATE"
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodePersistence           = "PERSISTENCE_ERROR"
	CodeUnauthorized          = "UNAUTHORIZED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	cause     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// Validation sub-codes match the generic validation sentinel.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	if t.Code == CodeValidation {
		return IsValidationCode(e.Code)
	}
	return t.Code == e.Code
}

// WithDetail attaches a key/value pair surfaced to API callers.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError reports input rejected before any mutation.
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a reference to a missing entity.
func NewNotFoundError(entity, id string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", entity, id)).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewPersistenceError wraps a storage failure. The operation can be retried.
func NewPersistenceError(op string, cause error) *DomainError {
	return &DomainError{
		Code:      CodePersistence,
		Message:   fmt.Sprintf("%s failed", op),
		Retryable: true,
		Details:   map[string]any{"operation": op},
		cause:     cause,
	}
}

// IsValidationCode reports whether code belongs to the validation family.
func IsValidationCode(code string) bool {
	switch code {
	case CodeValidation, CodeInvalidQuantity, CodeInvalidConversionRate:
		return true
	default:
		return false
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation        = NewDomainError(CodeValidation, "Validation failed")
	ErrNotFound          = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists     = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInsufficientStock = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrPersistence       = NewDomainError(CodePersistence, "Storage operation failed")
	ErrUnauthorized      = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
)

// NewInsufficientStockError reports an outbound quantity larger than the
// stock on hand. It is raised by callers that pre-check sufficiency.
func NewInsufficientStockError(itemID, sku string, available, requested decimal.Decimal) *DomainError {
	return NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for item %s: available %s, requested %s", sku, available.String(), requested.String())).
		WithDetail("item_id", itemID).
		WithDetail("sku", sku).
		WithDetail("available", available.String()).
		WithDetail("requested", requested.String())
}
