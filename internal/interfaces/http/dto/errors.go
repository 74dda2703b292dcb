package dto

import (
	"errors"
	"net/http"

	"github.com/wms/backend/internal/domain/shared"
)

// API error codes. Domain codes are mapped onto these by NormalizeErrorCode.
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeValidation = "ERR_VALIDATION"

	ErrCodeInvalidQuantity       = "ERR_INVALID_QUANTITY"
	ErrCodeInvalidConversionRate = "ERR_INVALID_CONVERSION_RATE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"

	ErrCodeNotFound          = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists     = "ERR_ALREADY_EXISTS"
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"

	// ErrCodeIdempotencyInFlight means the same key is still being processed
	ErrCodeIdempotencyInFlight = "ERR_IDEMPOTENCY_IN_FLIGHT"
	// ErrCodeIdempotencyMismatch means the key was reused with another body
	ErrCodeIdempotencyMismatch = "ERR_IDEMPOTENCY_MISMATCH"

	ErrCodePersistence        = "ERR_PERSISTENCE"
	ErrCodeStorageUnavailable = "ERR_STORAGE_UNAVAILABLE"
	ErrCodeStorageDisabled    = "ERR_STORAGE_DISABLED"

	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeInvalidQuantity:       http.StatusBadRequest,
	ErrCodeInvalidConversionRate: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,

	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeAlreadyExists:     http.StatusConflict,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,

	ErrCodeIdempotencyInFlight: http.StatusConflict,
	ErrCodeIdempotencyMismatch: http.StatusUnprocessableEntity,

	ErrCodePersistence:        http.StatusServiceUnavailable,
	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,
	ErrCodeStorageDisabled:    http.StatusNotImplemented,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainErrorCodes maps domain error codes to API codes
var domainErrorCodes = map[string]string{
	shared.CodeValidation:            ErrCodeValidation,
	shared.CodeInvalidQuantity:       ErrCodeInvalidQuantity,
	shared.CodeInvalidConversionRate: ErrCodeInvalidConversionRate,
	shared.CodeNotFound:              ErrCodeNotFound,
	shared.CodeAlreadyExists:         ErrCodeAlreadyExists,
	shared.CodeInsufficientStock:     ErrCodeInsufficientStock,
	shared.CodePersistence:           ErrCodePersistence,
	shared.CodeUnauthorized:          ErrCodeUnauthorized,
	"STORAGE_UNAVAILABLE":            ErrCodeStorageUnavailable,
	"STORAGE_DISABLED":               ErrCodeStorageDisabled,
	"TOKEN_ERROR":                    ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Codes that are already API codes, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainErrorCodes[code]; ok {
		return apiCode
	}
	return code
}

// FromError builds the status and envelope for err. Domain errors keep
// their message, retryable flag and details; anything else is an opaque 500.
func FromError(err error, requestID string) (int, Response) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError,
			NewErrorResponseWithRequestID(ErrCodeInternal, "An unexpected error occurred", requestID)
	}

	code := NormalizeErrorCode(de.Code)
	resp := NewErrorResponseWithRequestID(code, de.Message, requestID)
	resp.Error.Retryable = de.Retryable
	for k, v := range de.Details {
		if k == "cause" {
			continue
		}
		if resp.Error.Details == nil {
			resp.Error.Details = make(map[string]any, len(de.Details))
		}
		resp.Error.Details[k] = v
	}
	return GetHTTPStatus(code), resp
}
