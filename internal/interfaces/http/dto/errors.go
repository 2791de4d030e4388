package dto

import (
	"net/http"
	"strings"
)

// Transport error codes. Domain errors keep their own codes; these cover
// what only the HTTP layer can detect.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// domainCodeStatus maps domain error codes whose status cannot be derived
// from their name
var domainCodeStatus = map[string]int{
	"ALREADY_EXISTS":          http.StatusConflict,
	"CONCURRENT_MODIFICATION": http.StatusConflict,
	"SALE_ALREADY_PAID":       http.StatusConflict,
	"ALREADY_RETURNED":        http.StatusConflict,
	"DOCUMENT_NOT_ISSUED":     http.StatusConflict,
	"INVALID_STATE":           http.StatusUnprocessableEntity,
	"UNKNOWN_DOCUMENT_KIND":   http.StatusBadRequest,
	"UNAUTHORIZED":            http.StatusForbidden,
	"PAYMENT_PROVIDER_ERROR":  http.StatusBadGateway,
	"CHECKOUT_NOT_PERSISTED":  http.StatusServiceUnavailable,
	"INTERNAL_ERROR":          http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeTokenRevoked:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status for an error code. Codes ending in
// _NOT_FOUND are 404, INVALID_ codes are 400 and any other business rule
// refusal is 422.
func GetHTTPStatus(code string) int {
	if status, ok := domainCodeStatus[code]; ok {
		return status
	}
	switch {
	case code == ErrCodeNotFound || strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	case code == "":
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
