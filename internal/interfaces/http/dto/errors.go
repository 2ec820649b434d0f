package dto

import "net/http"

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>

const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeValidation is used when request payload validation fails
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used when an operation collides with one in flight
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeUnauthorized is used when a webhook signature does not verify
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeRateLimited is used when the rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeUpstreamUnavailable is used when the vendor or storefront
	// cannot be reached
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeInvalidJSON:         http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
