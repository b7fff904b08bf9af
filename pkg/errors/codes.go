package errors

import (
	"net/http"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodePayloadTooLarge    ErrorCode = "COMMON_017"
)

// Data source error codes. These never reach a client directly: the trend
// aggregator converts them into fallback data.
const (
	ErrCodeDataSourceUnavailable   ErrorCode = "SRC_001"
	ErrCodeDataSourceAuthFailed    ErrorCode = "SRC_003"
	ErrCodeDataSourceParseError    ErrorCode = "SRC_004"
	ErrCodeDataSourceNotConfigured ErrorCode = "SRC_005"
	ErrCodeDataSourceEmpty         ErrorCode = "SRC_006"
)

// Short aliases used at call sites.
const (
	CodeOK           ErrorCode = "OK"
	CodeUnknown      ErrorCode = "UNKNOWN"
	CodeInternal               = ErrCodeInternal
	CodeInvalidParam           = ErrCodeBadRequest
	CodeForbidden              = ErrCodeForbidden
	CodeNotFound               = ErrCodeNotFound
	CodeRateLimit              = ErrCodeTooManyRequests
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodePayloadTooLarge:    http.StatusRequestEntityTooLarge,

	ErrCodeDataSourceUnavailable:   http.StatusServiceUnavailable,
	ErrCodeDataSourceAuthFailed:    http.StatusBadGateway,
	ErrCodeDataSourceParseError:    http.StatusBadGateway,
	ErrCodeDataSourceNotConfigured: http.StatusServiceUnavailable,
	ErrCodeDataSourceEmpty:         http.StatusServiceUnavailable,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timed out",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodePayloadTooLarge:    "request body too large",

	ErrCodeDataSourceUnavailable:   "data source unavailable",
	ErrCodeDataSourceAuthFailed:    "data source authentication failed",
	ErrCodeDataSourceParseError:    "failed to parse data source response",
	ErrCodeDataSourceNotConfigured: "data source not configured",
	ErrCodeDataSourceEmpty:         "data source returned no usable rows",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}
