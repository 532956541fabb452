package dto

import "net/http"

// Messages shared by handlers and middleware
const (
	MsgValidationFailed = "Request validation failed"
	MsgUnexpected       = "An unexpected error occurred"
	MsgUnknownProcessor = "Unknown error"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// NewErrorResponse creates an error body carrying message
func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

// NewValidationErrorResponse creates a 400 body listing messages per field
func NewValidationErrorResponse(fields map[string][]string) ErrorResponse {
	return ErrorResponse{
		Error:  MsgValidationFailed,
		Fields: fields,
	}
}

// domainCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes missing here are business-rule failures and answer 400.
var domainCodeHTTPStatus = map[string]int{
	"NOT_FOUND":      http.StatusNotFound,
	"UNAUTHORIZED":   http.StatusUnauthorized,
	"FORBIDDEN":      http.StatusForbidden,
	"INTERNAL_ERROR": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := domainCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusBadRequest
}
