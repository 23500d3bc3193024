package errors

import (
	"fmt"
	"net/http"
)

// Error codes shared by the HTTP and gRPC surfaces.
const (
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeValidationError         = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeDuplicateRequest        = "DUPLICATE_REQUEST"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	CodeOrderImmutable          = "ORDER_IMMUTABLE"
	CodeStockUnavailable        = "STOCK_UNAVAILABLE"
	CodeConflict                = "CONFLICT"
	CodeInternalError           = "INTERNAL_ERROR"
)

// StandardError is the error body returned to API clients.
type StandardError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *StandardError) Error() string {
	return e.Message
}

func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidRequest, CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDuplicateRequest, CodeConflict, CodeInvalidStatusTransition, CodeOrderImmutable:
		return http.StatusConflict
	case CodeStockUnavailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func New(code, message string, details any) *StandardError {
	return &StandardError{Code: code, Message: message, Details: details}
}

func NewInvalidRequest(message string) *StandardError {
	return New(CodeInvalidRequest, message, nil)
}

func NewValidationError(message, field string) *StandardError {
	return New(CodeValidationError, message, fmt.Sprintf("field: %s", field))
}

func NewNotFound(resource, id string) *StandardError {
	return New(CodeNotFound, resource+" not found", fmt.Sprintf("id: %s", id))
}

func NewInternalError(message string, err error) *StandardError {
	var details any
	if err != nil {
		details = err.Error()
	}
	return New(CodeInternalError, message, details)
}
