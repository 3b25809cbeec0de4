package server

import "net/http"

// APIError is a structured error returned to admin API callers.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

// WithDetails attaches a key/value pair to the error.
func (e *APIError) WithDetails(key string, value any) *APIError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// NewBadRequestError creates a 400 error.
func NewBadRequestError(message string) *APIError {
	return &APIError{Code: "BAD_REQUEST", Message: message, Status: http.StatusBadRequest}
}

// NewForbiddenError creates a 403 error.
func NewForbiddenError(message string) *APIError {
	return &APIError{Code: "FORBIDDEN", Message: message, Status: http.StatusForbidden}
}

// NewNotFoundError creates a 404 error.
func NewNotFoundError(message string) *APIError {
	return &APIError{Code: "NOT_FOUND", Message: message, Status: http.StatusNotFound}
}

// NewInternalError creates a 500 error.
func NewInternalError(message string) *APIError {
	return &APIError{Code: "INTERNAL_ERROR", Message: message, Status: http.StatusInternalServerError}
}
