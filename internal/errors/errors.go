package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes shared across the store, metadata client and activities.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeDatabase   = "DATABASE_ERROR"
	CodeNetwork    = "NETWORK_ERROR"
	CodeCancelled  = "CANCELLED"
	CodeOffline    = "OFFLINE"
	CodeInternal   = "INTERNAL_ERROR"
)

// AppError represents a structured error with a stable code and context
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// With returns the error with an extra context entry
func (e *AppError) With(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewValidationError(message string, field string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Context: map[string]interface{}{"field": field},
	}
}

func NewNotFoundError(resource string, id string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: resource + " not found",
		Context: map[string]interface{}{"resource": resource, "id": id},
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: message,
		Cause:   cause,
	}
}

func NewDatabaseError(operation string, cause error) *AppError {
	return &AppError{
		Code:    CodeDatabase,
		Message: "database operation failed",
		Context: map[string]interface{}{"operation": operation},
		Cause:   cause,
	}
}

// NewNetworkError wraps a metadata or image transport failure. A status of
// zero means the request never produced a response.
func NewNetworkError(operation string, status int, cause error) *AppError {
	msg := "remote request failed"
	if status != 0 {
		msg = fmt.Sprintf("remote request returned status %d", status)
	}
	return &AppError{
		Code:    CodeNetwork,
		Message: msg,
		Context: map[string]interface{}{"operation": operation, "status": status},
		Cause:   cause,
	}
}

func NewCancelledError(activity string) *AppError {
	return &AppError{
		Code:    CodeCancelled,
		Message: "activity cancelled",
		Context: map[string]interface{}{"activity": activity},
	}
}

func NewOfflineError(operation string) *AppError {
	return &AppError{
		Code:    CodeOffline,
		Message: "offline mode is enabled",
		Context: map[string]interface{}{"operation": operation},
	}
}

// CodeOf returns the code of the first AppError in the chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool  { return CodeOf(err) == CodeNotFound }
func IsNetwork(err error) bool   { return CodeOf(err) == CodeNetwork }
func IsCancelled(err error) bool { return CodeOf(err) == CodeCancelled }
func IsOffline(err error) bool   { return CodeOf(err) == CodeOffline }
