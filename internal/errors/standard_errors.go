// Package errors provides the standardized error taxonomy of the strategy gateway
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents semantic error codes for consistent error handling
type ErrorCode string

const (
	// Validation errors, raised before any model call
	ErrorCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrorCodeRequiredField   ErrorCode = "REQUIRED_FIELD"
	ErrorCodeInvalidValue    ErrorCode = "INVALID_VALUE"

	// Generation errors
	ErrorCodeTransportError ErrorCode = "TRANSPORT_ERROR"
	ErrorCodeParseError     ErrorCode = "PARSE_ERROR"

	// Resource errors
	ErrorCodeNotFound  ErrorCode = "NOT_FOUND"
	ErrorCodeConflict  ErrorCode = "CONFLICT"
	ErrorCodeForbidden ErrorCode = "FORBIDDEN"

	// System errors
	ErrorCodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrorCodeTimeout            ErrorCode = "TIMEOUT"
	ErrorCodeDatabaseError      ErrorCode = "DATABASE_ERROR"
)

// StandardError represents the unified error structure returned by every layer
type StandardError struct {
	ErrorInfo ErrorDetails `json:"error"`
	cause     error
}

// Error implements the Go error interface
func (e *StandardError) Error() string {
	return e.ErrorInfo.Message
}

// Unwrap returns the underlying cause, if any
func (e *StandardError) Unwrap() error {
	return e.cause
}

// ErrorDetails contains the detailed error information
type ErrorDetails struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// ValidationDetail provides specific validation error information
type ValidationDetail struct {
	Field  string      `json:"field"`
	Reason string      `json:"reason"`
	Value  interface{} `json:"value,omitempty"`
}

// ParseDetail describes why a model reply was rejected
type ParseDetail struct {
	Task        string   `json:"task"`
	Reason      string   `json:"reason"`
	MissingKeys []string `json:"missing_keys,omitempty"`
}

// NewStandardError creates a new standardized error
func NewStandardError(code ErrorCode, message string, details interface{}) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// NewValidationError creates a validation error with field details
func NewValidationError(field, reason string, value interface{}) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeValidationError,
			Message: fmt.Sprintf("Validation failed for field '%s': %s", field, reason),
			Details: ValidationDetail{
				Field:  field,
				Reason: reason,
				Value:  value,
			},
		},
	}
}

// NewRequiredFieldError creates an error for missing required fields
func NewRequiredFieldError(field string) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeRequiredField,
			Message: fmt.Sprintf("Required field '%s' is missing", field),
			Details: ValidationDetail{
				Field:  field,
				Reason: "missing_required_field",
			},
		},
	}
}

// NewParseError creates an error for a model reply that failed parsing or validation.
// The message is the task's fixed parse message so callers see one string per task.
func NewParseError(task, message, reason string, missing ...string) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeParseError,
			Message: message,
			Details: ParseDetail{
				Task:        task,
				Reason:      reason,
				MissingKeys: missing,
			},
		},
	}
}

// NewTransportError wraps a network or provider failure
func NewTransportError(err error) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeTransportError,
			Message: err.Error(),
		},
		cause: err,
	}
}

// NewNotFoundError creates a not found error for a resource
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeNotFound,
			Message: fmt.Sprintf("%s not found with ID: %s", resource, id),
			Details: map[string]interface{}{
				"resource": resource,
				"id":       id,
			},
		},
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, originalError error) *StandardError {
	details := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if originalError != nil {
		details["original_error"] = originalError.Error()
	}

	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeInternalError,
			Message: message,
			Details: details,
		},
		cause: originalError,
	}
}

// WithTraceID returns a copy of the error carrying the trace ID.
// Predefined errors are shared, so the receiver is never modified.
func (e *StandardError) WithTraceID(traceID string) *StandardError {
	clone := *e
	clone.ErrorInfo.TraceID = traceID
	return &clone
}

// Code returns the error code of err if it is, or wraps, a StandardError
func Code(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.ErrorInfo.Code
	}
	return ""
}

// AsStandardError returns err as a StandardError, wrapping unknown errors as internal
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err.Error(), err)
}

// ToHTTPStatus maps StandardError to appropriate HTTP status code
func (e *StandardError) ToHTTPStatus() int {
	switch e.ErrorInfo.Code {
	case ErrorCodeValidationError, ErrorCodeRequiredField, ErrorCodeInvalidValue:
		return http.StatusBadRequest
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeParseError, ErrorCodeTransportError:
		return http.StatusBadGateway
	case ErrorCodeServiceUnavailable, ErrorCodeConfiguration:
		return http.StatusServiceUnavailable
	case ErrorCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrorCodeInternalError, ErrorCodeDatabaseError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts StandardError to JSON bytes
func (e *StandardError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WriteHTTPError writes StandardError as HTTP response
func (e *StandardError) WriteHTTPError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")

	if e.ErrorInfo.TraceID != "" {
		w.Header().Set("X-Trace-ID", e.ErrorInfo.TraceID)
	}

	w.WriteHeader(e.ToHTTPStatus())

	jsonBytes, _ := e.ToJSON()
	_, _ = w.Write(jsonBytes)
}

// Predefined common errors for convenience
var (
	ErrSessionIDRequired = NewRequiredFieldError("session_id")
	ErrTextRequired      = NewRequiredFieldError("text")
	ErrEditTokenInvalid  = NewStandardError(ErrorCodeForbidden, "Edit token does not match this strategy", nil)
	ErrAPIKeyMissing     = NewStandardError(ErrorCodeConfiguration, "AI API key is not configured; text feedback is unavailable", nil)
)

// IsValidationError checks if the error is a validation-related error
func IsValidationError(err *StandardError) bool {
	return err.ErrorInfo.Code == ErrorCodeValidationError ||
		err.ErrorInfo.Code == ErrorCodeRequiredField ||
		err.ErrorInfo.Code == ErrorCodeInvalidValue
}

// IsGenerationError checks if the error came from the model round trip
func IsGenerationError(err *StandardError) bool {
	return err.ErrorInfo.Code == ErrorCodeTransportError ||
		err.ErrorInfo.Code == ErrorCodeParseError
}

func IsSystemError(err *StandardError) bool {
	return err.ErrorInfo.Code == ErrorCodeInternalError ||
		err.ErrorInfo.Code == ErrorCodeServiceUnavailable ||
		err.ErrorInfo.Code == ErrorCodeTimeout ||
		err.ErrorInfo.Code == ErrorCodeDatabaseError ||
		err.ErrorInfo.Code == ErrorCodeConfiguration
}
