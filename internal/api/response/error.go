// Package response provides the JSON envelopes written by every API handler.
package response

import (
	"encoding/json"
	"net/http"
	"time"

	gwerrors "product-strategy-gateway/internal/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     gwerrors.ErrorDetails `json:"error"`
	Timestamp string                `json:"timestamp"`
	RequestID string                `json:"request_id,omitempty"`
}

// SuccessResponse represents a standardized success response
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// WriteError writes err as an error envelope. Errors that are not StandardErrors
// are reported as internal errors.
func WriteError(w http.ResponseWriter, err error) {
	stdErr := gwerrors.AsStandardError(err)
	if requestID := getRequestID(w); requestID != "" && stdErr.ErrorInfo.TraceID == "" {
		stdErr = stdErr.WithTraceID(requestID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(stdErr.ToHTTPStatus())

	resp := ErrorResponse{
		Error:     stdErr.ErrorInfo,
		Timestamp: now(),
		RequestID: getRequestID(w),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// WriteSuccess writes a 200 response
func WriteSuccess(w http.ResponseWriter, data interface{}, message ...string) {
	WriteStatus(w, http.StatusOK, data, message...)
}

// WriteCreated writes a 201 response
func WriteCreated(w http.ResponseWriter, data interface{}, message ...string) {
	WriteStatus(w, http.StatusCreated, data, message...)
}

// WriteStatus writes data in the success envelope with the given status code
func WriteStatus(w http.ResponseWriter, statusCode int, data interface{}, message ...string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := SuccessResponse{
		Data:      data,
		Timestamp: now(),
	}
	if len(message) > 0 {
		resp.Message = message[0]
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// WriteBadRequest writes a 400 validation error for a malformed request
func WriteBadRequest(w http.ResponseWriter, field, reason string) {
	WriteError(w, gwerrors.NewValidationError(field, reason, nil))
}

// WriteNotFound writes a 404 for an unknown route
func WriteNotFound(w http.ResponseWriter, path string) {
	WriteError(w, gwerrors.NewNotFoundError("endpoint", path))
}

// WriteMethodNotAllowed writes a 405 error
func WriteMethodNotAllowed(w http.ResponseWriter, method string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	resp := ErrorResponse{
		Error: gwerrors.ErrorDetails{
			Code:    "METHOD_NOT_ALLOWED",
			Message: "Method " + method + " is not supported for this endpoint",
		},
		Timestamp: now(),
		RequestID: getRequestID(w),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// getRequestID reads the request ID the logging middleware set on the response
func getRequestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-ID")
}
