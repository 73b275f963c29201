package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardError_Creation(t *testing.T) {
	tests := []struct {
		name            string
		createError     func() *StandardError
		expectedCode    ErrorCode
		expectedMessage string
	}{
		{
			name: "validation error",
			createError: func() *StandardError {
				return NewValidationError("selectedModel", "must be a known monetization model", "subscription")
			},
			expectedCode:    ErrorCodeValidationError,
			expectedMessage: "Validation failed for field 'selectedModel': must be a known monetization model",
		},
		{
			name: "required field error",
			createError: func() *StandardError {
				return NewRequiredFieldError("productDescription")
			},
			expectedCode:    ErrorCodeRequiredField,
			expectedMessage: "Required field 'productDescription' is missing",
		},
		{
			name: "parse error",
			createError: func() *StandardError {
				return NewParseError("analysis", "Failed to parse analysis result", "missing_keys", "componentScores")
			},
			expectedCode:    ErrorCodeParseError,
			expectedMessage: "Failed to parse analysis result",
		},
		{
			name: "not found error",
			createError: func() *StandardError {
				return NewNotFoundError("strategy", "abc")
			},
			expectedCode:    ErrorCodeNotFound,
			expectedMessage: "strategy not found with ID: abc",
		},
		{
			name: "internal error",
			createError: func() *StandardError {
				return NewInternalError("Database connection failed", assert.AnError)
			},
			expectedCode:    ErrorCodeInternalError,
			expectedMessage: "Database connection failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.createError()

			assert.Equal(t, tt.expectedCode, err.ErrorInfo.Code)
			assert.Equal(t, tt.expectedMessage, err.ErrorInfo.Message)
			assert.NotNil(t, err.ErrorInfo.Details)
		})
	}
}

func TestStandardError_WithTraceID(t *testing.T) {
	base := NewRequiredFieldError("text")

	traced := base.WithTraceID("trace-123")

	assert.Equal(t, "trace-123", traced.ErrorInfo.TraceID)
	assert.Empty(t, base.ErrorInfo.TraceID, "shared errors must not be modified")
}

func TestStandardError_ToHTTPStatus(t *testing.T) {
	tests := []struct {
		name           string
		error          *StandardError
		expectedStatus int
	}{
		{"validation error returns bad request", NewValidationError("a", "b", nil), http.StatusBadRequest},
		{"required field error returns bad request", NewRequiredFieldError("a"), http.StatusBadRequest},
		{"parse error returns bad gateway", NewParseError("analysis", "m", "r"), http.StatusBadGateway},
		{"transport error returns bad gateway", NewTransportError(assert.AnError), http.StatusBadGateway},
		{"missing api key returns service unavailable", ErrAPIKeyMissing, http.StatusServiceUnavailable},
		{"edit token mismatch returns forbidden", ErrEditTokenInvalid, http.StatusForbidden},
		{"conflict returns conflict", NewStandardError(ErrorCodeConflict, "busy", nil), http.StatusConflict},
		{"unknown code returns internal server error", &StandardError{ErrorInfo: ErrorDetails{Code: "UNKNOWN"}}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedStatus, tt.error.ToHTTPStatus())
		})
	}
}

func TestStandardError_WriteHTTPError(t *testing.T) {
	recorder := httptest.NewRecorder()
	stdErr := NewRequiredFieldError("productDescription").WithTraceID("trace-1")

	stdErr.WriteHTTPError(recorder)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.Equal(t, "trace-1", recorder.Header().Get("X-Trace-ID"))

	var response StandardError
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, ErrorCodeRequiredField, response.ErrorInfo.Code)
	assert.Equal(t, stdErr.ErrorInfo.Message, response.ErrorInfo.Message)
}

func TestCodeAndAsStandardError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewParseError("feedback", "Failed to parse feedback", "not_json"))

	assert.Equal(t, ErrorCodeParseError, Code(wrapped))
	assert.Equal(t, ErrorCode(""), Code(assert.AnError))

	plain := AsStandardError(assert.AnError)
	assert.Equal(t, ErrorCodeInternalError, plain.ErrorInfo.Code)
	assert.ErrorIs(t, plain, assert.AnError)
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name         string
		error        *StandardError
		isValidation bool
		isGeneration bool
		isSystem     bool
	}{
		{"validation error", NewValidationError("a", "b", nil), true, false, false},
		{"required field error", NewRequiredFieldError("a"), true, false, false},
		{"parse error", NewParseError("analysis", "m", "r"), false, true, false},
		{"transport error", NewTransportError(assert.AnError), false, true, false},
		{"configuration error", ErrAPIKeyMissing, false, false, true},
		{"database error", &StandardError{ErrorInfo: ErrorDetails{Code: ErrorCodeDatabaseError}}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isValidation, IsValidationError(tt.error))
			assert.Equal(t, tt.isGeneration, IsGenerationError(tt.error))
			assert.Equal(t, tt.isSystem, IsSystemError(tt.error))
		})
	}
}

func TestGuard(t *testing.T) {
	t.Run("passes results through", func(t *testing.T) {
		got, err := Guard("generating analysis", func() (int, error) { return 42, nil })
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("relabels plain errors as transport failures", func(t *testing.T) {
		cause := stderrors.New("connection refused")

		got, err := Guard("generating analysis", func() (*int, error) { return nil, cause })

		require.Error(t, err)
		assert.Nil(t, got)
		assert.Equal(t, "Failed while generating analysis: connection refused", err.Error())
		assert.Equal(t, ErrorCodeTransportError, Code(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("keeps the code of standard errors", func(t *testing.T) {
		cause := NewParseError("analysis", "Failed to parse analysis result", "not_json")

		_, err := Guard("generating analysis", func() (string, error) { return "partial", cause })

		require.Error(t, err)
		assert.Equal(t, "Failed while generating analysis: Failed to parse analysis result", err.Error())
		assert.Equal(t, ErrorCodeParseError, Code(err))

		var stdErr *StandardError
		require.True(t, stderrors.As(err, &stdErr))
		assert.Equal(t, cause.ErrorInfo.Details, stdErr.ErrorInfo.Details)
	})
}

func TestWrapHelpers(t *testing.T) {
	assert.NoError(t, WrapDatabaseError(nil, "insert"))

	dbErr := WrapDatabaseError(stderrors.New("database is locked"), "insert")
	assert.Equal(t, ErrorCodeDatabaseError, Code(dbErr))
	assert.Equal(t, "database insert failed", dbErr.Error())

	timeoutErr := WrapContextError(fmt.Errorf("send: %w", context.DeadlineExceeded), "generating analysis")
	assert.Equal(t, ErrorCodeTimeout, Code(timeoutErr))
	assert.ErrorIs(t, timeoutErr, context.DeadlineExceeded)

	assert.Same(t, assert.AnError, WrapContextError(assert.AnError, "x"))
}
