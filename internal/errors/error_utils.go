package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
)

// Standard error wrapping functions for common components

// WrapDatabaseError wraps database operation errors
func WrapDatabaseError(err error, operation string) error {
	if err == nil {
		return nil
	}

	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeDatabaseError,
			Message: fmt.Sprintf("database %s failed", operation),
			Details: map[string]interface{}{
				"operation": operation,
				"temporary": isTemporaryError(err),
			},
		},
		cause: err,
	}
}

// WrapContextError turns an expired or cancelled context into a timeout error.
// Other errors are returned unchanged.
func WrapContextError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, context.DeadlineExceeded) && !stderrors.Is(err, context.Canceled) {
		return err
	}

	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    ErrorCodeTimeout,
			Message: fmt.Sprintf("%s did not complete: %s", operation, err.Error()),
		},
		cause: err,
	}
}

// isTemporaryError checks if an error is temporary
func isTemporaryError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	temporaryPatterns := []string{
		"connection refused",
		"timeout",
		"temporary failure",
		"service unavailable",
		"database is locked",
	}

	for _, pattern := range temporaryPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
