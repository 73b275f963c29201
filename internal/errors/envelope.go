package errors

import (
	stderrors "errors"
	"fmt"
)

// Guard runs fn and relabels any failure as "Failed while {context}: {message}".
// The code of a StandardError cause is kept; any other cause becomes a transport error.
// Guard never retries and never suppresses.
func Guard[T any](context string, fn func() (T, error)) (T, error) {
	result, err := fn()
	if err == nil {
		return result, nil
	}

	var zero T
	return zero, Envelope(context, err)
}

// Envelope builds the uniform failure for err raised while doing context
func Envelope(context string, err error) *StandardError {
	code := ErrorCodeTransportError
	var details interface{}

	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		code = stdErr.ErrorInfo.Code
		details = stdErr.ErrorInfo.Details
	}

	return &StandardError{
		ErrorInfo: ErrorDetails{
			Code:    code,
			Message: fmt.Sprintf("Failed while %s: %s", context, err.Error()),
			Details: details,
		},
		cause: err,
	}
}
