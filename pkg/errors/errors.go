// Package errors provides severity-aware structured errors for the
// forecasting pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error codes
const (
	ErrCodeDataSource   = "DATA_SOURCE_FAILED"
	ErrCodeModelFit     = "MODEL_FIT_FAILED"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeConfig       = "CONFIG_INVALID"
)

// Error is a structured error with pipeline context. Scope identifies
// the forecast slot ("global" or a service name) the failure belongs to.
type Error struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Scope    string   `json:"scope,omitempty"`
	Err      error    `json:"-"`
}

func (e *Error) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("[%s] %s: %s (scope: %s)", e.Severity, e.Code, e.Message, e.Scope)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewDataSourceError wraps a billing query failure with the scope and
// window that produced it. Not retried by the engine.
func NewDataSourceError(scope, window string, err error) *Error {
	return &Error{
		Code:     ErrCodeDataSource,
		Message:  fmt.Sprintf("billing query failed for window %s: %v", window, err),
		Severity: SeverityError,
		Scope:    scope,
		Err:      err,
	}
}

// NewModelFitError wraps a model fit or predict failure. Callers should
// present it like insufficient data but log it distinctly.
func NewModelFitError(scope string, err error) *Error {
	return &Error{
		Code:     ErrCodeModelFit,
		Message:  fmt.Sprintf("model fit failed: %v", err),
		Severity: SeverityError,
		Scope:    scope,
		Err:      err,
	}
}

// NewInvalidInputError reports a caller mistake (negative totals,
// non-positive horizons).
func NewInvalidInputError(msg string) *Error {
	return &Error{
		Code:     ErrCodeInvalidInput,
		Message:  msg,
		Severity: SeverityError,
	}
}

// IsCode reports whether any error in err's chain carries the given code.
func IsCode(err error, code string) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}
