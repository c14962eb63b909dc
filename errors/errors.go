// Package errors carries the user-facing error type for the control
// surface. Every constructor maps one failure category to an HTTP status and
// an actionable message: retry, continue, or upgrade, never a raw code.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode identifies a failure category on the wire.
type ErrorCode string

const (
	CodeInternal         ErrorCode = "INTERNAL"
	CodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeSessionConflict  ErrorCode = "SESSION_CONFLICT"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeNetworkDegraded  ErrorCode = "NETWORK_DEGRADED"
	CodeIngestionFailed  ErrorCode = "INGESTION_FAILED"
)

// AppError is the application error type surfaced over HTTP.
type AppError struct {
	Raw      error             `json:"-"`
	HTTPCode int               `json:"-"`
	Code     ErrorCode         `json:"code"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error.
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     CodeInternal,
		Message:  "Something went wrong, please retry",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     CodeInvalidArgument,
		Message:  message,
	}
}

func ErrNotFound(resource string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     CodeNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
	}
}

// ErrSessionConflict covers starting while another session is live and
// operating on a session that already finalized.
func ErrSessionConflict(message string) AppError {
	return AppError{
		HTTPCode: http.StatusConflict,
		Code:     CodeSessionConflict,
		Message:  message,
	}
}

func ErrMicrophoneDenied(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusForbidden,
		Code:     CodePermissionDenied,
		Message:  "Microphone access was denied, grant permission and retry",
	}
}

func ErrQuotaExceeded(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusPaymentRequired,
		Code:     CodeQuotaExceeded,
		Message:  "Meeting quota reached, upgrade your plan to keep recording",
	}
}

// ErrValidationFailed is recoverable by user choice: continue capturing or
// force-finalize with the force flag.
func ErrValidationFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusUnprocessableEntity,
		Code:     CodeValidationFailed,
		Message:  "Recording is too short to save, continue capturing or stop with force",
	}
}

func ErrNetworkDegraded(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     CodeNetworkDegraded,
		Message:  "Could not reach the meeting store, your transcript is kept and will be retried",
	}
}

func ErrIngestionFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     CodeIngestionFailed,
		Message:  "Speech capture failed, stop and restart the session",
	}
}
