package errors

import "errors"

// Session lifecycle errors
var (
	ErrSessionActive    = errors.New("a capture session is already active")
	ErrNoActiveSession  = errors.New("no active capture session")
	ErrSessionFinalized = errors.New("session already finalized")
	ErrPermissionDenied = errors.New("capture device permission denied")
	ErrQuotaExceeded    = errors.New("session quota exceeded, upgrade required")
)

// Validation errors (recoverable by user choice, not exception paths)
var (
	ErrTooShort    = errors.New("recording is too short")
	ErrTooFewWords = errors.New("recording contains too few words")
)

// Ingestion errors
var (
	ErrIngestionFatal = errors.New("speech capture failed")
)

// Persistence errors
var (
	ErrNetworkDegraded = errors.New("failed to reach the meeting store")
)

// IsValidationFailure reports whether err is a content validation failure
// that the user may resolve by continuing to capture or force-finalizing.
func IsValidationFailure(err error) bool {
	return errors.Is(err, ErrTooShort) || errors.Is(err, ErrTooFewWords)
}
