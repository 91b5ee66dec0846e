// Package errors provides structured, code-based error handling shared by the
// projector service and its storage backends.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Projection lookups
	CodeNotFound      Code = "NOT_FOUND"
	CodeGuardMismatch Code = "GUARD_MISMATCH"

	// Event intake
	CodeMalformedEvent   Code = "MALFORMED_EVENT"
	CodeUnknownEventType Code = "UNKNOWN_EVENT_TYPE"

	// Persistence
	CodeStoreFailure Code = "STORE_FAILURE"
)

// Skippable reports whether the code describes an expected outcome that a
// propagator recovers from locally.
func (c Code) Skippable() bool {
	switch c {
	case CodeNotFound, CodeGuardMismatch:
		return true
	default:
		return false
	}
}

// Retryable reports whether redelivering the same event can succeed.
//
// Malformed payloads and unknown types will fail identically on every
// delivery, so dispatchers should dead-letter them instead of retrying.
func (c Code) Retryable() bool {
	switch c {
	case CodeStoreFailure, CodeUnknown:
		return true
	default:
		return false
	}
}
