/*
Package apperr defines the centralized error classification used across the
ingestion pipeline.

It provides a rich error type that bridges the gap between low-level
transport/decoding errors and the pipeline's skip/retry/abort decisions.

Architecture:

  - AppError: a struct containing a machine-readable Kind, a human-readable
    Message, and the underlying Cause.
  - Classification: every AppError carries a [Kind] the pipeline switches on
    to decide whether to skip the current post, retry the call, or abort
    the run.

Every error a source or destination adapter returns to the ingestion
pipeline should be wrapped as an [AppError] so the pipeline never has to
guess at retryability from a bare error string.
*/
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an [AppError] for pipeline decision-making.
type Kind string

const (
	// KindNotFound means the requested resource does not exist at the
	// remote end; the pipeline treats this as "nothing to merge against".
	KindNotFound Kind = "NOT_FOUND"

	// KindConflict means the remote end rejected the write because of a
	// concurrent modification (e.g. a tag's primary name changed mid-push).
	// It is not retryable; a caller that can recover re-reads and retries
	// on its own.
	KindConflict Kind = "CONFLICT"

	// KindValidation means the payload the adapter built was rejected by
	// the remote end as malformed; retrying without changes will not help.
	KindValidation Kind = "VALIDATION"

	// KindRateLimited means the remote end asked the caller to slow down;
	// the retry loop waits RetryAfterSeconds before attempting the call again.
	KindRateLimited Kind = "RATE_LIMITED"

	// KindUnavailable means the remote end is unreachable or returned a
	// transient server error; the call is retryable.
	KindUnavailable Kind = "UNAVAILABLE"

	// KindMissingData means the source sidecar lacked a field the adapter
	// needed (e.g. no MD5) and the post should be skipped, not retried.
	KindMissingData Kind = "MISSING_DATA"

	// KindInternal means an unexpected, non-classified error occurred.
	KindInternal Kind = "INTERNAL"
)

// AppError is the canonical error type for the ingestion pipeline.
//
// # Security
//
// The Cause field is for server-side logging only; adapters should not
// format it into any payload sent to a remote destination.
type AppError struct {
	// Kind is the machine-readable classification used for retry/skip decisions.
	Kind Kind
	// Message is a human-readable description, safe to log.
	Message string
	// RetryAfterSeconds is set for [KindRateLimited] errors when the
	// remote end specified a cooldown.
	RetryAfterSeconds int
	// ServerName is the destination's own error envelope name (the `name`
	// field of a `{name, description}` body, e.g. "TagNotFoundError"),
	// when the error originated from a decoded destination response. A
	// caller that needs to distinguish between different 4xx causes (as
	// szurubooru's tag-conflict retry does) switches on this rather than
	// parsing Message.
	ServerName string
	// Cause is the underlying error, used for logging and [errors.Unwrap].
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Constructors

// NotFound creates a [KindNotFound] error for a named resource.
func NotFound(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

// Conflict creates a [KindConflict] error, optionally wrapping cause.
func Conflict(msg string, cause error) *AppError {
	return &AppError{Kind: KindConflict, Message: msg, Cause: cause}
}

// Validation creates a [KindValidation] error.
func Validation(msg string) *AppError {
	return &AppError{Kind: KindValidation, Message: msg}
}

// ServerEnvelope creates an error of kind from a decoded destination error
// envelope, preserving its server-assigned name for callers that need to
// branch on the specific failure (e.g. szurubooru's tag-conflict retry).
func ServerEnvelope(kind Kind, serverName, description string) *AppError {
	return &AppError{Kind: kind, Message: description, ServerName: serverName}
}

// RateLimited creates a [KindRateLimited] error carrying the remote end's
// requested cooldown.
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Kind:              KindRateLimited,
		Message:           fmt.Sprintf("rate limited, retry in %ds", retryAfterSeconds),
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// Unavailable creates a [KindUnavailable] error wrapping a transport cause.
func Unavailable(msg string, cause error) *AppError {
	return &AppError{Kind: KindUnavailable, Message: msg, Cause: cause}
}

// MissingData creates a [KindMissingData] error for a field absent in the
// sidecar metadata.
func MissingData(field string) *AppError {
	return &AppError{Kind: KindMissingData, Message: "missing required field: " + field}
}

// MissingFile creates a [KindMissingData] error for a post whose
// LocalFile does not exist on disk; the push for that item is aborted
// rather than retried, per spec §4.7.3/§7.
func MissingFile(path string) *AppError {
	return &AppError{Kind: KindMissingData, Message: "local file does not exist: " + path}
}

// Internal creates a [KindInternal] error wrapping an unexpected cause.
func Internal(cause error) *AppError {
	return &AppError{Kind: KindInternal, Message: "unexpected internal error", Cause: cause}
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsRetryable reports whether err should be retried rather than skipped.
// Unclassified errors are treated as retryable, since they are assumed to
// be raw transport failures until an adapter classifies them otherwise.
func IsRetryable(err error) bool {
	ae := As(err)
	if ae == nil {
		return true
	}
	switch ae.Kind {
	case KindRateLimited, KindUnavailable:
		return true
	default:
		return false
	}
}
