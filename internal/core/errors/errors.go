package errors

import "errors"

// Pipeline error taxonomy. The failure boundary is per-record for decode
// problems, per-transaction within a pass, and per-pass at the worker level;
// none of these should ever take the process down.
var (
	// ErrConfiguration marks a missing program identity or interface schema.
	// Fatal to a pass, surfaced to operators, not retried automatically.
	ErrConfiguration = errors.New("indexer configuration invalid")

	// ErrTransientFetch marks a network/timeout failure talking to the
	// ledger. The pass aborts, the cursor stays put, the next tick retries.
	ErrTransientFetch = errors.New("transient ledger fetch failure")

	// ErrDecode marks a malformed or unrecognized record. Only that record
	// is dropped; siblings in the same transaction still apply.
	ErrDecode = errors.New("record decode failed")

	// ErrApplyConflict marks a uniqueness violation on an additive key.
	// This is the expected idempotence case and is treated as already
	// applied, not as a failure.
	ErrApplyConflict = errors.New("event already applied")

	// ErrStoreUnavailable marks a mirror write-path failure. The pass
	// aborts, the cursor stays put, the next tick retries.
	ErrStoreUnavailable = errors.New("mirror store unavailable")
)

const (
	HttpInternalError      = "internal_error"
	HttpInvalidRequest     = "invalid_request"
	HttpUnauthorizedError  = "unauthorized"
	HttpReplayBusyError    = "replay_busy"
	HttpConfigurationError = "indexer_not_configured"
	HttpNotFoundError      = "not_found"
)

// ErrorResponse is the error response body for HTTP endpoints.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
