package core

import "errors"

// Error taxonomy of the domain engine. Callers classify failures with
// errors.Is; everything is wrapped, never swallowed. ErrConflict and
// ErrTimeout are retryable after a re-read, the rest are terminal for the
// request.
var (
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflicting concurrent update")
	ErrUnsupportedKind   = errors.New("unsupported attachment kind")
	ErrTooLarge          = errors.New("attachment too large")
	ErrEmptyMessage      = errors.New("empty message body")
	ErrStorageFailure    = errors.New("storage failure")
	ErrTimeout           = errors.New("storage timeout")
)
