package engine

import "errors"

// Engine error taxonomy. Network failures from the remote service are
// wrapped into these sentinels at the call site; they never escape as raw
// transport errors.
var (
	// ErrAttemptUnavailable means acquisition or content load failed.
	// The session retains no partial state; the caller exits to the test
	// list.
	ErrAttemptUnavailable = errors.New("attempt unavailable")

	// ErrSubmissionFailed means a per-problem or final submission call
	// failed. The session stays active so the user may retry.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrSessionNotActive is returned when an operation requires an
	// active session but the session is still loading or already ended.
	ErrSessionNotActive = errors.New("session is not active")
)
