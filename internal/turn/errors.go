package turn

import (
	"errors"
	"fmt"
)

// ErrSessionUnknown is returned by New when session_id names no session
// and auto_create_session was false (spec.md §4.9 Construction).
var ErrSessionUnknown = errors.New("turn: unknown session and auto_create_session is false")

// ErrSinkAlreadyChosen is returned when SetCallback is called after the
// turn has already committed to queue mode, or vice versa — callback and
// queue delivery are mutually exclusive for one turn (SPEC_FULL.md §6's
// Open Question decision).
var ErrSinkAlreadyChosen = errors.New("turn: output sink already chosen for this turn")

// ErrAlreadyConsumed is returned by ResponseGenerator/FullResponse on a
// second call — both are one-shot consumers of the same underlying
// stream (spec.md §4.9).
var ErrAlreadyConsumed = errors.New("turn: response already consumed")

// ErrCallbackModeActive is returned by ResponseGenerator/FullResponse
// when the turn was configured with a callback — there is no queue to
// drain.
var ErrCallbackModeActive = errors.New("turn: callback mode has no response generator")

// FallbackFailedError is raised when a FallbackEvent handler calls Fail,
// terminating the turn instead of retrying (spec.md §7's FallbackFailed
// error kind).
type FallbackFailedError struct {
	Reason string
	Cause  error
}

func (e *FallbackFailedError) Error() string {
	return fmt.Sprintf("turn: fallback failed: %s: %v", e.Reason, e.Cause)
}

func (e *FallbackFailedError) Unwrap() error { return e.Cause }

// CancelledError reports external cancellation of a running turn
// (spec.md §5's cancellation semantics).
type CancelledError struct {
	Reason string
}

func (e *CancelledError) Error() string { return "turn: cancelled: " + e.Reason }
