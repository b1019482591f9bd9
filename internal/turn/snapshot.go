package turn

import "time"

// Snapshot is a read-only, concurrency-safe view of a running turn's
// identifying and timing metadata for observability call sites that
// shouldn't reach into Engine's mutex-guarded internals directly
// (SPEC_FULL.md §5, mirroring original_source's ChatObjectMeta:
// stream_id, session_id, time, last_call).
type Snapshot struct {
	StreamID   string
	SessionID  string
	UserInput  string
	State      State
	CreatedAt  time.Time
	LastCallAt time.Time
}

// Snapshot takes a point-in-time copy of this turn's metadata, safe to
// call from any goroutine at any point in the turn's lifecycle.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		StreamID:   e.streamID,
		SessionID:  e.sessionID,
		UserInput:  e.userInput,
		State:      e.state,
		CreatedAt:  e.createdAt,
		LastCallAt: e.lastCallAt,
	}
}
