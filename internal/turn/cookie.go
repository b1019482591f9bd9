package turn

import "github.com/AmritaBot/AmritaCore/internal/hook"

// CookieLeakKind is the hook.Kind a CookieLeakEvent is dispatched under
// (spec.md §4.9's "made observable via an event" diagnostic).
const CookieLeakKind hook.Kind = "cookie_leak"

// CookieLeakEvent reports that a turn's response contained the
// prompt-injection detection marker. The response is still delivered to
// the consumer; this is a diagnostic, not an abort.
type CookieLeakEvent struct {
	SessionID string
	StreamID  string
	Content   string
}
