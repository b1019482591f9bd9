// Package hook implements the event/Matcher subsystem with dependency
// injection described in spec.md §4.4: declarative handler registration,
// concurrent resolution of declared dependencies, and type-driven
// parameter binding.
package hook

import (
	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// Kind identifies an event's category. User-defined custom events may use
// any string not colliding with the built-in kinds below.
type Kind string

const (
	KindPreCompletion Kind = "pre_completion"
	KindCompletion    Kind = "completion"
	KindFallback      Kind = "fallback"
)

// Event is any value dispatchable through the Matcher pipeline.
type Event interface {
	Kind() Kind
}

// ChatContext is the minimal turn handle exposed to hooks — deliberately
// narrow so the hook package never imports the turn engine (spec.md §3:
// "Hooks and tools may receive a ChatTurn handle; they must not retain it
// past their invocation").
type ChatContext interface {
	StreamID() string
	SessionID() string
}

// PreCompletionEvent fires before the adapter is called, carrying the
// mutable outbound message list. Earlier handlers' mutations to Messages
// are visible to later handlers (spec.md §4.4, I4).
type PreCompletionEvent struct {
	Messages   []types.Message
	ChatObject ChatContext
}

// Kind implements Event.
func (PreCompletionEvent) Kind() Kind { return KindPreCompletion }

// CompletionEvent fires after a terminal UniResponse is received, before
// it is appended to memory. Handlers may rewrite Response.Content.
type CompletionEvent struct {
	Response   types.UniResponse
	ChatObject ChatContext
}

// Kind implements Event.
func (CompletionEvent) Kind() Kind { return KindCompletion }

// FallbackEvent fires when an adapter call fails. Handlers may mutate
// Preset to switch presets for the retry, or call Fail to abort the turn
// (spec.md §4.9).
type FallbackEvent struct {
	Preset  *types.ModelPreset
	ExcInfo error
	Config  types.AmritaConfig
	Context ChatContext
	Term    int

	failed     bool
	failReason string
}

// Kind implements Event.
func (*FallbackEvent) Kind() Kind { return KindFallback }

// Fail marks this fallback attempt as unrecoverable; the engine raises
// FallbackFailed and terminates the turn rather than retrying.
func (f *FallbackEvent) Fail(reason string) {
	f.failed = true
	f.failReason = reason
}

// Failed reports whether a handler called Fail.
func (f *FallbackEvent) Failed() (bool, string) {
	return f.failed, f.failReason
}

// CustomEvent is the escape hatch for application-defined event kinds
// (spec.md §4.4's "user-defined CustomEvent").
type CustomEvent struct {
	EventKind Kind
	Payload   any
}

// Kind implements Event.
func (c CustomEvent) Kind() Kind { return c.EventKind }
