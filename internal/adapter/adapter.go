// Package adapter implements the provider-agnostic model-adapter contract
// of spec.md §4.6: a per-tag protocol registry plus a streaming call
// contract of zero or more incremental chunks followed by exactly one
// terminal UniResponse.
package adapter

import (
	"context"
	"errors"
	"sync"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// ErrUnknownProtocol is returned by Registry.Get for an unregistered tag.
var ErrUnknownProtocol = errors.New("adapter: unknown protocol")

// ErrProtocolExists is returned by Registry.Register when tag is already
// bound and override was not requested.
var ErrProtocolExists = errors.New("adapter: protocol already registered")

// StreamEvent is one element of an Adapter.CallAPI stream. Exactly one of
// Text, ToolCallDelta, Final, or Err is set on any given event; a Final
// or Err event is always the last one sent before the channel closes
// (spec.md §4.6).
type StreamEvent struct {
	Text          string
	ToolCallDelta *types.ToolCall
	Final         *types.UniResponse
	Err           error
}

// Adapter converts spec-native messages/tools into one provider's wire
// protocol and streams back a provider-agnostic response.
type Adapter interface {
	// Protocol returns the tag this adapter registers under.
	Protocol() string
	// CallAPI issues one completion request. The returned channel is
	// always closed by the adapter, whether the call ends in a Final
	// event or an Err event.
	CallAPI(ctx context.Context, preset types.ModelPreset, messages []types.Message, tools []types.FunctionDefinitionSchema, llm types.LLMConfig) (<-chan StreamEvent, error)
}

// Registry maps protocol tags to Adapter implementations
// (spec.md §4.6: "protocol registry keyed by tag").
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty protocol registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register binds a to its Protocol() tag. If the tag is already bound,
// Register fails with ErrProtocolExists unless override is true, in
// which case the existing binding is replaced (spec.md §4.6).
func (r *Registry) Register(a Adapter, override bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag := a.Protocol()
	if _, exists := r.adapters[tag]; exists && !override {
		return ErrProtocolExists
	}
	r.adapters[tag] = a
	return nil
}

// Get resolves an adapter by protocol tag.
func (r *Registry) Get(tag string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[tag]
	if !ok {
		return nil, ErrUnknownProtocol
	}
	return a, nil
}
