package toolset

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

type entry struct {
	tool          Tool
	enableIf      EnableFunc
	customContext bool
}

// Option customizes a tool's registration.
type Option func(*entry)

// WithEnableIf gates the tool's visibility on the active config
// (spec.md §4.5).
func WithEnableIf(f EnableFunc) Option {
	return func(e *entry) { e.enableIf = f }
}

// WithCustomContext marks a tool as wanting an EventHandle at invocation
// time, for tools that stream interim output mid-call.
func WithCustomContext() Option {
	return func(e *entry) { e.customContext = true }
}

// Registry is a two-layer tool registry: a process-wide global layer and
// per-session overlays that shadow it by name (spec.md §4.5). Safe for
// concurrent use, following the teacher's ToolRegistry
// (internal/agent/tool_registry.go).
type Registry struct {
	mu       sync.RWMutex
	global   map[string]*entry
	sessions map[string]map[string]*entry
}

// NewRegistry returns an empty two-layer registry.
func NewRegistry() *Registry {
	return &Registry{
		global:   make(map[string]*entry),
		sessions: make(map[string]map[string]*entry),
	}
}

// RegisterGlobal registers a tool visible to every session unless
// shadowed by a session-scoped registration of the same name.
func (r *Registry) RegisterGlobal(tool Tool, opts ...Option) {
	e := &entry{tool: tool}
	for _, opt := range opts {
		opt(e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global[tool.Name()] = e
}

// RegisterSession registers a tool scoped to one session, shadowing any
// global tool of the same name for that session only (I3: session
// isolation — other sessions never see this registration).
func (r *Registry) RegisterSession(sessionID string, tool Tool, opts ...Option) {
	e := &entry{tool: tool}
	for _, opt := range opts {
		opt(e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		sess = make(map[string]*entry)
		r.sessions[sessionID] = sess
	}
	sess[tool.Name()] = e
}

// DropSession discards every session-scoped tool for sessionID, called
// when the owning session is torn down.
func (r *Registry) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Lookup resolves a tool by name, preferring a session-scoped
// registration over the global layer.
func (r *Registry) Lookup(sessionID, name string) (Tool, bool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sess, ok := r.sessions[sessionID]; ok {
		if e, ok := sess[name]; ok {
			return e.tool, e.customContext, true
		}
	}
	if e, ok := r.global[name]; ok {
		return e.tool, e.customContext, true
	}
	return nil, false, false
}

// ListActive returns the tools exposed to the model this iteration,
// applying enable_if predicates and tool_calling_mode semantics: "none"
// yields nothing, "agent" yields every enabled tool, and "rag" yields
// every enabled tool until ragUsed is true, at which point the entire
// tool set is withdrawn for the remainder of the turn — spec.md §4.5's
// "the dispatcher allows at most one invocation per turn (post-
// invocation, the tool set is removed from the next request)" and
// §4.9's pseudocode (`if tool_calling_mode == rag: tools := []`) both
// name the whole set, not just the tool that was called. Results are
// name-sorted for deterministic schema ordering.
func (r *Registry) ListActive(sessionID string, cfg types.AmritaConfig, ragUsed bool) []Tool {
	if cfg.Function.ToolCallingMode == types.ToolCallingNone {
		return nil
	}
	if cfg.Function.ToolCallingMode == types.ToolCallingRAG && ragUsed {
		return nil
	}

	r.mu.RLock()
	merged := make(map[string]*entry, len(r.global))
	for name, e := range r.global {
		merged[name] = e
	}
	for name, e := range r.sessions[sessionID] {
		merged[name] = e
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]Tool, 0, len(names))
	for _, name := range names {
		e := merged[name]
		if e.enableIf != nil && !e.enableIf(cfg) {
			continue
		}
		tools = append(tools, e.tool)
	}
	return tools
}

// Invoke resolves and calls a tool for a single model-issued ToolCall.
// Lookup failures and argument-schema violations are reported as
// non-aborting tool-result errors, not returned errors — a malformed
// call must not fail the whole turn (spec.md §4.5).
func (r *Registry) Invoke(ctx context.Context, sessionID string, call types.ToolCall, handle EventHandle) types.ToolResult {
	tool, custom, ok := r.Lookup(sessionID, call.Function.Name)
	if !ok {
		return errResult(call, fmt.Sprintf("tool not found: %s", call.Function.Name))
	}

	args := json.RawMessage(call.Function.Arguments)
	if len(call.Function.Arguments) == 0 {
		args = json.RawMessage("{}")
	}
	if err := ValidateArguments(tool.Schema(), args); err != nil {
		return errResult(call, fmt.Sprintf("invalid arguments: %s", err))
	}

	h := handle
	if !custom {
		h = nil
	}
	out, err := tool.Invoke(ctx, args, h)
	if err != nil {
		return errResult(call, fmt.Sprintf("tool error: %s", err))
	}
	return types.ToolResult{Role: types.RoleTool, Name: tool.Name(), Content: out, ToolCallID: call.ID}
}

func errResult(call types.ToolCall, message string) types.ToolResult {
	return types.ToolResult{
		Role:       types.RoleTool,
		Name:       call.Function.Name,
		Content:    message,
		ToolCallID: call.ID,
	}
}
