package turn

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AmritaBot/AmritaCore/internal/adapter"
	"github.com/AmritaBot/AmritaCore/internal/hook"
	"github.com/AmritaBot/AmritaCore/internal/memory"
	"github.com/AmritaBot/AmritaCore/internal/preset"
	"github.com/AmritaBot/AmritaCore/internal/session"
	"github.com/AmritaBot/AmritaCore/internal/toolset"
	"github.com/AmritaBot/AmritaCore/pkg/types"
)

const thinkAndReasonTool = "think_and_reason"
const agentStopTool = "agent_stop"

// Callback receives every Chunk of a turn's output under a per-turn lock,
// serially (spec.md §4.9's callback delivery mode).
type Callback func(Chunk)

type sinkKind int

const (
	sinkNone sinkKind = iota
	sinkCallback
	sinkQueue
)

// Options configures one ChatTurn (spec.md §4.9 Construction).
type Options struct {
	SessionID        string
	UserInput        string
	Train            map[types.Role]string
	Config           *types.AmritaConfig
	Preset           *types.ModelPreset
	HookArgs         []any
	HookKwargs       map[string]any
	ExceptionIgnored []error
	AutoCreateSession bool
	QueueSize         int
	OverflowQueueSize int
}

// Engine drives a single ChatTurn's state machine: Created -> Running ->
// (LoopIter)* -> Finalizing -> Done | Failed (spec.md §4.9).
type Engine struct {
	streamID  string
	sessionID string
	userInput string
	train     map[types.Role]string
	presetOverride *types.ModelPreset
	cfg       types.AmritaConfig
	hookArgs  []any
	hookKwargs map[string]any
	exceptionIgnored []error

	sessions  *session.Registry
	presets   *preset.Registry
	adapters  *adapter.Registry
	tools     *toolset.Registry
	hooks     *hook.Registry
	compressor *memory.Compressor
	metrics   *Metrics

	data *session.Data

	mu    sync.Mutex
	state State

	sinkMu sync.Mutex
	sink   sinkKind
	callbackMu sync.Mutex
	callback   Callback
	queue      *boundedQueue

	consumeMu sync.Mutex
	consumed  bool

	cookieLeaked bool
	lastResponse string
	err          error
	done         chan struct{}

	createdAt  time.Time
	lastCallAt time.Time
}

// New constructs a ChatTurn against sessionID. If the session is unknown
// and opts.AutoCreateSession is false, New fails with ErrSessionUnknown.
func New(
	sessions *session.Registry,
	presets *preset.Registry,
	adapters *adapter.Registry,
	tools *toolset.Registry,
	hooks *hook.Registry,
	compressor *memory.Compressor,
	metrics *Metrics,
	opts Options,
) (*Engine, error) {
	data, ok := sessions.Get(opts.SessionID)
	if !ok {
		if !opts.AutoCreateSession {
			return nil, ErrSessionUnknown
		}
		cfg := types.DefaultAmritaConfig()
		if opts.Config != nil {
			cfg = *opts.Config
		}
		sessions.Init(opts.SessionID, cfg)
		data, _ = sessions.Get(opts.SessionID)
	}

	cfg := data.Config
	if opts.Config != nil {
		cfg = *opts.Config
	}

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = 25
	}
	overflowSize := opts.OverflowQueueSize
	if overflowSize <= 0 {
		overflowSize = 45
	}

	now := time.Now()
	return &Engine{
		streamID:         uuid.NewString(),
		sessionID:        opts.SessionID,
		userInput:        opts.UserInput,
		train:            opts.Train,
		presetOverride:   opts.Preset,
		cfg:              cfg,
		hookArgs:         opts.HookArgs,
		hookKwargs:       opts.HookKwargs,
		exceptionIgnored: opts.ExceptionIgnored,
		sessions:         sessions,
		presets:          presets,
		adapters:         adapters,
		tools:            tools,
		hooks:            hooks,
		compressor:       compressor,
		metrics:          metrics,
		data:             data,
		state:            StateCreated,
		queue:            newBoundedQueue(queueSize, overflowSize),
		done:             make(chan struct{}),
		createdAt:        now,
		lastCallAt:       now,
	}, nil
}

// StreamID implements hook.ChatContext.
func (e *Engine) StreamID() string { return e.streamID }

// SessionID implements hook.ChatContext.
func (e *Engine) SessionID() string { return e.sessionID }

// State reports the current state-machine node.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the terminal error, if the turn ended in StateFailed.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// SetCallback switches this turn to callback delivery mode. It fails
// with ErrSinkAlreadyChosen if queue-mode consumption already started
// (spec.md §4.9: the two delivery modes are mutually exclusive per turn).
func (e *Engine) SetCallback(fn Callback) error {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	if e.sink == sinkQueue {
		return ErrSinkAlreadyChosen
	}
	e.sink = sinkCallback
	e.callback = fn
	return nil
}

func (e *Engine) resolveQueueSink() bool {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	if e.sink == sinkCallback {
		return false
	}
	e.sink = sinkQueue
	return true
}

// emit delivers one Chunk to whichever sink this turn resolved to.
func (e *Engine) emit(c Chunk) {
	e.sinkMu.Lock()
	sink := e.sink
	cb := e.callback
	e.sinkMu.Unlock()

	if sink == sinkCallback {
		e.callbackMu.Lock()
		cb(c)
		e.callbackMu.Unlock()
		return
	}
	e.queue.push(c)
}

// Begin transitions Created -> Running and starts the agent loop in the
// background. Chunks become available via ResponseGenerator/FullResponse
// (queue mode) or the registered Callback (callback mode).
func (e *Engine) Begin(ctx context.Context) {
	e.mu.Lock()
	if e.state != StateCreated {
		e.mu.Unlock()
		return
	}
	e.state = StateRunning
	e.mu.Unlock()

	e.sessions.Touch(e.sessionID)
	e.resolveQueueSink()

	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	spanCtx, stop := e.metrics.startTurn(ctx, e.streamID, e.sessionID)
	err := e.loop(spanCtx)
	if err != nil && ctx.Err() != nil {
		err = &CancelledError{Reason: ctx.Err().Error()}
	}
	stop(err)

	e.mu.Lock()
	if err != nil {
		e.state = StateFailed
		e.err = err
	} else {
		e.state = StateDone
	}
	e.mu.Unlock()

	e.emit(Chunk{EOF: true, Err: err})
	e.queue.close()
}

// ResponseGenerator returns a channel of Chunks for queue-mode
// consumption. One-shot: a second call, or a call after SetCallback, is
// an error.
func (e *Engine) ResponseGenerator() (<-chan Chunk, error) {
	e.sinkMu.Lock()
	if e.sink == sinkCallback {
		e.sinkMu.Unlock()
		return nil, ErrCallbackModeActive
	}
	e.sinkMu.Unlock()

	e.consumeMu.Lock()
	if e.consumed {
		e.consumeMu.Unlock()
		return nil, ErrAlreadyConsumed
	}
	e.consumed = true
	e.consumeMu.Unlock()

	out := make(chan Chunk)
	go func() {
		defer close(out)
		for {
			c, ok := e.queue.pop()
			if !ok {
				return
			}
			out <- c
			if c.EOF {
				return
			}
		}
	}()
	return out, nil
}

// FullResponse drains the turn to completion and returns the
// concatenated text of every chunk, or the terminal error.
func (e *Engine) FullResponse() (string, error) {
	ch, err := e.ResponseGenerator()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	var termErr error
	for c := range ch {
		b.WriteString(c.Text)
		if c.Err != nil {
			termErr = c.Err
		}
	}
	return b.String(), termErr
}

// YieldResponse implements toolset.EventHandle, letting a custom-context
// tool stream interim output mid-invocation.
func (e *Engine) YieldResponse(ctx context.Context, response types.UniResponse) error {
	e.emit(Chunk{Text: response.Content})
	return nil
}

// activeTools resolves the tool list for one loop iteration, honoring
// agent_thought_mode=chat's "hide reasoning tools" rule and
// tool_calling_mode=rag's "whole tool set withdrawn after one
// invocation" rule (spec.md §4.5, §4.9).
func (e *Engine) activeTools(ragUsed bool) []types.FunctionDefinitionSchema {
	active := e.tools.ListActive(e.sessionID, e.cfg, ragUsed)
	schemas := make([]types.FunctionDefinitionSchema, 0, len(active))
	hideReasoning := e.cfg.Function.AgentThoughtMode == types.ThoughtChat
	for _, t := range active {
		if hideReasoning && t.Name() == thinkAndReasonTool {
			continue
		}
		schemas = append(schemas, t.Schema())
	}
	return schemas
}

// buildMessages assembles the outbound request per use_minimal_context
// (spec.md §4.9: "[system-prompts] + [last user message]" vs.
// "[system-prompts] + messages"). firstCall gates the reasoning-mode
// directive, which is injected only before the first adapter call of the
// turn, not on every tool-call iteration.
func (e *Engine) buildMessages(firstCall bool) []types.Message {
	e.mu.Lock()
	e.lastCallAt = time.Now()
	e.mu.Unlock()

	var out []types.Message
	roles := make([]string, 0, len(e.train))
	for role := range e.train {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	for _, role := range roles {
		out = append(out, types.Message{Role: types.Role(role), Content: types.NewStringContent(e.train[types.Role(role)])})
	}
	if e.data.Memory.Abstract != "" {
		out = append(out, types.SystemMessage("Summary of earlier conversation: "+e.data.Memory.Abstract))
	}

	if firstCall && e.cfg.Function.AgentThoughtMode == types.ThoughtReasoning {
		out = append(out, types.SystemMessage(fmt.Sprintf("Think first by calling %s before answering.", thinkAndReasonTool)))
	}

	if e.cfg.Cookie.EnableCookie && e.cfg.Cookie.Cookie != "" {
		out = append(out, types.SystemMessage("session-marker: "+e.cfg.Cookie.Cookie))
	}

	if e.cfg.Function.UseMinimalContext {
		if last := lastUserMessage(e.data.Memory.Messages); last != nil {
			out = append(out, *last)
		}
		return out
	}
	return append(out, e.data.Memory.Messages...)
}

func lastUserMessage(messages []types.Message) *types.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			m := messages[i]
			return &m
		}
	}
	return nil
}

// currentPreset resolves the preset for one adapter call: an explicit
// per-turn override first, then the session's own preset registry
// default, then the global registry default.
func (e *Engine) currentPreset() (types.ModelPreset, error) {
	if e.presetOverride != nil {
		return *e.presetOverride, nil
	}
	if e.data.Presets != nil {
		if p, err := e.data.Presets.Default(); err == nil {
			return p, nil
		}
	}
	return e.presets.Default()
}

// loop runs the full agent loop of spec.md §4.9 until FINAL, a forced
// stop, or an unrecoverable error.
func (e *Engine) loop(ctx context.Context) error {
	e.data.Memory.Append(types.UserMessage(e.userInput))

	ragUsed := false
	term := 0
	toolCallCount := 0
	isRAG := e.cfg.Function.ToolCallingMode == types.ToolCallingRAG
	isReasoningRequired := e.cfg.Function.AgentThoughtMode == types.ThoughtReasoningRequired
	reasoned := false

	for iteration := 0; ; iteration++ {
		messages := e.buildMessages(iteration == 0)
		tools := e.activeTools(ragUsed)

		pre := hook.PreCompletionEvent{Messages: messages, ChatObject: e}
		if err := e.hooks.Trigger(ctx, &pre, e.cfg, e.triggerOpts()); err != nil {
			return err
		}

		resp, err := e.callAdapterWithFallback(ctx, pre.Messages, tools, &term)
		if err != nil {
			return err
		}

		e.data.Memory.Append(types.AssistantMessage(resp.Content, resp.ToolCalls))
		e.lastResponse = resp.Content

		comp := hook.CompletionEvent{Response: resp, ChatObject: e}
		if err := e.hooks.Trigger(ctx, &comp, e.cfg, e.triggerOpts()); err != nil {
			return err
		}

		if containsToolCall(resp.ToolCalls, thinkAndReasonTool) {
			reasoned = true
		}

		// reasoning-required rejects any iteration that hasn't invoked
		// think_and_reason at least once yet this turn, including an
		// immediate zero-tool-call final answer — spec.md §4.9's "the
		// loop rejects any iteration whose tool calls do not include
		// think_and_reason" applies just as much to no tool calls at all
		// as to the wrong ones. Once think_and_reason has fired once,
		// enforcement stops so a later plain-text final answer can still
		// end the turn. This must run before the empty-tool-calls early
		// exit below.
		if isReasoningRequired && !reasoned {
			if len(resp.ToolCalls) > 0 {
				e.data.Memory.Append(types.ToolResult{
					Role:       types.RoleTool,
					Name:       thinkAndReasonTool,
					Content:    "reasoning required",
					ToolCallID: resp.ToolCalls[0].ID,
				}.AsMessage())
			} else {
				e.data.Memory.Append(types.SystemMessage("reasoning required: call think_and_reason before answering"))
			}
			term++
			continue
		}

		if len(resp.ToolCalls) == 0 {
			break
		}

		stopped := false
		for _, tc := range resp.ToolCalls {
			if tc.Function.Name == agentStopTool {
				stopped = true
				break
			}
			if isRAG && ragUsed {
				// The tool set was already withdrawn for this turn; a
				// model that still issues a call gets a rejection result
				// rather than a second invocation, holding rag's
				// at-most-one-per-turn bound across iterations too.
				e.data.Memory.Append(types.ToolResult{
					Role:       types.RoleTool,
					Name:       tc.Function.Name,
					Content:    "tool unavailable: rag mode allows one tool invocation per turn",
					ToolCallID: tc.ID,
				}.AsMessage())
				continue
			}
			result := e.tools.Invoke(ctx, e.sessionID, tc, e)
			e.data.Memory.Append(result.AsMessage())
			toolCallCount++

			if toolCallCount >= e.cfg.Function.AgentMaxToolCalls {
				stopped = true
				break
			}
			if isRAG {
				// rag mode allows at most one invocation per turn: stop
				// consuming this response's remaining tool calls, and
				// withdraw the whole tool set starting next iteration
				// (activeTools(ragUsed)) rather than ending the turn here —
				// the model still gets one more request to produce a final
				// answer with no tools available.
				ragUsed = true
				break
			}
		}
		if stopped {
			break
		}

		term++
	}

	e.finalizeCookieCheck(ctx)

	e.data.Memory.Time = float64(time.Now().Unix())
	trainTokens := 0
	for _, content := range e.train {
		trainTokens += len(strings.Fields(content))
	}
	e.compressor.Enforce(ctx, &e.data.Memory, e.cfg, trainTokens)

	return nil
}

func (e *Engine) triggerOpts() hook.TriggerOptions {
	return hook.TriggerOptions{Args: e.hookArgs, Kwargs: e.hookKwargs, ExceptionIgnored: e.exceptionIgnored}
}

func containsToolCall(calls []types.ToolCall, name string) bool {
	for _, c := range calls {
		if c.Function.Name == name {
			return true
		}
	}
	return false
}

// callAdapterWithFallback issues one completion, retrying through
// FallbackEvent dispatch on adapter error up to max_retries times
// (spec.md §4.9 Fallback semantics).
func (e *Engine) callAdapterWithFallback(ctx context.Context, messages []types.Message, tools []types.FunctionDefinitionSchema, term *int) (types.UniResponse, error) {
	for {
		p, err := e.currentPreset()
		if err != nil {
			return types.UniResponse{}, fmt.Errorf("turn: no preset available: %w", err)
		}

		resp, callErr := e.callOnce(ctx, p, messages, tools)
		if callErr == nil {
			return resp, nil
		}

		fb := &hook.FallbackEvent{Preset: &p, ExcInfo: callErr, Config: e.cfg, Context: e, Term: *term}
		if hookErr := e.hooks.Trigger(ctx, fb, e.cfg, e.triggerOpts()); hookErr != nil {
			return types.UniResponse{}, hookErr
		}
		if failed, reason := fb.Failed(); failed {
			return types.UniResponse{}, &FallbackFailedError{Reason: reason, Cause: callErr}
		}
		if *term >= e.cfg.LLM.MaxRetries {
			return types.UniResponse{}, callErr
		}
		e.presetOverride = fb.Preset
		*term++
		e.metrics.recordFallback()
	}
}

// callOnce issues a single adapter call and drains its stream into the
// turn's chunk sink, returning the terminal UniResponse.
func (e *Engine) callOnce(ctx context.Context, p types.ModelPreset, messages []types.Message, tools []types.FunctionDefinitionSchema) (types.UniResponse, error) {
	a, err := e.adapters.Get(p.Protocol)
	if err != nil {
		return types.UniResponse{}, err
	}

	callCtx := ctx
	if e.cfg.LLM.LLMTimeoutS > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.LLM.LLMTimeoutS*float64(time.Second)))
		defer cancel()
	}

	events, err := a.CallAPI(callCtx, p, messages, tools, e.cfg.LLM)
	if err != nil {
		return types.UniResponse{}, err
	}

	for ev := range events {
		if ev.Err != nil {
			return types.UniResponse{}, ev.Err
		}
		if ev.Text != "" {
			e.emit(Chunk{Text: ev.Text})
		}
		// ev.ToolCallDelta is intentionally not forwarded: spec.md §4.6
		// promises the consumer-facing stream "text chunks only for the
		// assistant-content path, never tool-call JSON fragments". The
		// adapter already accumulates these fragments internally and
		// surfaces the assembled calls on ev.Final.ToolCalls below.
		if ev.Final != nil {
			return *ev.Final, nil
		}
	}
	return types.UniResponse{}, fmt.Errorf("turn: adapter stream closed without a terminal event")
}

// finalizeCookieCheck implements spec.md §4.9's leaked-prompt-injection
// diagnostic: it never blocks delivery, only reports.
func (e *Engine) finalizeCookieCheck(ctx context.Context) {
	if !e.cfg.Cookie.EnableCookie || e.cfg.Cookie.Cookie == "" {
		return
	}
	if !strings.Contains(e.lastResponse, e.cfg.Cookie.Cookie) {
		return
	}
	e.cookieLeaked = true
	e.metrics.recordCookieLeak()
	event := hook.CustomEvent{
		EventKind: CookieLeakKind,
		Payload: CookieLeakEvent{
			SessionID: e.sessionID,
			StreamID:  e.streamID,
			Content:   e.lastResponse,
		},
	}
	_ = e.hooks.Trigger(ctx, event, e.cfg, e.triggerOpts())
}
