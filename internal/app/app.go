// Package app wires the runtime's leaf packages into the programmatic
// API surface named by spec.md §6: Init/LoadAmrita/SetConfig/GetConfig,
// preset/session registries, and ChatTurn construction.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/AmritaBot/AmritaCore/internal/adapter"
	"github.com/AmritaBot/AmritaCore/internal/builtin"
	"github.com/AmritaBot/AmritaCore/internal/config"
	"github.com/AmritaBot/AmritaCore/internal/hook"
	"github.com/AmritaBot/AmritaCore/internal/memory"
	"github.com/AmritaBot/AmritaCore/internal/preset"
	"github.com/AmritaBot/AmritaCore/internal/session"
	"github.com/AmritaBot/AmritaCore/internal/tokenizer"
	"github.com/AmritaBot/AmritaCore/internal/toolset"
	"github.com/AmritaBot/AmritaCore/internal/turn"
	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// ErrConfigRequired is returned by LoadAmrita when called before
// SetConfig, matching spec.md §6's "must follow SetConfig" ordering.
var ErrConfigRequired = errors.New("app: LoadAmrita called before SetConfig")

// App is the single process-wide runtime instance: every registry a
// ChatTurn needs, plus the config/preset/session facades spec.md §6
// names directly.
type App struct {
	Config   *config.Registry
	Presets  *preset.Registry
	Sessions *session.Registry
	Tools    *toolset.Registry
	Hooks    *hook.Registry
	Adapters *adapter.Registry
	Memory   *memory.Compressor
	Metrics  *turn.Metrics
	Logger   *slog.Logger

	initOnce sync.Once
	loaded   bool
}

// New assembles an App with empty registries. Call Init before using it.
func New(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	tools := toolset.NewRegistry()
	return &App{
		Config:   config.NewRegistry(),
		Presets:  preset.NewRegistry(),
		Sessions: session.NewRegistry(tools),
		Tools:    tools,
		Hooks:    hook.NewRegistry(logger),
		Adapters: adapter.NewRegistry(),
		Logger:   logger,
	}
}

// Init prepares built-ins, the tokenizer-backed compressor, and the
// reference OpenAI-compatible adapter. Idempotent (spec.md §6).
func (a *App) Init() {
	a.initOnce.Do(func() {
		builtin.RegisterAll(a.Tools)
		_ = a.Adapters.Register(adapter.NewOpenAICompatible(), false)
		a.Memory = memory.NewCompressor(tokenizer.Default(), a.summarize)
		a.Metrics = turn.NewMetrics()
	})
}

// summarize backs memory.Summarizer with a real completion call through
// whichever adapter/preset the process default names, so compression's
// abstract-generation step is a real model call rather than a stub
// (spec.md §4.7: "the compressor issues its own completion call").
func (a *App) summarize(ctx context.Context, messages []types.Message) (types.UniResponse, error) {
	p, err := a.Presets.Default()
	if err != nil {
		return types.UniResponse{}, err
	}
	ad, err := a.Adapters.Get(p.Protocol)
	if err != nil {
		return types.UniResponse{}, err
	}
	llm := types.DefaultAmritaConfig().LLM
	events, err := ad.CallAPI(ctx, p, messages, nil, llm)
	if err != nil {
		return types.UniResponse{}, err
	}
	for ev := range events {
		if ev.Err != nil {
			return types.UniResponse{}, ev.Err
		}
		if ev.Final != nil {
			return *ev.Final, nil
		}
	}
	return types.UniResponse{}, errors.New("app: summarizer stream closed without a terminal event")
}

// LoadAmrita loads MCP clients per the current config. Must follow
// SetConfig. MCP wire connections are a Non-goal (internal/session's
// MCPClient stub records the intent to connect without any wire
// protocol), so this only validates that the configured scripts are
// well-formed and marks the App loaded.
func (a *App) LoadAmrita(ctx context.Context) error {
	cfg, err := a.Config.Get()
	if err != nil {
		return ErrConfigRequired
	}
	if cfg.Function.AgentMCPClientEnable {
		a.Logger.InfoContext(ctx, "app: MCP client enabled, scripts registered as stub handles",
			"scripts", cfg.Function.AgentMCPServerScripts)
	}
	a.loaded = true
	return nil
}

// SetConfig installs the process-wide config.
func (a *App) SetConfig(cfg types.AmritaConfig) { a.Config.Set(cfg) }

// GetConfig returns the process-wide config.
func (a *App) GetConfig() (types.AmritaConfig, error) { return a.Config.Get() }

// ConfigLookup implements spec.md §4.2's ConfigLookup(session_id?):
// per-session overrides live in SessionData (set at session.Init, or by
// a caller-supplied config.Options.Config at ChatTurn construction) and
// shadow the process-wide config Registry.Get returns. sessionID=="" or
// an unknown session ID falls back to the global config.
func (a *App) ConfigLookup(sessionID string) (types.AmritaConfig, error) {
	if sessionID != "" {
		if data, ok := a.Sessions.Get(sessionID); ok {
			return data.Config, nil
		}
	}
	return a.Config.Get()
}

// NewChatTurn constructs a ChatTurn engine wired to this App's
// registries (spec.md §6's ChatTurn constructor). When the caller
// doesn't supply an explicit config override, the turn falls back to
// ConfigLookup's override-or-global resolution rather than a hardcoded
// default — so a brand-new auto-created session picks up the process's
// current global config instead of silently ignoring it.
func (a *App) NewChatTurn(opts turn.Options) (*turn.Engine, error) {
	if opts.Config == nil {
		if cfg, err := a.ConfigLookup(opts.SessionID); err == nil {
			opts.Config = &cfg
		}
	}
	return turn.New(a.Sessions, a.Presets, a.Adapters, a.Tools, a.Hooks, a.Memory, a.Metrics, opts)
}
