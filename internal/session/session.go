// Package session implements the per-session registry of spec.md §4.8:
// isolated per-session memory, tool overlay, preset overlay, config
// override, and an MCP client stub, keyed by session ID.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AmritaBot/AmritaCore/internal/preset"
	"github.com/AmritaBot/AmritaCore/internal/toolset"
	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// MCPClient is an interface-only stub for the Model Context Protocol
// client each session may hold (spec.md §4.8 Non-goals: "no MCP wire
// protocol implementation" — connections are opaque handles here).
type MCPClient interface {
	Connect(script string) error
	Close() error
}

// Data is the container for all data scoped to one session, mirroring
// original_source's SessionData dataclass.
type Data struct {
	SessionID string
	Memory    types.MemoryModel
	Presets   *preset.Registry
	Config    types.AmritaConfig
	MCP       []MCPClient
	CreatedAt time.Time
	touchedAt time.Time
}

// Registry tracks every live session's Data under session isolation
// (I3): no two sessions ever share a *Data, a Memory slice backing
// array, or a Presets map. Grounded on the teacher's
// internal/sessions.MemoryStore (clone-on-read/write) and
// original_source's SessionsManager (idempotent init/drop).
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Data
	tools    *toolset.Registry
}

// NewRegistry returns an empty session registry backed by the given
// global tool registry (session-scoped tool overlays register into it
// under each session's ID).
func NewRegistry(tools *toolset.Registry) *Registry {
	return &Registry{sessions: make(map[string]*Data), tools: tools}
}

// New allocates a fresh session ID and initializes it, returning the ID
// (original_source's SessionsManager.new_session).
func (r *Registry) New(cfg types.AmritaConfig) string {
	id := uuid.NewString()
	r.Init(id, cfg)
	return id
}

// Init idempotently ensures sessionID has Data — calling Init twice for
// the same ID is a no-op on the second call (R2: idempotent Init).
func (r *Registry) Init(sessionID string, cfg types.AmritaConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; ok {
		return
	}
	now := time.Now()
	r.sessions[sessionID] = &Data{
		SessionID: sessionID,
		Memory:    types.MemoryModel{},
		Presets:   preset.NewRegistry(),
		Config:    cfg,
		CreatedAt: now,
		touchedAt: now,
	}
}

// Get returns the session's Data, and whether it was found. The pointer
// returned is the registry's own live value — callers mutating Memory or
// Config through it are mutating this session's state, never another
// session's (I3).
func (r *Registry) Get(sessionID string) (*Data, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.sessions[sessionID]
	return d, ok
}

// Touch updates a session's last-activity timestamp, used by the idle
// reaper to decide what to drop.
func (r *Registry) Touch(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.sessions[sessionID]; ok {
		d.touchedAt = time.Now()
	}
}

// Drop tears down a session: its Data entry and its tool-registry
// overlay. Idempotent — dropping an already-absent session is a no-op
// (R3: idempotent Drop).
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if r.tools != nil {
		r.tools.DropSession(sessionID)
	}
}

// List returns every live session ID.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// IdleSince returns the session IDs whose last Touch predates cutoff,
// for the idle-session reaper.
func (r *Registry) IdleSince(cutoff time.Time) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var idle []string
	for id, d := range r.sessions {
		if d.touchedAt.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	return idle
}
