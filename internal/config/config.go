// Package config manages the process-wide AmritaConfig (spec.md §4.2).
// Per-session overrides are not duplicated here: spec.md §4.2 states
// "per-session overrides live in SessionData and shadow global values",
// so the override store is session.Data.Config, not a second map in
// this package. App.ConfigLookup implements the ConfigLookup(session_id?)
// operation by combining this registry's global value with the
// session's own config.
package config

import (
	"errors"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// ErrNotInitialized is returned by Get before Set has ever been called,
// matching spec.md §7's NotInitialized error kind.
var ErrNotInitialized = errors.New("config: not initialized, call Set first")

// Registry holds the process-wide "current config". It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	current *types.AmritaConfig
}

// NewRegistry returns an uninitialized registry; Get fails until Set is
// called, matching the source's lifecycle (spec.md §4.2).
func NewRegistry() *Registry {
	return &Registry{}
}

// Set installs the process-wide config, moving the registry from
// "initialized" to "ready".
func (r *Registry) Set(cfg types.AmritaConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = &cfg
}

// Get returns the process-wide config, or ErrNotInitialized if Set has
// never been called.
func (r *Registry) Get() (types.AmritaConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return types.AmritaConfig{}, ErrNotInitialized
	}
	return *r.current, nil
}

// MustGet returns the process-wide config, defaulting to
// types.DefaultAmritaConfig() if uninitialized. Used by call sites that
// tolerate a default rather than surfacing NotInitialized (e.g. tests).
func (r *Registry) MustGet() types.AmritaConfig {
	cfg, err := r.Get()
	if err != nil {
		return types.DefaultAmritaConfig()
	}
	return cfg
}

// LoadYAML reads an AmritaConfig from a YAML file and installs it as the
// process-wide config, matching the teacher's config-file loading
// convention (internal/config/config.go).
func (r *Registry) LoadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg := types.DefaultAmritaConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	r.Set(cfg)
	return nil
}
