// Package preset manages named ModelPreset bundles and the process
// default selection (spec.md §4.3).
package preset

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/AmritaBot/AmritaCore/pkg/types"
)

// ErrNotFound is returned by Get/Default when no matching preset exists.
var ErrNotFound = errors.New("preset: not found")

// ErrNoDefault is returned by Default when no default name has been set.
var ErrNoDefault = errors.New("preset: no default preset configured")

// Registry is a keyed map of name -> ModelPreset with a nullable default
// name. Safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	presets     map[string]types.ModelPreset
	defaultName string
}

// NewRegistry returns an empty preset registry.
func NewRegistry() *Registry {
	return &Registry{presets: make(map[string]types.ModelPreset)}
}

// Add registers a preset under its Name, replacing any existing preset of
// the same name (spec.md §4.3: "duplicate Add(name) replaces").
func (r *Registry) Add(p types.ModelPreset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[p.Name] = p
	if r.defaultName == "" {
		r.defaultName = p.Name
	}
}

// Remove deletes a preset by name. Clears the default name if it was the
// removed preset.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.presets, name)
	if r.defaultName == name {
		r.defaultName = ""
	}
}

// Get returns a preset by name.
func (r *Registry) Get(name string) (types.ModelPreset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[name]
	if !ok {
		return types.ModelPreset{}, ErrNotFound
	}
	return p, nil
}

// Default returns the current default preset.
func (r *Registry) Default() (types.ModelPreset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return types.ModelPreset{}, ErrNoDefault
	}
	p, ok := r.presets[r.defaultName]
	if !ok {
		return types.ModelPreset{}, ErrNoDefault
	}
	return p, nil
}

// SetDefault marks an existing preset as the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.presets[name]; !ok {
		return ErrNotFound
	}
	r.defaultName = name
	return nil
}

// Names returns all registered preset names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	return names
}

// Load reads a single ModelPreset from a JSON file and registers it
// (spec.md §6: "Preset file: JSON document = serialization of
// ModelPreset; round-trippable").
func (r *Registry) Load(path string) (types.ModelPreset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ModelPreset{}, err
	}
	var p types.ModelPreset
	if err := json.Unmarshal(data, &p); err != nil {
		return types.ModelPreset{}, err
	}
	r.Add(p)
	return p, nil
}

// Save writes a single named preset to a JSON file.
func (r *Registry) Save(name, path string) error {
	p, err := r.Get(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
