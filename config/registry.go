package config

import (
	"fmt"
	"slices"
	"sync"

	"github.com/zoobzio/nexus"
)

// Registry maps stage names to stages. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	stages map[string]nexus.Stage
}

// NewRegistry returns an empty stage registry.
func NewRegistry() *Registry {
	return &Registry{stages: make(map[string]nexus.Stage)}
}

// DefaultRegistry returns a registry holding the built-in stages under
// their own names.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range []nexus.Stage{nexus.InputStage{}, nexus.TransformStage{}, nexus.OutputStage{}} {
		r.Register(s.Name(), s)
	}
	return r
}

// Register adds a stage under name, replacing any earlier registration.
func (r *Registry) Register(name string, stage nexus.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = make(map[string]nexus.Stage)
	}
	r.stages[name] = stage
}

// Get returns the stage registered under name.
func (r *Registry) Get(name string) (nexus.Stage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stages[name]
	return s, ok
}

// MustGet is Get that panics on unknown names.
func (r *Registry) MustGet(name string) nexus.Stage {
	s, ok := r.Get(name)
	if !ok {
		panic(fmt.Sprintf("config: stage %q not registered", name))
	}
	return s
}

// Names returns the registered stage names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stages))
	for n := range r.stages {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
