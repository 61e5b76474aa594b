// Package tool defines the calling contract for step implementations and the
// registry the engine resolves them from
package tool

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/kode4food/waypoint/pkg/api"
)

type (
	// Func is a step implementation. It receives a snapshot of the run's
	// state and returns the partial state to merge back into it
	Func func(context.Context, *Call) (api.State, error)

	// Call carries everything a tool receives for one node visit
	Call struct {
		State  api.State
		Config map[string]any
		RunID  api.RunID
		NodeID api.NodeID
		Tool   api.ToolName
	}

	// Registry maps tool names to implementations. Registration may happen
	// while runs are reading from the registry
	Registry struct {
		tools map[api.ToolName]Func
		mu    sync.RWMutex
	}
)

var (
	ErrInvalidName = errors.New("tool name is required")
	ErrNilFunc     = errors.New("tool implementation is nil")
)

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: map[api.ToolName]Func{},
	}
}

// Register adds or replaces the implementation for a tool name
func (r *Registry) Register(name api.ToolName, fn Func) error {
	if name == "" {
		return ErrInvalidName
	}
	if fn == nil {
		return fmt.Errorf("%w: %s", ErrNilFunc, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = fn
	return nil
}

// MustRegister adds a tool and panics if the registration is invalid. It is
// meant for startup code registering compiled-in tools
func (r *Registry) MustRegister(name api.ToolName, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Unregister removes a tool from the registry
func (r *Registry) Unregister(name api.ToolName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the implementation registered for a tool name
func (r *Registry) Get(name api.ToolName) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tools[name]
	return fn, ok
}

// Names returns the registered tool names in sorted order
func (r *Registry) Names() []api.ToolName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tools))
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Static returns a tool that always produces the given output
func Static(output api.State) Func {
	return func(context.Context, *Call) (api.State, error) {
		return output.Snapshot(), nil
	}
}

// Simple adapts a state-only function to the Func contract
func Simple(fn func(api.State) (api.State, error)) Func {
	return func(_ context.Context, c *Call) (api.State, error) {
		return fn(c.State)
	}
}
