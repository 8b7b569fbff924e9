package navigation

import (
	"fmt"
	"sync"
)

// entry is a registered state with its behaviour and derived data
type entry struct {
	state     State
	resolvers []Resolver
	hooks     Hooks
	path      []string // root first, ending with the state itself
	fullURL   string
	roles     []string
}

// Registry holds registered states. Parents must be registered before
// their children. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	byURL   map[string]string
	order   []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		byURL:   make(map[string]string),
	}
}

// Register adds a state together with its resolvers and hooks
func (r *Registry) Register(state State, resolvers []Resolver, hooks Hooks) error {
	if state.Name == "" {
		return ErrInvalidState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[state.Name]; exists {
		return fmt.Errorf("%s: %w", state.Name, ErrDuplicateState)
	}

	e := &entry{
		state:     cloneState(state),
		resolvers: append([]Resolver(nil), resolvers...),
		hooks:     hooks,
		fullURL:   state.URL,
		roles:     state.Roles,
	}

	if state.Parent != "" {
		parent, ok := r.entries[state.Parent]
		if !ok {
			return fmt.Errorf("%s (parent of %s): %w", state.Parent, state.Name, ErrUnknownParent)
		}
		e.path = append(append([]string(nil), parent.path...), state.Name)
		e.fullURL = parent.fullURL + state.URL
		if len(e.roles) == 0 {
			e.roles = parent.roles
		}
	} else {
		e.path = []string{state.Name}
	}
	e.roles = append([]string(nil), e.roles...)

	if !state.Abstract && e.fullURL != "" {
		if other, taken := r.byURL[e.fullURL]; taken {
			return fmt.Errorf("%s (state %s): %w", e.fullURL, other, ErrDuplicateURL)
		}
		r.byURL[e.fullURL] = state.Name
	}

	r.entries[state.Name] = e
	r.order = append(r.order, state.Name)
	return nil
}

// State returns a copy of the registered state descriptor
func (r *Registry) State(name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return State{}, false
	}
	return cloneState(e.state), true
}

// Match finds the navigable state bound to a full URL
func (r *Registry) Match(url string) (State, bool) {
	r.mu.RLock()
	name, ok := r.byURL[url]
	r.mu.RUnlock()
	if !ok {
		return State{}, false
	}
	return r.State(name)
}

// Describe returns the client view of a registered state
func (r *Registry) Describe(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.describe(), true
}

// Visible lists, in registration order, the navigable states the principal may enter
func (r *Registry) Visible(p Principal) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		if e.state.Abstract || !allowed(e.roles, p) {
			continue
		}
		out = append(out, e.describe())
	}
	return out
}

func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

func (e *entry) describe() Descriptor {
	return Descriptor{
		State:          cloneState(e.state),
		FullURL:        e.fullURL,
		EffectiveRoles: append([]string(nil), e.roles...),
	}
}

// allowed reports whether p may enter a state requiring roles
func allowed(roles []string, p Principal) bool {
	if len(roles) == 0 {
		return true
	}
	if p == nil {
		return false
	}
	return p.HasAnyRole(roles...)
}
