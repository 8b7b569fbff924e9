// Package navigation hosts navigable view states: a registry of state
// descriptors and a per-client Session that moves between them, enforcing
// a single active view, role requirements, pre-activation resolvers and
// enter/exit hooks along the state hierarchy.
package navigation

import (
	"context"
)

// View binds a named view slot to a template and a controller
type View struct {
	TemplateURL string `json:"templateUrl" yaml:"templateUrl"`
	Controller  string `json:"controller" yaml:"controller"`
}

// State is the static descriptor of a view state. It carries no behaviour;
// resolvers and hooks are attached when the state is registered.
type State struct {
	// Name uniquely identifies the state
	Name string `json:"name" yaml:"name"`

	// Parent names the parent state, "" for a root state
	Parent string `json:"parent,omitempty" yaml:"parent"`

	// URL is appended to the parent's URL
	URL string `json:"url,omitempty" yaml:"url"`

	// Abstract states group children and cannot be navigated to
	Abstract bool `json:"abstract,omitempty" yaml:"abstract"`

	// Roles lists the roles allowed to enter; empty inherits from the parent
	Roles []string `json:"roles,omitempty" yaml:"roles"`

	// PageTitle is a translation key
	PageTitle string `json:"pageTitle,omitempty" yaml:"pageTitle"`

	// Views maps view slots (e.g. "content@") to their template and controller
	Views map[string]View `json:"views,omitempty" yaml:"views"`
}

// Principal is the identity navigating. A nil Principal is anonymous.
type Principal interface {
	HasAnyRole(roles ...string) bool
}

// Transition describes a navigation in progress
type Transition struct {
	ID        string
	SessionID string
	From      string
	To        string
	Principal Principal
}

// Resolver runs before a state is entered. A failing resolver blocks the
// transition and the previous view stays active.
type Resolver func(ctx context.Context, tr *Transition) error

// Hook is a lifecycle callback
type Hook func(ctx context.Context, tr *Transition) error

// Hooks are the enter/exit callbacks of a state. Either may be nil.
type Hooks struct {
	OnEnter Hook
	OnExit  Hook
}

// Descriptor is a registered state as exposed to clients
type Descriptor struct {
	State
	FullURL        string   `json:"fullUrl,omitempty"`
	EffectiveRoles []string `json:"effectiveRoles,omitempty"`
}

func cloneState(s State) State {
	out := s
	if s.Roles != nil {
		out.Roles = append([]string(nil), s.Roles...)
	}
	if s.Views != nil {
		out.Views = make(map[string]View, len(s.Views))
		for k, v := range s.Views {
			out.Views[k] = v
		}
	}
	return out
}
