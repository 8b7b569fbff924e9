package navigation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/fluxorio/mtp/pkg/navigation"

// Transition outcomes reported to the Observer
const (
	OutcomeEntered   = "entered"
	OutcomeUnchanged = "unchanged"
	OutcomeForbidden = "forbidden"
	OutcomeBlocked   = "blocked"
	OutcomeFailed    = "failed"
)

// Observer receives one call per navigation attempt
type Observer interface {
	ObserveTransition(from, to, outcome string, duration time.Duration)
}

// SessionOptions configures a Session
type SessionOptions struct {
	// ID identifies the session in logs and transitions; generated when empty
	ID string

	Logger   core.Logger
	Observer Observer
}

// Session is one client's navigation host. At most one leaf state is active
// at a time; its ancestors are active with it.
type Session struct {
	id       string
	registry *Registry
	logger   core.Logger
	observer Observer
	tracer   trace.Tracer

	mu     sync.Mutex
	active []string // root first
	closed bool
}

// NewSession creates a session navigating the states of registry
func NewSession(registry *Registry, opts SessionOptions) *Session {
	core.FailFastIf(registry == nil, "navigation registry cannot be nil")

	id := opts.ID
	if id == "" {
		id = core.NewRequestID()
	}
	logger := opts.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	return &Session{
		id:       id,
		registry: registry,
		logger:   logger.WithFields(map[string]interface{}{"session": id}),
		observer: opts.Observer,
		tracer:   otel.Tracer(tracerName),
	}
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Current returns the active leaf state, "" when nothing is active
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.active) == 0 {
		return ""
	}
	return s.active[len(s.active)-1]
}

// Active returns the active state path, root first
func (s *Session) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.active...)
}

// GoURL navigates to the state bound to url
func (s *Session) GoURL(ctx context.Context, url string, p Principal) (State, error) {
	state, ok := s.registry.Match(url)
	if !ok {
		return State{}, fmt.Errorf("url %s: %w", url, ErrStateNotFound)
	}
	return s.Go(ctx, state.Name, p)
}

// Go navigates to the named state.
//
// Order: authorize, run the resolvers of every state being entered, exit
// the states being left (deepest first), enter the new states (shallowest
// first). Ancestors shared by the old and new state stay active untouched.
// Navigating to the active state is a no-op.
func (s *Session) Go(ctx context.Context, name string, p Principal) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	from := s.currentLocked()

	ctx, span := s.tracer.Start(ctx, "navigation.go",
		trace.WithAttributes(
			attribute.String("navigation.session", s.id),
			attribute.String("navigation.from", from),
			attribute.String("navigation.to", name),
		),
	)
	defer span.End()

	state, outcome, err := s.goLocked(ctx, name, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WithContext(ctx).Info(fmt.Sprintf("navigation %s -> %s %s: %v", from, name, outcome, err))
	} else {
		s.logger.WithContext(ctx).Debug(fmt.Sprintf("navigation %s -> %s %s", from, name, outcome))
	}
	span.SetAttributes(attribute.String("navigation.outcome", outcome))

	if s.observer != nil {
		s.observer.ObserveTransition(from, name, outcome, time.Since(start))
	}
	return state, err
}

func (s *Session) goLocked(ctx context.Context, name string, p Principal) (State, string, error) {
	if s.closed {
		return State{}, OutcomeFailed, ErrSessionClosed
	}

	target, ok := s.registry.lookup(name)
	if !ok {
		return State{}, OutcomeFailed, fmt.Errorf("%s: %w", name, ErrStateNotFound)
	}
	if target.state.Abstract {
		return State{}, OutcomeFailed, fmt.Errorf("%s: %w", name, ErrAbstractState)
	}
	if n := len(s.active); n > 0 && s.active[n-1] == name {
		return cloneState(target.state), OutcomeUnchanged, nil
	}
	if !allowed(target.roles, p) {
		return State{}, OutcomeForbidden, fmt.Errorf("%s: %w", name, ErrForbidden)
	}

	common := commonPrefix(s.active, target.path)
	entering := target.path[common:]

	tr := &Transition{
		ID:        core.NewRequestID(),
		SessionID: s.id,
		From:      s.currentLocked(),
		To:        name,
		Principal: p,
	}

	entries := make([]*entry, 0, len(entering))
	for _, stateName := range entering {
		e, ok := s.registry.lookup(stateName)
		if !ok {
			return State{}, OutcomeFailed, fmt.Errorf("%s: %w", stateName, ErrStateNotFound)
		}
		entries = append(entries, e)
	}

	for _, e := range entries {
		for _, resolve := range e.resolvers {
			if err := resolve(ctx, tr); err != nil {
				return State{}, OutcomeBlocked, fmt.Errorf("resolve %s: %w", e.state.Name, err)
			}
		}
	}

	if err := s.exitLocked(ctx, tr, common); err != nil {
		return State{}, OutcomeFailed, err
	}

	for i, e := range entries {
		if e.hooks.OnEnter != nil {
			if err := e.hooks.OnEnter(ctx, tr); err != nil {
				s.active = append([]string(nil), target.path[:common+i]...)
				return State{}, OutcomeFailed, fmt.Errorf("enter %s: %w", e.state.Name, err)
			}
		}
	}
	s.active = append([]string(nil), target.path...)
	return cloneState(target.state), OutcomeEntered, nil
}

// exitLocked exits active states deeper than keep, deepest first. On a hook
// failure the failing state and its ancestors remain active.
func (s *Session) exitLocked(ctx context.Context, tr *Transition, keep int) error {
	for i := len(s.active) - 1; i >= keep; i-- {
		name := s.active[i]
		e, ok := s.registry.lookup(name)
		if ok && e.hooks.OnExit != nil {
			if err := e.hooks.OnExit(ctx, tr); err != nil {
				s.active = s.active[:i+1]
				return fmt.Errorf("exit %s: %w", name, err)
			}
		}
		s.active = s.active[:i]
	}
	return nil
}

// Close exits every active state and rejects further navigation.
// Every exit hook runs even if an earlier one fails; the first error is returned.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	tr := &Transition{ID: core.NewRequestID(), SessionID: s.id, From: s.currentLocked()}
	var firstErr error
	for i := len(s.active) - 1; i >= 0; i-- {
		name := s.active[i]
		if e, ok := s.registry.lookup(name); ok && e.hooks.OnExit != nil {
			if err := e.hooks.OnExit(ctx, tr); err != nil {
				s.logger.Error(fmt.Sprintf("exit %s on close: %v", name, err))
				if firstErr == nil {
					firstErr = fmt.Errorf("exit %s: %w", name, err)
				}
			}
		}
	}
	s.active = nil
	return firstErr
}

func (s *Session) currentLocked() string {
	if len(s.active) == 0 {
		return ""
	}
	return s.active[len(s.active)-1]
}

func commonPrefix(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}
