package fsm

import (
	"context"
	"fmt"
	"sync"
)

// State represents a state in the machine
type State string

// Event represents an event that triggers a transition
type Event string

// Callback runs when a state is entered or left. A failing entry callback
// rolls the machine back to the state it came from.
type Callback func(ctx context.Context, from, to State, event Event) error

// FSM is a thread-safe finite state machine.
// Callbacks run while the machine lock is held, so transitions are serialized
// and a callback must not call back into the same FSM.
type FSM struct {
	currentState State
	transitions  map[State]map[Event]State
	onEnter      map[State]Callback
	onExit       map[State]Callback
	mu           sync.Mutex
}

// NewFSM creates a new FSM with the initial state
func NewFSM(initialState State) *FSM {
	return &FSM{
		currentState: initialState,
		transitions:  make(map[State]map[Event]State),
		onEnter:      make(map[State]Callback),
		onExit:       make(map[State]Callback),
	}
}

// AddTransition adds a valid transition
func (f *FSM) AddTransition(from State, event Event, to State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.transitions[from]; !ok {
		f.transitions[from] = make(map[Event]State)
	}
	f.transitions[from][event] = to
}

// OnEnter sets the callback executed when entering a state
func (f *FSM) OnEnter(state State, callback Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnter[state] = callback
}

// OnExit sets the callback executed when leaving a state
func (f *FSM) OnExit(state State, callback Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onExit[state] = callback
}

// CurrentState returns the current state
func (f *FSM) CurrentState() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.currentState
}

// Trigger fires an event. Exit callback of the current state runs first,
// then the entry callback of the target state.
func (f *FSM) Trigger(ctx context.Context, event Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	from := f.currentState
	to, ok := f.transitions[from][event]
	if !ok {
		return &TransitionError{From: from, Event: event}
	}

	if exit, ok := f.onExit[from]; ok {
		if err := exit(ctx, from, to, event); err != nil {
			return fmt.Errorf("exit %s: %w", from, err)
		}
	}

	f.currentState = to

	if enter, ok := f.onEnter[to]; ok {
		if err := enter(ctx, from, to, event); err != nil {
			f.currentState = from
			return fmt.Errorf("enter %s: %w", to, err)
		}
	}
	return nil
}

// CanTrigger checks if an event can be triggered from the current state
func (f *FSM) CanTrigger(event Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.transitions[f.currentState][event]
	return ok
}

// TransitionError is returned when an event is not permitted in the current state
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from state '%s' with event '%s'", e.From, e.Event)
}
