package fsm

import (
	"context"
	"errors"
	"testing"
)

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StateStopped State = "STOPPED"

	EventStart Event = "START"
	EventStop  Event = "STOP"
)

func TestFSM_Transitions(t *testing.T) {
	fsm := NewFSM(StateIdle)
	fsm.AddTransition(StateIdle, EventStart, StateRunning)
	fsm.AddTransition(StateRunning, EventStop, StateIdle)

	if fsm.CurrentState() != StateIdle {
		t.Errorf("expected state %s, got %s", StateIdle, fsm.CurrentState())
	}

	if err := fsm.Trigger(context.Background(), EventStart); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if fsm.CurrentState() != StateRunning {
		t.Errorf("expected state %s, got %s", StateRunning, fsm.CurrentState())
	}

	if err := fsm.Trigger(context.Background(), EventStop); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if fsm.CurrentState() != StateIdle {
		t.Errorf("expected state %s, got %s", StateIdle, fsm.CurrentState())
	}
}

func TestFSM_InvalidTransition(t *testing.T) {
	fsm := NewFSM(StateIdle)
	fsm.AddTransition(StateIdle, EventStart, StateRunning)

	if fsm.CanTrigger(EventStop) {
		t.Error("CanTrigger(STOP) should be false in IDLE")
	}

	err := fsm.Trigger(context.Background(), EventStop)
	var terr *TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if terr.From != StateIdle || terr.Event != EventStop {
		t.Errorf("TransitionError = %+v", terr)
	}
}

func TestFSM_Callbacks(t *testing.T) {
	fsm := NewFSM(StateIdle)
	fsm.AddTransition(StateIdle, EventStart, StateRunning)
	fsm.AddTransition(StateRunning, EventStop, StateStopped)

	var calls []string
	fsm.OnEnter(StateRunning, func(_ context.Context, from, to State, event Event) error {
		calls = append(calls, "enter "+string(to))
		return nil
	})
	fsm.OnExit(StateRunning, func(_ context.Context, from, to State, event Event) error {
		calls = append(calls, "exit "+string(from))
		return nil
	})

	_ = fsm.Trigger(context.Background(), EventStart)
	_ = fsm.Trigger(context.Background(), EventStop)

	want := []string{"enter RUNNING", "exit RUNNING"}
	if len(calls) != len(want) || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestFSM_EnterFailureRollsBack(t *testing.T) {
	fsm := NewFSM(StateIdle)
	fsm.AddTransition(StateIdle, EventStart, StateRunning)

	boom := errors.New("boom")
	fsm.OnEnter(StateRunning, func(_ context.Context, from, to State, event Event) error {
		return boom
	})

	if err := fsm.Trigger(context.Background(), EventStart); !errors.Is(err, boom) {
		t.Errorf("Trigger() error = %v, want boom", err)
	}
	if fsm.CurrentState() != StateIdle {
		t.Errorf("state = %s, want rollback to %s", fsm.CurrentState(), StateIdle)
	}
}

func TestFSM_ExitFailureBlocks(t *testing.T) {
	fsm := NewFSM(StateRunning)
	fsm.AddTransition(StateRunning, EventStop, StateStopped)
	fsm.OnExit(StateRunning, func(_ context.Context, from, to State, event Event) error {
		return errors.New("busy")
	})

	if err := fsm.Trigger(context.Background(), EventStop); err == nil {
		t.Error("Trigger() should fail when the exit callback fails")
	}
	if fsm.CurrentState() != StateRunning {
		t.Errorf("state = %s, want %s", fsm.CurrentState(), StateRunning)
	}
}
