package concurrency

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBoundedMailbox_SendReceive(t *testing.T) {
	mb := NewBoundedMailbox(1)
	defer mb.Close()

	if err := mb.Send("first"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Buffer holds one message, the second send must not block
	if err := mb.Send("second"); !errors.Is(err, ErrMailboxFull) {
		t.Errorf("Send() on full mailbox error = %v, want ErrMailboxFull", err)
	}

	msg, err := mb.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if msg != "first" {
		t.Errorf("Receive() = %v, want first", msg)
	}
}

func TestBoundedMailbox_Close(t *testing.T) {
	mb := NewBoundedMailbox(4)
	mb.Close()
	mb.Close()

	if !mb.IsClosed() {
		t.Error("IsClosed() should be true after Close")
	}
	if err := mb.Send("x"); !errors.Is(err, ErrMailboxClosed) {
		t.Errorf("Send() after Close error = %v, want ErrMailboxClosed", err)
	}
	if _, err := mb.Receive(context.Background()); !errors.Is(err, ErrMailboxClosed) {
		t.Errorf("Receive() after Close error = %v, want ErrMailboxClosed", err)
	}
	select {
	case <-mb.Done():
	default:
		t.Error("Done() should be closed")
	}
}

func TestBoundedMailbox_ReceiveContext(t *testing.T) {
	mb := NewBoundedMailbox(1)
	defer mb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := mb.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Receive() error = %v, want DeadlineExceeded", err)
	}
}

func TestNewBoundedMailbox_InvalidCapacity(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewBoundedMailbox(0) should panic")
		}
	}()
	NewBoundedMailbox(0)
}
