package concurrency

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrMailboxFull is returned by Send when the mailbox buffer is full
	ErrMailboxFull = errors.New("mailbox is full")
	// ErrMailboxClosed is returned by Send and Receive after Close
	ErrMailboxClosed = errors.New("mailbox is closed")
)

// Mailbox is a bounded, non-blocking-send message queue.
// It hides the channel and select plumbing from the event bus and the servers.
type Mailbox interface {
	// Send enqueues a message without blocking
	Send(msg interface{}) error

	// Receive blocks until a message arrives, the mailbox is closed or ctx is done
	Receive(ctx context.Context) (interface{}, error)

	// Close closes the mailbox. Pending messages are dropped.
	Close()

	// IsClosed reports whether Close has been called
	IsClosed() bool

	// Done returns a channel closed by Close
	Done() <-chan struct{}
}

type boundedMailbox struct {
	ch     chan interface{}
	done   chan struct{}
	once   sync.Once
	mu     sync.RWMutex
	closed bool
}

// NewBoundedMailbox creates a mailbox holding at most capacity messages
func NewBoundedMailbox(capacity int) Mailbox {
	failFastIf(capacity <= 0, "mailbox capacity must be positive")
	return &boundedMailbox{
		ch:   make(chan interface{}, capacity),
		done: make(chan struct{}),
	}
}

func (m *boundedMailbox) Send(msg interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrMailboxClosed
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrMailboxFull
	}
}

func (m *boundedMailbox) Receive(ctx context.Context) (interface{}, error) {
	select {
	case msg := <-m.ch:
		return msg, nil
	case <-m.done:
		return nil, ErrMailboxClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *boundedMailbox) Close() {
	m.once.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
		close(m.done)
	})
}

func (m *boundedMailbox) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *boundedMailbox) Done() <-chan struct{} {
	return m.done
}
