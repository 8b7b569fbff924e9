package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fluxorio/mtp/pkg/core/concurrency"
	"github.com/google/uuid"
)

// consumerMailboxSize bounds the backlog of a single consumer
const consumerMailboxSize = 256

// eventBus implements EventBus in process
type eventBus struct {
	consumers map[string][]*consumer
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	vertx     Vertx
	logger    Logger
	next      uint64 // round-robin cursor for Send
	closed    atomic.Bool
}

// NewEventBus creates a new event bus. vertx may be nil for a standalone bus.
func NewEventBus(ctx context.Context, vertx Vertx, logger Logger) EventBus {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &eventBus{
		consumers: make(map[string][]*consumer),
		ctx:       ctx,
		cancel:    cancel,
		vertx:     vertx,
		logger:    logger.WithFields(map[string]interface{}{"component": "eventbus"}),
	}
}

func (eb *eventBus) Publish(address string, body interface{}) error {
	msg, err := eb.prepare(address, body, nil, "")
	if err != nil {
		return err
	}

	eb.mu.RLock()
	consumers := append([]*consumer(nil), eb.consumers[address]...)
	eb.mu.RUnlock()

	for _, c := range consumers {
		if err := c.mailbox.Send(msg); err != nil {
			if errors.Is(err, concurrency.ErrMailboxFull) {
				eb.logger.Debug("consumer mailbox full, message dropped for", address)
			}
			// closed mailboxes belong to consumers being unregistered
			continue
		}
	}
	return nil
}

func (eb *eventBus) Send(address string, body interface{}) error {
	msg, err := eb.prepare(address, body, nil, "")
	if err != nil {
		return err
	}
	return eb.deliverOne(address, msg)
}

func (eb *eventBus) Request(address string, body interface{}, timeout time.Duration) (Message, error) {
	if err := checkTimeout(timeout); err != nil {
		return nil, err
	}

	replyAddress := generateReplyAddress()
	msg, err := eb.prepare(address, body, map[string]string{"replyAddress": replyAddress}, replyAddress)
	if err != nil {
		return nil, err
	}

	replies := concurrency.NewBoundedMailbox(1)
	replyConsumer := eb.Consumer(replyAddress).Handler(func(ctx FluxorContext, reply Message) error {
		_ = replies.Send(reply)
		return nil
	})
	defer replyConsumer.Unregister()

	if err := eb.deliverOne(address, msg); err != nil {
		return nil, err
	}

	replyCtx, cancel := context.WithTimeout(eb.ctx, timeout)
	defer cancel()

	reply, err := replies.Receive(replyCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	if m, ok := reply.(Message); ok {
		return m, nil
	}
	return nil, fmt.Errorf("invalid reply message type %T", reply)
}

func (eb *eventBus) Consumer(address string) Consumer {
	if err := checkAddress(address); err != nil {
		FailFast(err)
	}

	c := &consumer{
		address:  address,
		mailbox:  concurrency.NewBoundedMailbox(consumerMailboxSize),
		eventBus: eb,
		ctx:      newContext(eb.ctx, eb.vertx, eb.logger),
	}

	eb.mu.Lock()
	eb.consumers[address] = append(eb.consumers[address], c)
	eb.mu.Unlock()
	return c
}

func (eb *eventBus) Close() error {
	if !eb.closed.CompareAndSwap(false, true) {
		return nil
	}
	eb.cancel()

	eb.mu.Lock()
	defer eb.mu.Unlock()
	for _, consumers := range eb.consumers {
		for _, c := range consumers {
			c.mailbox.Close()
		}
	}
	eb.consumers = make(map[string][]*consumer)
	return nil
}

// prepare validates and encodes a message - fail-fast
func (eb *eventBus) prepare(address string, body interface{}, headers map[string]string, replyAddress string) (Message, error) {
	if eb.closed.Load() {
		return nil, ErrClosed
	}
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	jsonBody, err := eb.encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("encode body failed: %w", err)
	}
	return newMessage(jsonBody, headers, replyAddress, eb), nil
}

func (eb *eventBus) deliverOne(address string, msg Message) error {
	eb.mu.RLock()
	consumers := eb.consumers[address]
	var target *consumer
	if len(consumers) > 0 {
		n := atomic.AddUint64(&eb.next, 1)
		target = consumers[int(n%uint64(len(consumers)))]
	}
	eb.mu.RUnlock()

	if target == nil {
		return &Error{Code: "NO_HANDLERS", Message: "No handlers registered for address: " + address}
	}

	if err := target.mailbox.Send(msg); err != nil {
		if errors.Is(err, concurrency.ErrMailboxFull) {
			return ErrTimeout
		}
		return ErrClosed
	}
	return nil
}

// encodeBody encodes body to JSON unless it is already []byte
func (eb *eventBus) encodeBody(body interface{}) (interface{}, error) {
	if body == nil {
		return nil, ErrInvalidBody
	}
	if data, ok := body.([]byte); ok {
		return data, nil
	}
	return JSONEncode(body)
}

// consumer implements Consumer
type consumer struct {
	address  string
	mailbox  concurrency.Mailbox
	handler  MessageHandler
	eventBus *eventBus
	ctx      FluxorContext
	once     sync.Once
	mu       sync.RWMutex
}

func (c *consumer) Handler(handler MessageHandler) Consumer {
	if handler == nil {
		FailFast(&Error{Code: "INVALID_HANDLER", Message: "handler cannot be nil"})
	}

	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	c.once.Do(func() {
		go c.processMessages()
	})
	return c
}

func (c *consumer) Address() string {
	return c.address
}

func (c *consumer) processMessages() {
	for {
		msg, err := c.mailbox.Receive(c.eventBus.ctx)
		if err != nil {
			return
		}
		message, ok := msg.(Message)
		if !ok {
			continue
		}

		c.mu.RLock()
		handler := c.handler
		c.mu.RUnlock()

		c.handle(handler, message)
	}
}

// handle runs one handler call; a panic is isolated to the message
func (c *consumer) handle(handler MessageHandler, message Message) {
	defer func() {
		if r := recover(); r != nil {
			c.eventBus.logger.Error(fmt.Sprintf("handler panic for address %s (isolated): %v", c.address, r))
		}
	}()

	if err := handler(c.ctx, message); err != nil {
		c.eventBus.logger.Error(fmt.Sprintf("handler error for address %s: %v", c.address, err))
	}
}

func (c *consumer) Completion() <-chan struct{} {
	return c.mailbox.Done()
}

func (c *consumer) Unregister() error {
	c.eventBus.mu.Lock()
	consumers := c.eventBus.consumers[c.address]
	for i, cons := range consumers {
		if cons == c {
			rest := make([]*consumer, 0, len(consumers)-1)
			rest = append(rest, consumers[:i]...)
			rest = append(rest, consumers[i+1:]...)
			if len(rest) == 0 {
				delete(c.eventBus.consumers, c.address)
			} else {
				c.eventBus.consumers[c.address] = rest
			}
			break
		}
	}
	c.eventBus.mu.Unlock()

	c.mailbox.Close()
	return nil
}

func generateReplyAddress() string {
	return "reply." + uuid.New().String()
}
