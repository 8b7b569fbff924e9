package core

import (
	"fmt"
	"sync"
	"time"
)

// Message represents a message on the event bus
type Message interface {
	// Body returns the message body
	Body() interface{}

	// Headers returns a copy of the message headers
	Headers() map[string]string

	// ReplyAddress returns the reply address if this is a request message
	ReplyAddress() string

	// Reply sends a reply to this message
	Reply(body interface{}) error

	// DecodeBody decodes the JSON message body into v
	DecodeBody(v interface{}) error

	// Fail replies with a failure payload
	Fail(failureCode int, message string) error
}

// message implements Message
type message struct {
	body         interface{}
	headers      map[string]string
	replyAddress string
	eventBus     EventBus
	mu           sync.RWMutex
}

func newMessage(body interface{}, headers map[string]string, replyAddress string, eventBus EventBus) Message {
	if headers == nil {
		headers = make(map[string]string)
	}
	return &message{
		body:         body,
		headers:      headers,
		replyAddress: replyAddress,
		eventBus:     eventBus,
	}
}

func (m *message) Body() interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.body
}

func (m *message) Headers() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string, len(m.headers))
	for k, v := range m.headers {
		result[k] = v
	}
	return result
}

func (m *message) ReplyAddress() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.replyAddress
}

func (m *message) Reply(body interface{}) error {
	if m.ReplyAddress() == "" {
		return ErrNoReplyAddress
	}
	return m.eventBus.Send(m.replyAddress, body)
}

func (m *message) DecodeBody(v interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if data, ok := m.body.([]byte); ok {
		return JSONDecode(data, v)
	}
	return fmt.Errorf("body is not []byte, got %T", m.body)
}

func (m *message) Fail(failureCode int, message string) error {
	return m.Reply(map[string]interface{}{
		"failureCode": failureCode,
		"message":     message,
	})
}

// EventBus provides publish-subscribe and point-to-point messaging.
// Bodies are JSON encoded unless they already are []byte.
//
// Thread-safety: All methods are safe for concurrent use.
//
// Publish, Send and Request return errors for invalid input or delivery
// failures. Consumer panics on an invalid address: that is a programming
// bug, not a runtime condition.
type EventBus interface {
	// Publish delivers a message to every consumer of the address.
	// Consumers whose mailbox is full miss the message.
	Publish(address string, body interface{}) error

	// Send delivers a message to one consumer of the address.
	Send(address string, body interface{}) error

	// Request sends a message and waits for a reply within timeout.
	Request(address string, body interface{}, timeout time.Duration) (Message, error)

	// Consumer creates a consumer for the given address.
	//
	// Usage pattern:
	//   consumer := eb.Consumer("my.address").Handler(func(ctx FluxorContext, msg Message) error {
	//       return nil
	//   })
	//   defer consumer.Unregister()
	Consumer(address string) Consumer

	// Close closes the event bus and every consumer.
	Close() error
}

// Consumer represents a message consumer
type Consumer interface {
	// Handler sets the message handler and starts delivery
	Handler(handler MessageHandler) Consumer

	// Address returns the address the consumer listens on
	Address() string

	// Completion returns a channel that is closed when the consumer is closed
	Completion() <-chan struct{}

	// Unregister unregisters the consumer. Calling it twice is harmless.
	Unregister() error
}

// MessageHandler handles incoming messages
type MessageHandler func(ctx FluxorContext, msg Message) error
