// Package natsbridge forwards transaction status events published on NATS
// into the local event bus.
package natsbridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	tracing "github.com/fluxorio/mtp/pkg/observability/otel"
	"github.com/fluxorio/mtp/pkg/transactions"
	"github.com/nats-io/nats.go"
)

// DefaultSubject carries JSON transactions.Event messages
const DefaultSubject = "mtp.transactions.status"

// Recorder persists forwarded events
type Recorder interface {
	Apply(ctx context.Context, ev transactions.Event) error
}

// Options configures a Bridge
type Options struct {
	URL     string
	Subject string
	// Queue, when set, load-balances the subject across gateway replicas
	Queue string
	Name  string

	// Recorder is optional
	Recorder Recorder

	ConnectTimeout time.Duration
}

// Bridge is a verticle subscribing to a NATS subject and republishing every
// valid event on transactions.EventAddress
type Bridge struct {
	opts Options

	mu     sync.Mutex
	conn   *nats.Conn
	sub    *nats.Subscription
	bus    core.EventBus
	logger core.Logger
	ctx    context.Context
}

// NewBridge creates a bridge; nothing connects until Start
func NewBridge(opts Options) *Bridge {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.Subject == "" {
		opts.Subject = DefaultSubject
	}
	if opts.Name == "" {
		opts.Name = "mtp-frontend"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	return &Bridge{opts: opts}
}

// Name implements core.NamedVerticle
func (b *Bridge) Name() string {
	return "nats-bridge"
}

// Start connects and subscribes
func (b *Bridge) Start(ctx core.FluxorContext) error {
	logger := ctx.Logger()

	conn, err := nats.Connect(b.opts.URL,
		nats.Name(b.opts.Name),
		nats.Timeout(b.opts.ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error(fmt.Sprintf("nats disconnected: %v", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info(fmt.Sprintf("nats reconnected to %s", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to nats %s: %w", b.opts.URL, err)
	}

	b.mu.Lock()
	b.conn = conn
	b.bus = ctx.EventBus()
	b.logger = logger
	b.ctx = ctx.Context()
	b.mu.Unlock()

	var sub *nats.Subscription
	if b.opts.Queue != "" {
		sub, err = conn.QueueSubscribe(b.opts.Subject, b.opts.Queue, b.forward)
	} else {
		sub, err = conn.Subscribe(b.opts.Subject, b.forward)
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("subscribe %s: %w", b.opts.Subject, err)
	}
	// flush so the subscription is registered before Start returns
	if err := conn.Flush(); err != nil {
		conn.Close()
		return fmt.Errorf("flush subscription: %w", err)
	}

	b.mu.Lock()
	b.sub = sub
	b.mu.Unlock()

	logger.Info(fmt.Sprintf("forwarding nats subject %s to %s", b.opts.Subject, transactions.EventAddress))
	return nil
}

// Stop drains the subscription and closes the connection
func (b *Bridge) Stop(ctx core.FluxorContext) error {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.sub = nil
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}

// Connected reports whether the NATS connection is up
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	return conn != nil && conn.IsConnected()
}

// Publish sends ev to the bridged subject
func (b *Bridge) Publish(ev transactions.Event) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return core.ErrClosed
	}

	data, err := core.JSONEncode(ev)
	if err != nil {
		return err
	}
	return conn.Publish(b.opts.Subject, data)
}

func (b *Bridge) forward(msg *nats.Msg) {
	b.mu.Lock()
	bus, logger, ctx := b.bus, b.logger, b.ctx
	b.mu.Unlock()
	if bus == nil {
		return
	}

	var ev transactions.Event
	if err := core.JSONDecode(msg.Data, &ev); err != nil {
		logger.Error(fmt.Sprintf("dropping malformed event on %s: %v", msg.Subject, err))
		return
	}
	if ev.ID == "" || !ev.Status.Valid() {
		logger.Error(fmt.Sprintf("dropping invalid event on %s: id=%q status=%q", msg.Subject, ev.ID, ev.Status))
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	if b.opts.Recorder != nil {
		if err := b.opts.Recorder.Apply(ctx, ev); err != nil {
			logger.Error(fmt.Sprintf("record event %s: %v", ev.ID, err))
		}
	}
	if err := tracing.PublishWithSpan(ctx, bus, transactions.EventAddress, ev); err != nil {
		logger.Error(fmt.Sprintf("publish event %s: %v", ev.ID, err))
	}
}
