package transactions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/fsm"
	tracing "github.com/fluxorio/mtp/pkg/observability/otel"
)

// Store loads the current transaction counts
type Store interface {
	CountByStatus(ctx context.Context) (map[Status]int64, error)
}

// Sink receives snapshots while the subscription is active
type Sink interface {
	Push(ctx context.Context, snapshot Snapshot) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(ctx context.Context, snapshot Snapshot) error

// Push calls f
func (f SinkFunc) Push(ctx context.Context, snapshot Snapshot) error {
	return f(ctx, snapshot)
}

// Metrics records manager activity
type Metrics interface {
	SubscriptionOpened()
	SubscriptionClosed()
	SnapshotPushed()
}

const (
	stateUnsubscribed fsm.State = "UNSUBSCRIBED"
	stateSubscribed   fsm.State = "SUBSCRIBED"

	eventSubscribe   fsm.Event = "SUBSCRIBE"
	eventUnsubscribe fsm.Event = "UNSUBSCRIBE"
)

// ManagerOptions configures a Manager
type ManagerOptions struct {
	Bus     core.EventBus
	Store   Store
	Sink    Sink
	Logger  core.Logger
	Metrics Metrics

	// Now is the clock used for snapshot times
	Now func() time.Time
}

// Manager is the TransactionByStatus subscription. Subscribe loads the
// counts from the store, pushes them and follows status events from the bus
// until Unsubscribe. Both calls are idempotent.
type Manager struct {
	bus     core.EventBus
	store   Store
	sink    Sink
	logger  core.Logger
	metrics Metrics
	now     func() time.Time

	machine *fsm.FSM
	toggle  sync.Mutex // pairs CanTrigger with Trigger

	mu       sync.Mutex
	counts   map[Status]int64
	consumer core.Consumer
}

// NewManager creates an unsubscribed manager
func NewManager(opts ManagerOptions) *Manager {
	core.FailFastIf(opts.Bus == nil, "event bus cannot be nil")
	core.FailFastIf(opts.Store == nil, "store cannot be nil")
	core.FailFastIf(opts.Sink == nil, "sink cannot be nil")

	logger := opts.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	m := &Manager{
		bus:     opts.Bus,
		store:   opts.Store,
		sink:    opts.Sink,
		logger:  logger.WithFields(map[string]interface{}{"component": "transactions-by-status"}),
		metrics: opts.Metrics,
		now:     now,
		counts:  make(map[Status]int64),
		machine: fsm.NewFSM(stateUnsubscribed),
	}
	m.machine.AddTransition(stateUnsubscribed, eventSubscribe, stateSubscribed)
	m.machine.AddTransition(stateSubscribed, eventUnsubscribe, stateUnsubscribed)
	m.machine.OnEnter(stateSubscribed, m.open)
	m.machine.OnExit(stateSubscribed, m.close)
	return m
}

// Subscribe starts streaming snapshots. No-op when already subscribed.
func (m *Manager) Subscribe(ctx context.Context) error {
	return m.trigger(ctx, eventSubscribe)
}

// Unsubscribe stops streaming. No-op when not subscribed.
func (m *Manager) Unsubscribe(ctx context.Context) error {
	return m.trigger(ctx, eventUnsubscribe)
}

// Subscribed reports whether the manager is streaming
func (m *Manager) Subscribed() bool {
	return m.machine.CurrentState() == stateSubscribed
}

// Snapshot returns the last known counts
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return NewSnapshot(m.counts, m.now())
}

func (m *Manager) trigger(ctx context.Context, event fsm.Event) error {
	m.toggle.Lock()
	defer m.toggle.Unlock()

	if !m.machine.CanTrigger(event) {
		return nil
	}
	return m.machine.Trigger(ctx, event)
}

func (m *Manager) open(ctx context.Context, _, _ fsm.State, _ fsm.Event) error {
	counts, err := m.store.CountByStatus(ctx)
	if err != nil {
		return fmt.Errorf("load counts: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts = make(map[Status]int64, len(counts))
	for status, n := range counts {
		m.counts[status] = n
	}
	if err := m.pushLocked(ctx); err != nil {
		return err
	}

	c := m.bus.Consumer(EventAddress)
	c.Handler(tracing.WrapConsumerHandler(EventAddress, func(fctx core.FluxorContext, msg core.Message) error {
		return m.apply(fctx.Context(), c, msg)
	}))
	m.consumer = c

	if m.metrics != nil {
		m.metrics.SubscriptionOpened()
	}
	m.logger.Debug("subscribed")
	return nil
}

func (m *Manager) close(ctx context.Context, _, _ fsm.State, _ fsm.Event) error {
	m.mu.Lock()
	c := m.consumer
	m.consumer = nil
	m.mu.Unlock()

	if c != nil {
		if err := c.Unregister(); err != nil {
			return fmt.Errorf("unregister consumer: %w", err)
		}
	}
	if m.metrics != nil {
		m.metrics.SubscriptionClosed()
	}
	m.logger.Debug("unsubscribed")
	return nil
}

// apply folds one status event into the counts and pushes the result.
// Events delivered after the consumer was replaced or removed are dropped.
func (m *Manager) apply(ctx context.Context, c core.Consumer, msg core.Message) error {
	var ev Event
	if err := msg.DecodeBody(&ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if !ev.Status.Valid() {
		m.logger.Debug(fmt.Sprintf("ignoring event %s with unknown status %q", ev.ID, ev.Status))
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consumer == nil || m.consumer != c {
		return nil
	}

	m.counts[ev.Status]++
	if ev.PreviousStatus != "" && m.counts[ev.PreviousStatus] > 0 {
		m.counts[ev.PreviousStatus]--
	}
	return m.pushLocked(ctx)
}

func (m *Manager) pushLocked(ctx context.Context) error {
	if err := m.sink.Push(ctx, NewSnapshot(m.counts, m.now())); err != nil {
		return fmt.Errorf("push snapshot: %w", err)
	}
	if m.metrics != nil {
		m.metrics.SnapshotPushed()
	}
	return nil
}

// Publish sends a status event to every active subscription on bus
func Publish(bus core.EventBus, ev Event) error {
	return bus.Publish(EventAddress, ev)
}
