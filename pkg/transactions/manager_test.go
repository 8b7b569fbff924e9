package transactions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
)

type fakeStore struct {
	counts map[Status]int64
	err    error
	calls  int
}

func (s *fakeStore) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	s.calls++
	return s.counts, s.err
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []Snapshot
	pushed    chan Snapshot
}

func newRecordingSink() *recordingSink {
	return &recordingSink{pushed: make(chan Snapshot, 16)}
}

func (s *recordingSink) Push(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	s.snapshots = append(s.snapshots, snap)
	s.mu.Unlock()
	s.pushed <- snap
	return nil
}

func (s *recordingSink) next(t *testing.T) Snapshot {
	t.Helper()
	select {
	case snap := <-s.pushed:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return Snapshot{}
	}
}

func (s *recordingSink) expectNone(t *testing.T) {
	t.Helper()
	select {
	case snap := <-s.pushed:
		t.Fatalf("unexpected snapshot %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

type countingMetrics struct {
	opened, closed, pushed int
}

func (m *countingMetrics) SubscriptionOpened() { m.opened++ }
func (m *countingMetrics) SubscriptionClosed() { m.closed++ }
func (m *countingMetrics) SnapshotPushed()     { m.pushed++ }

func newTestManager(t *testing.T, store Store, sink Sink, metrics Metrics) (*Manager, core.EventBus) {
	t.Helper()
	bus := core.NewEventBus(context.Background(), nil, core.NewDefaultLogger())
	t.Cleanup(func() { bus.Close() })
	m := NewManager(ManagerOptions{Bus: bus, Store: store, Sink: sink, Metrics: metrics})
	return m, bus
}

func TestManager_SubscribePushesInitialSnapshot(t *testing.T) {
	store := &fakeStore{counts: map[Status]int64{StatusNew: 3, StatusProcessed: 7}}
	sink := newRecordingSink()
	metrics := &countingMetrics{}
	m, _ := newTestManager(t, store, sink, metrics)

	if err := m.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	snap := sink.next(t)
	if snap.Total != 10 || snap.Counts[StatusNew] != 3 || snap.Counts[StatusFailed] != 0 {
		t.Errorf("initial snapshot = %+v", snap)
	}
	if _, ok := snap.Counts[StatusInvalid]; !ok {
		t.Error("every known status should be present")
	}
	if !m.Subscribed() {
		t.Error("Subscribed() = false")
	}

	// Idempotent
	if err := m.Subscribe(context.Background()); err != nil {
		t.Fatalf("second Subscribe() error = %v", err)
	}
	if store.calls != 1 {
		t.Errorf("store loaded %d times, want 1", store.calls)
	}
	if metrics.opened != 1 {
		t.Errorf("opened = %d, want 1", metrics.opened)
	}
}

func TestManager_AppliesEvents(t *testing.T) {
	store := &fakeStore{counts: map[Status]int64{StatusNew: 1}}
	sink := newRecordingSink()
	m, bus := newTestManager(t, store, sink, nil)

	if err := m.Subscribe(context.Background()); err != nil {
		t.Fatal(err)
	}
	sink.next(t)

	if err := Publish(bus, Event{ID: "t1", Status: StatusValidated, PreviousStatus: StatusNew}); err != nil {
		t.Fatal(err)
	}
	snap := sink.next(t)
	if snap.Counts[StatusNew] != 0 || snap.Counts[StatusValidated] != 1 || snap.Total != 1 {
		t.Errorf("after transition: %+v", snap)
	}

	if err := Publish(bus, Event{ID: "t2", Status: StatusNew}); err != nil {
		t.Fatal(err)
	}
	snap = sink.next(t)
	if snap.Counts[StatusNew] != 1 || snap.Total != 2 {
		t.Errorf("after new transaction: %+v", snap)
	}

	// Unknown statuses are ignored
	_ = bus.Publish(EventAddress, map[string]string{"id": "t3", "status": "ARCHIVED"})
	sink.expectNone(t)

	if got := m.Snapshot(); got.Total != 2 {
		t.Errorf("Snapshot() = %+v", got)
	}
}

func TestManager_UnsubscribeStopsUpdates(t *testing.T) {
	sink := newRecordingSink()
	metrics := &countingMetrics{}
	m, bus := newTestManager(t, &fakeStore{}, sink, metrics)
	ctx := context.Background()

	// Not subscribed yet
	if err := m.Unsubscribe(ctx); err != nil {
		t.Fatalf("Unsubscribe() before Subscribe error = %v", err)
	}

	if err := m.Subscribe(ctx); err != nil {
		t.Fatal(err)
	}
	sink.next(t)

	if err := m.Unsubscribe(ctx); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if err := m.Unsubscribe(ctx); err != nil {
		t.Fatalf("second Unsubscribe() error = %v", err)
	}
	if m.Subscribed() {
		t.Error("Subscribed() = true after Unsubscribe")
	}

	_ = Publish(bus, Event{ID: "t1", Status: StatusNew})
	sink.expectNone(t)

	// Re-subscribe after exit reloads
	if err := m.Subscribe(ctx); err != nil {
		t.Fatal(err)
	}
	sink.next(t)
	if metrics.opened != 2 || metrics.closed != 1 {
		t.Errorf("opened/closed = %d/%d, want 2/1", metrics.opened, metrics.closed)
	}
}

func TestManager_StoreFailureLeavesUnsubscribed(t *testing.T) {
	boom := errors.New("database down")
	store := &fakeStore{err: boom}
	m, _ := newTestManager(t, store, newRecordingSink(), nil)

	if err := m.Subscribe(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Subscribe() error = %v, want store error", err)
	}
	if m.Subscribed() {
		t.Error("failed Subscribe should leave the manager unsubscribed")
	}

	store.err = nil
	if err := m.Subscribe(context.Background()); err != nil {
		t.Errorf("retry Subscribe() error = %v", err)
	}
}

func TestManager_SinkFunc(t *testing.T) {
	var got []Snapshot
	sink := SinkFunc(func(ctx context.Context, s Snapshot) error {
		got = append(got, s)
		return nil
	})
	m, _ := newTestManager(t, &fakeStore{counts: map[Status]int64{StatusFailed: 2}}, sink, nil)
	if err := m.Subscribe(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Counts[StatusFailed] != 2 {
		t.Errorf("pushed = %+v", got)
	}
}
