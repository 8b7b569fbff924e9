package store

import (
	"context"
	"testing"
	"time"

	"github.com/fluxorio/mtp/pkg/transactions"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func TestSQLStore_CountByStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 0 {
		t.Errorf("empty table counts = %v", counts)
	}

	now := time.Now()
	events := []transactions.Event{
		{ID: "t1", Status: transactions.StatusNew, Time: now},
		{ID: "t2", Status: transactions.StatusNew, Time: now},
		{ID: "t3", Status: transactions.StatusNew, Time: now},
		{ID: "t1", Status: transactions.StatusValidated, PreviousStatus: transactions.StatusNew, Time: now},
		{ID: "t2", Status: transactions.StatusFailed, PreviousStatus: transactions.StatusNew},
	}
	for _, ev := range events {
		if err := s.Apply(ctx, ev); err != nil {
			t.Fatalf("Apply(%+v) error = %v", ev, err)
		}
	}

	counts, err = s.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := map[transactions.Status]int64{
		transactions.StatusNew:       1,
		transactions.StatusValidated: 1,
		transactions.StatusFailed:    1,
	}
	if len(counts) != len(want) {
		t.Fatalf("counts = %v, want %v", counts, want)
	}
	for status, n := range want {
		if counts[status] != n {
			t.Errorf("counts[%s] = %d, want %d", status, counts[status], n)
		}
	}
}

func TestSQLStore_ApplyValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Apply(ctx, transactions.Event{Status: transactions.StatusNew}); err == nil {
		t.Error("expected error for missing id")
	}
	if err := s.Apply(ctx, transactions.Event{ID: "t1", Status: "ARCHIVED"}); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestSQLStore_MigrateIsRepeatable(t *testing.T) {
	s := openTestStore(t)
	if err := s.Migrate(context.Background()); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "dsn"); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if _, err := Open(context.Background(), DriverSQLite, " "); err == nil {
		t.Error("expected error for empty dsn")
	}
}

func TestRebind(t *testing.T) {
	pg := New(nil, DriverPGX)
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := New(nil, DriverSQLite)
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}
