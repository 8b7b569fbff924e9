package core

import (
	"context"
	"errors"
	"testing"
)

type testVerticle struct {
	name    string
	started bool
	stopped bool
	stops   *[]string
	failOn  string
}

func (v *testVerticle) Name() string { return v.name }

func (v *testVerticle) Start(ctx FluxorContext) error {
	if v.failOn == "start" {
		return errors.New("start failed")
	}
	v.started = true
	return nil
}

func (v *testVerticle) Stop(ctx FluxorContext) error {
	v.stopped = true
	if v.stops != nil {
		*v.stops = append(*v.stops, v.name)
	}
	return nil
}

func TestVertx_DeployVerticle(t *testing.T) {
	vertx := NewVertx(context.Background())
	defer vertx.Close()

	// Test fail-fast: nil verticle
	if _, err := vertx.DeployVerticle(nil); err == nil {
		t.Error("DeployVerticle() with nil verticle should fail")
	}

	verticle := &testVerticle{name: "api"}
	deploymentID, err := vertx.DeployVerticle(verticle)
	if err != nil {
		t.Errorf("DeployVerticle() error = %v", err)
	}
	if deploymentID == "" {
		t.Error("DeployVerticle() returned empty deployment ID")
	}
	if !verticle.started {
		t.Error("Verticle should be started")
	}

	if _, err := vertx.DeployVerticle(&testVerticle{name: "bad", failOn: "start"}); err == nil {
		t.Error("DeployVerticle() should propagate start errors")
	}
}

func TestVertx_UndeployVerticle(t *testing.T) {
	vertx := NewVertx(context.Background())
	defer vertx.Close()

	if err := vertx.UndeployVerticle(""); err == nil {
		t.Error("UndeployVerticle() with empty ID should fail")
	}
	if err := vertx.UndeployVerticle("non-existent"); err == nil {
		t.Error("UndeployVerticle() with non-existent ID should fail")
	}

	verticle := &testVerticle{name: "api"}
	deploymentID, err := vertx.DeployVerticle(verticle)
	if err != nil {
		t.Fatalf("DeployVerticle() error = %v", err)
	}
	if err := vertx.UndeployVerticle(deploymentID); err != nil {
		t.Errorf("UndeployVerticle() error = %v", err)
	}
	if !verticle.stopped {
		t.Error("Verticle should be stopped")
	}
}

func TestVertx_CloseStopsNewestFirst(t *testing.T) {
	vertx := NewVertx(context.Background())

	var stops []string
	for _, name := range []string{"bridge", "api", "push"} {
		if _, err := vertx.DeployVerticle(&testVerticle{name: name, stops: &stops}); err != nil {
			t.Fatalf("DeployVerticle(%s) error = %v", name, err)
		}
	}

	if err := vertx.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := []string{"push", "api", "bridge"}
	if len(stops) != len(want) {
		t.Fatalf("stops = %v, want %v", stops, want)
	}
	for i := range want {
		if stops[i] != want[i] {
			t.Errorf("stops = %v, want %v", stops, want)
			break
		}
	}
	if vertx.Context().Err() == nil {
		t.Error("root context should be cancelled after Close")
	}
}

func TestVertx_EventBus(t *testing.T) {
	vertx := NewVertx(context.Background())
	defer vertx.Close()

	if vertx.EventBus() == nil {
		t.Error("EventBus() should not return nil")
	}
}
