package core

import (
	"context"
	"fmt"
	"sync"
)

// Vertx is the main entry point of the runtime: it owns the event bus and
// the deployed verticles.
type Vertx interface {
	// EventBus returns the event bus
	EventBus() EventBus

	// DeployVerticle starts a verticle and records its deployment
	DeployVerticle(verticle Verticle) (string, error)

	// UndeployVerticle stops a deployed verticle
	UndeployVerticle(deploymentID string) error

	// Close undeploys every verticle, newest first, then closes the event bus
	Close() error

	// Context returns the root context
	Context() context.Context

	// Logger returns the runtime logger
	Logger() Logger
}

// VertxOptions configures a Vertx instance
type VertxOptions struct {
	Logger Logger
}

// vertx implements Vertx
type vertx struct {
	eventBus    EventBus
	deployments map[string]*deployment
	order       []string
	logger      Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type deployment struct {
	id       string
	verticle Verticle
	ctx      FluxorContext
}

// NewVertx creates a new Vertx instance with a default logger
func NewVertx(ctx context.Context) Vertx {
	return NewVertxWithOptions(ctx, VertxOptions{})
}

// NewVertxWithOptions creates a new Vertx instance
func NewVertxWithOptions(ctx context.Context, opts VertxOptions) Vertx {
	logger := opts.Logger
	if logger == nil {
		logger = NewDefaultLogger()
	}
	ctx, cancel := context.WithCancel(ctx)
	v := &vertx{
		deployments: make(map[string]*deployment),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
	v.eventBus = NewEventBus(ctx, v, logger)
	return v
}

func (v *vertx) EventBus() EventBus {
	return v.eventBus
}

func (v *vertx) Logger() Logger {
	return v.logger
}

func (v *vertx) Context() context.Context {
	return v.ctx
}

func (v *vertx) DeployVerticle(verticle Verticle) (string, error) {
	if verticle == nil {
		return "", ErrInvalidVerticle
	}

	deploymentID := generateDeploymentID()
	ctx := newContext(v.ctx, v, v.logger.WithFields(map[string]interface{}{
		"verticle":   verticleName(verticle),
		"deployment": deploymentID,
	}))

	// Start outside the lock: verticles may deploy children from Start
	if err := verticle.Start(ctx); err != nil {
		return "", fmt.Errorf("verticle %s start failed: %w", verticleName(verticle), err)
	}

	v.mu.Lock()
	v.deployments[deploymentID] = &deployment{id: deploymentID, verticle: verticle, ctx: ctx}
	v.order = append(v.order, deploymentID)
	v.mu.Unlock()

	v.logger.Debug("deployed", verticleName(verticle), deploymentID)
	return deploymentID, nil
}

func (v *vertx) UndeployVerticle(deploymentID string) error {
	if deploymentID == "" {
		return &Error{Code: "INVALID_DEPLOYMENT_ID", Message: "deployment ID cannot be empty"}
	}

	v.mu.Lock()
	dep, exists := v.deployments[deploymentID]
	if !exists {
		v.mu.Unlock()
		return &Error{Code: "NOT_FOUND", Message: "Deployment not found: " + deploymentID}
	}
	delete(v.deployments, deploymentID)
	for i, id := range v.order {
		if id == deploymentID {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
	v.mu.Unlock()

	if err := dep.verticle.Stop(dep.ctx); err != nil {
		return fmt.Errorf("verticle %s stop failed: %w", verticleName(dep.verticle), err)
	}
	return nil
}

func (v *vertx) Close() error {
	v.mu.Lock()
	order := append([]string(nil), v.order...)
	v.mu.Unlock()

	var firstErr error
	for i := len(order) - 1; i >= 0; i-- {
		if err := v.UndeployVerticle(order[i]); err != nil {
			v.logger.Error("undeploy failed:", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	v.cancel()
	if err := v.eventBus.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func generateDeploymentID() string {
	return fmt.Sprintf("deployment.%s", NewRequestID())
}
