package core

import (
	"context"
)

// FluxorContext is the execution context handed to verticles and handlers.
//
// It is distinct from context.Context: Context() exposes the Go context for
// cancellation, the other accessors expose the runtime.
type FluxorContext interface {
	// Context returns the underlying context.Context
	Context() context.Context

	// EventBus returns the event bus instance
	EventBus() EventBus

	// Vertx returns the owning runtime, nil for a standalone event bus
	Vertx() Vertx

	// Logger returns the runtime logger
	Logger() Logger

	// Deploy deploys a verticle
	Deploy(verticle Verticle) (string, error)

	// Undeploy undeploys a verticle by deployment ID
	Undeploy(deploymentID string) error
}

// fluxorContext implements FluxorContext
type fluxorContext struct {
	goCtx  context.Context
	vertx  Vertx
	logger Logger
}

func newContext(goCtx context.Context, vertx Vertx, logger Logger) FluxorContext {
	if goCtx == nil {
		panic("context cannot be nil")
	}
	return &fluxorContext{
		goCtx:  goCtx,
		vertx:  vertx,
		logger: logger,
	}
}

func (c *fluxorContext) Context() context.Context {
	return c.goCtx
}

func (c *fluxorContext) EventBus() EventBus {
	if c.vertx == nil {
		panic("vertx is nil, cannot get EventBus")
	}
	return c.vertx.EventBus()
}

func (c *fluxorContext) Vertx() Vertx {
	return c.vertx
}

func (c *fluxorContext) Logger() Logger {
	return c.logger
}

func (c *fluxorContext) Deploy(verticle Verticle) (string, error) {
	if c.vertx == nil {
		return "", &Error{Code: "NO_RUNTIME", Message: "no runtime attached to context"}
	}
	return c.vertx.DeployVerticle(verticle)
}

func (c *fluxorContext) Undeploy(deploymentID string) error {
	if c.vertx == nil {
		return &Error{Code: "NO_RUNTIME", Message: "no runtime attached to context"}
	}
	return c.vertx.UndeployVerticle(deploymentID)
}
