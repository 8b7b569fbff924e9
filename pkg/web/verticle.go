package web

import (
	"fmt"
	"net"

	"github.com/fluxorio/mtp/pkg/core"
)

// FastHTTPVerticle deploys a FastHTTPServer. Setup registers routes once
// the server exists and before it accepts connections.
type FastHTTPVerticle struct {
	config *FastHTTPServerConfig
	setup  func(*FastHTTPServer) error
	server *FastHTTPServer
	addr   net.Addr
}

// NewFastHTTPVerticle creates the verticle
func NewFastHTTPVerticle(config *FastHTTPServerConfig, setup func(*FastHTTPServer) error) *FastHTTPVerticle {
	return &FastHTTPVerticle{config: config, setup: setup}
}

// Name implements core.NamedVerticle
func (v *FastHTTPVerticle) Name() string {
	return "fasthttp"
}

// Start binds the listener and serves in the background
func (v *FastHTTPVerticle) Start(ctx core.FluxorContext) error {
	v.server = NewFastHTTPServer(ctx.Vertx(), v.config)
	if v.setup != nil {
		if err := v.setup(v.server); err != nil {
			return fmt.Errorf("http setup: %w", err)
		}
	}

	addr, err := v.server.Listen()
	if err != nil {
		return err
	}
	v.addr = addr

	logger := ctx.Logger()
	logger.Info("http server listening on", addr.String())
	go func() {
		if err := v.server.Serve(); err != nil {
			logger.Error("http server stopped:", err)
		}
	}()
	return nil
}

// Stop shuts the server down
func (v *FastHTTPVerticle) Stop(ctx core.FluxorContext) error {
	if v.server == nil {
		return nil
	}
	return v.server.Stop()
}

// Server returns the running server
func (v *FastHTTPVerticle) Server() *FastHTTPServer {
	return v.server
}

// Addr returns the bound address once started
func (v *FastHTTPVerticle) Addr() net.Addr {
	return v.addr
}
