package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/valyala/fasthttp"
)

// FastHTTPServerConfig configures the fasthttp server
type FastHTTPServerConfig struct {
	Addr string
	// MaxInFlight bounds concurrent requests; over it requests get 503
	MaxInFlight     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxConnsPerIP   int
	ReadBufferSize  int
	WriteBufferSize int
	ShutdownTimeout time.Duration
}

// DefaultFastHTTPServerConfig returns the default configuration for addr
func DefaultFastHTTPServerConfig(addr string) *FastHTTPServerConfig {
	return &FastHTTPServerConfig{
		Addr:            addr,
		MaxInFlight:     1000,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ReadBufferSize:  8192,
		WriteBufferSize: 8192,
		ShutdownTimeout: 5 * time.Second,
	}
}

// FastHTTPServer serves a FastRouter over fasthttp with backpressure and
// panic isolation
type FastHTTPServer struct {
	vertx        core.Vertx
	router       *FastRouter
	server       *fasthttp.Server
	config       *FastHTTPServerConfig
	logger       core.Logger
	backpressure *BackpressureController

	mu sync.Mutex
	ln net.Listener
}

// NewFastHTTPServer creates a server; vertx may be nil in tests
func NewFastHTTPServer(vertx core.Vertx, config *FastHTTPServerConfig) *FastHTTPServer {
	if config == nil {
		config = DefaultFastHTTPServerConfig(":8080")
	}
	logger := core.NewDefaultLogger()
	if vertx != nil {
		logger = vertx.Logger()
	}

	s := &FastHTTPServer{
		vertx:        vertx,
		router:       NewFastRouter(),
		config:       config,
		logger:       logger.WithFields(map[string]interface{}{"component": "http"}),
		backpressure: NewBackpressureController(config.MaxInFlight),
	}
	s.server = &fasthttp.Server{
		Handler:               s.handleRequest,
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		MaxConnsPerIP:         config.MaxConnsPerIP,
		ReadBufferSize:        config.ReadBufferSize,
		WriteBufferSize:       config.WriteBufferSize,
		NoDefaultServerHeader: true,
	}
	return s
}

// Router returns the router for route registration
func (s *FastHTTPServer) Router() *FastRouter {
	return s.router
}

// Backpressure returns the in-flight limiter
func (s *FastHTTPServer) Backpressure() *BackpressureController {
	return s.backpressure
}

// Listen binds the configured address; Serve must follow
func (s *FastHTTPServer) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	return ln.Addr(), nil
}

// Serve blocks serving on the listener bound by Listen
func (s *FastHTTPServer) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("server is not listening")
	}
	return s.server.Serve(ln)
}

// Start listens and serves, blocking
func (s *FastHTTPServer) Start() error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop shuts the server down gracefully
func (s *FastHTTPServer) Stop() error {
	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.server.ShutdownWithContext(ctx)
}

// Handler exposes the request handler, for in-memory tests
func (s *FastHTTPServer) Handler() fasthttp.RequestHandler {
	return s.handleRequest
}

func (s *FastHTTPServer) handleRequest(ctx *fasthttp.RequestCtx) {
	if !s.backpressure.TryAcquire() {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"code":"BACKPRESSURE","message":"server at capacity"}`)
		return
	}
	defer s.backpressure.Release()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Sprintf("handler panic for %s %s (isolated): %v", ctx.Method(), ctx.Path(), r))
			ctx.ResetBody()
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetContentType("application/json")
			ctx.SetBodyString(`{"code":"INTERNAL_ERROR","message":"request handler failed"}`)
		}
	}()

	reqCtx := NewFastRequestContext(ctx, s.vertx)
	if err := s.router.ServeFastHTTP(reqCtx); err != nil {
		s.writeError(reqCtx, err)
	}
}

// writeError turns an unhandled handler error into a response
func (s *FastHTTPServer) writeError(ctx *FastRequestContext, err error) {
	if ctx.RequestCtx.Response.StatusCode() >= 400 {
		return
	}
	s.logger.WithContext(ctx.Context()).Error(fmt.Sprintf("%s %s: %v", ctx.Method(), ctx.Path(), err))

	code := "INTERNAL_ERROR"
	var ce *core.Error
	if errors.As(err, &ce) {
		code = ce.Code
	}
	ctx.RequestCtx.ResetBody()
	_ = ctx.Fail(fasthttp.StatusInternalServerError, code, "internal server error")
}
