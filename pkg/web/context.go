package web

import (
	"context"
	"fmt"
	"sync"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/valyala/fasthttp"
)

// FastRequestHandler handles a request. A returned error that was not
// written by the handler becomes a 500 response.
type FastRequestHandler func(ctx *FastRequestContext) error

// FastMiddleware wraps a handler
type FastMiddleware func(next FastRequestHandler) FastRequestHandler

// Chain applies middleware so that the first one is outermost
func Chain(h FastRequestHandler, mws ...FastMiddleware) FastRequestHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Context keys set by the middleware
const (
	RequestIDKey = "request_id"
	PrincipalKey = "principal"
	LoggerKey    = "logger"
)

// FastRequestContext wraps fasthttp RequestCtx with the runtime
type FastRequestContext struct {
	RequestCtx *fasthttp.RequestCtx
	Vertx      core.Vertx
	EventBus   core.EventBus
	Params     map[string]string

	goCtx context.Context
	data  map[string]interface{}
	mu    sync.RWMutex
}

// NewFastRequestContext wraps ctx. vertx may be nil.
func NewFastRequestContext(ctx *fasthttp.RequestCtx, vertx core.Vertx) *FastRequestContext {
	c := &FastRequestContext{
		RequestCtx: ctx,
		Vertx:      vertx,
		Params:     make(map[string]string),
		goCtx:      context.Background(),
	}
	if vertx != nil {
		c.EventBus = vertx.EventBus()
		c.goCtx = vertx.Context()
	}
	return c
}

// Context returns the Go context of the request, carrying the request id
func (c *FastRequestContext) Context() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.goCtx
}

// WithContext replaces the Go context of the request
func (c *FastRequestContext) WithContext(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.goCtx = ctx
}

// Set stores a value in the context
func (c *FastRequestContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]interface{})
	}
	c.data[key] = value
}

// Get retrieves a value from the context
func (c *FastRequestContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil {
		return nil
	}
	return c.data[key]
}

// RequestID returns the id assigned by the request id middleware
func (c *FastRequestContext) RequestID() string {
	if id, ok := c.Get(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// JSON writes a JSON response
func (c *FastRequestContext) JSON(statusCode int, data interface{}) error {
	if statusCode < 100 || statusCode > 599 {
		return fmt.Errorf("invalid status code: %d", statusCode)
	}

	jsonData, err := core.JSONEncode(data)
	if err != nil {
		return fmt.Errorf("json encode error: %w", err)
	}

	c.RequestCtx.SetStatusCode(statusCode)
	c.RequestCtx.SetContentType("application/json")
	c.RequestCtx.SetBody(jsonData)
	return nil
}

// BindJSON decodes the request body into v
func (c *FastRequestContext) BindJSON(v interface{}) error {
	if v == nil {
		return fmt.Errorf("cannot bind to nil value")
	}
	body := c.RequestCtx.PostBody()
	if len(body) == 0 {
		return fmt.Errorf("empty request body")
	}
	return core.JSONDecode(body, v)
}

// Text writes a text response
func (c *FastRequestContext) Text(statusCode int, text string) error {
	c.RequestCtx.SetStatusCode(statusCode)
	c.RequestCtx.SetContentType("text/plain; charset=utf-8")
	c.RequestCtx.SetBodyString(text)
	return nil
}

// Fail writes an error response in the API error format
func (c *FastRequestContext) Fail(statusCode int, code, message string) error {
	return c.JSON(statusCode, ErrorResponse{Code: code, Message: message, RequestID: c.RequestID()})
}

// Query returns a query parameter
func (c *FastRequestContext) Query(key string) string {
	return string(c.RequestCtx.QueryArgs().Peek(key))
}

// Header returns a request header
func (c *FastRequestContext) Header(key string) string {
	return string(c.RequestCtx.Request.Header.Peek(key))
}

// Param returns a path parameter
func (c *FastRequestContext) Param(key string) string {
	return c.Params[key]
}

// Method returns the HTTP method
func (c *FastRequestContext) Method() []byte {
	return c.RequestCtx.Method()
}

// Path returns the request path
func (c *FastRequestContext) Path() []byte {
	return c.RequestCtx.Path()
}

// ErrorResponse is the body of API error responses
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}
