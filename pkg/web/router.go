package web

import (
	"strings"
	"sync"

	"github.com/valyala/fasthttp"
)

type route struct {
	method   string
	segments []string
	handler  FastRequestHandler
}

// FastRouter matches method and path. Path segments starting with ':'
// capture a parameter. Routes match in registration order.
type FastRouter struct {
	mu         sync.RWMutex
	routes     []route
	middleware []FastMiddleware
	notFound   FastRequestHandler
}

// NewFastRouter creates an empty router
func NewFastRouter() *FastRouter {
	return &FastRouter{}
}

// Use adds middleware applied to every route and the not-found handler
func (r *FastRouter) Use(mws ...FastMiddleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mws...)
}

// Handle registers a handler with optional route-specific middleware
func (r *FastRouter) Handle(method, path string, handler FastRequestHandler, mws ...FastMiddleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{
		method:   method,
		segments: splitPath(path),
		handler:  Chain(handler, mws...),
	})
}

// GETFast registers a GET route
func (r *FastRouter) GETFast(path string, handler FastRequestHandler, mws ...FastMiddleware) {
	r.Handle(fasthttp.MethodGet, path, handler, mws...)
}

// POSTFast registers a POST route
func (r *FastRouter) POSTFast(path string, handler FastRequestHandler, mws ...FastMiddleware) {
	r.Handle(fasthttp.MethodPost, path, handler, mws...)
}

// NotFound sets the handler for unmatched requests
func (r *FastRouter) NotFound(handler FastRequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFound = handler
}

// ServeFastHTTP routes one request
func (r *FastRouter) ServeFastHTTP(ctx *FastRequestContext) error {
	r.mu.RLock()
	mws := r.middleware
	notFound := r.notFound
	handler, allowed := r.match(ctx)
	r.mu.RUnlock()

	if handler == nil {
		if allowed {
			handler = func(c *FastRequestContext) error {
				return c.Fail(fasthttp.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
			}
		} else if notFound != nil {
			handler = notFound
		} else {
			handler = func(c *FastRequestContext) error {
				return c.Fail(fasthttp.StatusNotFound, "NOT_FOUND", "no route for "+string(c.Path()))
			}
		}
	}
	return Chain(handler, mws...)(ctx)
}

// match finds the route for the request and fills ctx.Params. allowed is
// true when the path matched under another method.
func (r *FastRouter) match(ctx *FastRequestContext) (FastRequestHandler, bool) {
	method := string(ctx.Method())
	segments := splitPath(string(ctx.Path()))
	pathMatched := false

	for _, rt := range r.routes {
		params, ok := matchSegments(rt.segments, segments)
		if !ok {
			continue
		}
		if rt.method != method && !(method == fasthttp.MethodHead && rt.method == fasthttp.MethodGet) {
			pathMatched = true
			continue
		}
		for k, v := range params {
			ctx.Params[k] = v
		}
		return rt.handler, false
	}
	return nil, pathMatched
}

func matchSegments(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	var params map[string]string
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[p[1:]] = path[i]
			continue
		}
		if p != path[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
