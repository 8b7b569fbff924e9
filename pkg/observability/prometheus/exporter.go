package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fluxorio/mtp/pkg/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Handler returns an HTTP handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// FastHTTPHandler returns a FastRequestHandler for the metrics endpoint
func (m *Metrics) FastHTTPHandler() web.FastRequestHandler {
	adaptor := fasthttpadaptor.NewFastHTTPHandler(m.Handler())
	return func(ctx *web.FastRequestContext) error {
		adaptor(ctx.RequestCtx)
		return nil
	}
}

// Middleware instruments every request passing through it
func (m *Metrics) Middleware() web.FastMiddleware {
	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			m.httpInFlight.Inc()
			defer m.httpInFlight.Dec()

			start := time.Now()
			err := next(ctx)

			method := string(ctx.Method())
			code := ctx.RequestCtx.Response.StatusCode()
			if err != nil && code < 400 {
				code = 500
			}
			m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
			m.httpDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
