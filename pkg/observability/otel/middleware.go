package otel

import (
	"strconv"

	"github.com/fluxorio/mtp/pkg/web"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HTTPMiddleware traces each request and propagates the trace context
// through the request's Go context
func HTTPMiddleware() web.FastMiddleware {
	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			if !IsInitialized() {
				return next(ctx)
			}

			propagator := otel.GetTextMapPropagator()
			parentCtx := propagator.Extract(ctx.Context(), requestCarrier{&ctx.RequestCtx.Request.Header})

			method := string(ctx.Method())
			spanCtx, span := StartSpan(parentCtx, method+" "+string(ctx.Path()),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.request.method", method),
					attribute.String("url.path", string(ctx.Path())),
					attribute.String("http.request_id", ctx.RequestID()),
				),
			)
			defer span.End()

			ctx.WithContext(spanCtx)
			err := next(ctx)

			statusCode := ctx.RequestCtx.Response.StatusCode()
			span.SetAttributes(
				attribute.Int("http.response.status_code", statusCode),
				attribute.Int("http.response.body.size", len(ctx.RequestCtx.Response.Body())),
			)
			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case statusCode >= 500:
				span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(statusCode))
			default:
				span.SetStatus(codes.Ok, "")
			}

			propagator.Inject(spanCtx, responseCarrier{&ctx.RequestCtx.Response.Header})
			return err
		}
	}
}

// requestCarrier adapts fasthttp request headers to propagation.TextMapCarrier
type requestCarrier struct {
	headers *fasthttp.RequestHeader
}

func (c requestCarrier) Get(key string) string { return string(c.headers.Peek(key)) }

func (c requestCarrier) Set(key, value string) { c.headers.Set(key, value) }

func (c requestCarrier) Keys() []string {
	var keys []string
	c.headers.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

type responseCarrier struct {
	headers *fasthttp.ResponseHeader
}

func (c responseCarrier) Get(key string) string { return string(c.headers.Peek(key)) }

func (c responseCarrier) Set(key, value string) { c.headers.Set(key, value) }

func (c responseCarrier) Keys() []string {
	var keys []string
	c.headers.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// SpanFromRequest returns the span context of the request's span
func SpanFromRequest(ctx *web.FastRequestContext) trace.SpanContext {
	return trace.SpanContextFromContext(ctx.Context())
}
