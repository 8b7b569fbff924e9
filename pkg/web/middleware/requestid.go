package middleware

import (
	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/web"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// RequestID reuses the caller's X-Request-ID or generates one, exposes it
// on the response and in the request's Go context
func RequestID() web.FastMiddleware {
	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			id := ctx.Header(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = core.NewRequestID()
			}
			ctx.Set(web.RequestIDKey, id)
			ctx.WithContext(core.WithRequestID(ctx.Context(), id))
			ctx.RequestCtx.Response.Header.Set(RequestIDHeader, id)
			return next(ctx)
		}
	}
}
