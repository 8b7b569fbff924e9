package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/web"
	"github.com/valyala/fasthttp"
)

// RecoveryConfig configures panic recovery
type RecoveryConfig struct {
	Logger core.Logger

	// StackTrace logs the stack of the panicking goroutine
	StackTrace bool
}

// DefaultRecoveryConfig returns a default recovery configuration
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Logger:     core.NewDefaultLogger(),
		StackTrace: true,
	}
}

// Recovery turns a handler panic into a 500 response
func Recovery(config RecoveryConfig) web.FastMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					msg := fmt.Sprintf("panic serving %s %s: %v", ctx.Method(), ctx.Path(), r)
					if config.StackTrace {
						msg += "\n" + string(debug.Stack())
					}
					logger.WithContext(ctx.Context()).Error(msg)

					ctx.RequestCtx.ResetBody()
					err = ctx.Fail(fasthttp.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				}
			}()
			return next(ctx)
		}
	}
}
