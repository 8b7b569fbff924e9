package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluxorio/mtp/pkg/core"
	"github.com/fluxorio/mtp/pkg/web"
)

// LoggingConfig configures request logging middleware
type LoggingConfig struct {
	// Logger is the logger to use (default: core.NewDefaultLogger())
	Logger core.Logger

	// SkipPaths are path prefixes that are not logged
	SkipPaths []string
}

// DefaultLoggingConfig returns a default logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Logger:    core.NewDefaultLogger(),
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// Logging logs one line per completed request
func Logging(config LoggingConfig) web.FastMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = core.NewDefaultLogger()
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			path := string(ctx.Path())
			for _, skip := range config.SkipPaths {
				if strings.HasPrefix(path, skip) {
					return next(ctx)
				}
			}

			start := time.Now()
			method := string(ctx.Method())
			err := next(ctx)
			duration := time.Since(start)
			status := ctx.RequestCtx.Response.StatusCode()

			fields := map[string]interface{}{
				"method":      method,
				"path":        path,
				"status":      status,
				"duration_ms": duration.Milliseconds(),
				"remote_addr": ctx.RequestCtx.RemoteIP().String(),
			}
			l := logger.WithContext(ctx.Context()).WithFields(fields)

			switch {
			case err != nil:
				l.Error(fmt.Sprintf("%s %s failed: %v", method, path, err))
			case status >= 500:
				l.Error(fmt.Sprintf("%s %s %d", method, path, status))
			case status >= 400:
				l.Info(fmt.Sprintf("%s %s %d", method, path, status))
			default:
				l.Debug(fmt.Sprintf("%s %s %d", method, path, status))
			}
			return err
		}
	}
}
