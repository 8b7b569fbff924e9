package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/fluxorio/mtp/pkg/web"
	"github.com/valyala/fasthttp"
)

// CachingConfig configures long-lived caching headers for static assets
type CachingConfig struct {
	// TTL is the max-age advertised to clients
	TTL time.Duration

	// Prefixes are the path prefixes receiving the headers
	Prefixes []string

	// LastModified is advertised on every cached response
	LastModified time.Time
}

// DefaultCachingConfig caches assets, scripts and source maps for four years
func DefaultCachingConfig() CachingConfig {
	return CachingConfig{
		TTL:          1461 * 24 * time.Hour,
		Prefixes:     []string{"/assets/", "/scripts/", "/maps/"},
		LastModified: time.Now(),
	}
}

// CachingHeaders sets Cache-Control, Pragma, Expires and Last-Modified on
// matching paths
func CachingHeaders(config CachingConfig) web.FastMiddleware {
	cacheControl := fmt.Sprintf("max-age=%d, public", int64(config.TTL/time.Second))
	lastModified := config.LastModified
	if lastModified.IsZero() {
		lastModified = time.Now()
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			path := string(ctx.Path())
			matched := false
			for _, prefix := range config.Prefixes {
				if strings.HasPrefix(path, prefix) {
					matched = true
					break
				}
			}
			if !matched {
				return next(ctx)
			}

			err := next(ctx)

			h := &ctx.RequestCtx.Response.Header
			h.Set(fasthttp.HeaderCacheControl, cacheControl)
			h.Set(fasthttp.HeaderPragma, "cache")
			h.Set(fasthttp.HeaderExpires, time.Now().Add(config.TTL).UTC().Format(time.RFC1123))
			h.Set(fasthttp.HeaderLastModified, lastModified.UTC().Format(time.RFC1123))
			return err
		}
	}
}
