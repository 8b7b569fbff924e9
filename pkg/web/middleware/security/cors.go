package security

import (
	"strconv"
	"strings"

	"github.com/fluxorio/mtp/pkg/web"
	"github.com/valyala/fasthttp"
)

// CORSConfig configures cross-origin access, used by the dev profile where
// the webapp is served by a separate dev server
type CORSConfig struct {
	// AllowedOrigins lists allowed origins; "*" allows any
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge caches preflight responses, in seconds
	MaxAge int
}

// DefaultCORSConfig returns a permissive development configuration
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         1800,
	}
}

// CORS answers preflight requests and decorates cross-origin responses
func CORS(config CORSConfig) web.FastMiddleware {
	origins := make(map[string]bool, len(config.AllowedOrigins))
	anyOrigin := false
	for _, o := range config.AllowedOrigins {
		if o == "*" {
			anyOrigin = true
		}
		origins[o] = true
	}
	methods := strings.Join(config.AllowedMethods, ", ")
	allowHeaders := strings.Join(config.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposedHeaders, ", ")

	allowOrigin := func(origin string) string {
		switch {
		case origin == "":
			return ""
		case anyOrigin && !config.AllowCredentials:
			return "*"
		case anyOrigin || origins[origin]:
			return origin
		}
		return ""
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			h := &ctx.RequestCtx.Response.Header
			origin := ctx.Header("Origin")
			allowed := allowOrigin(origin)
			if origin != "" {
				h.Add(fasthttp.HeaderVary, "Origin")
			}

			preflight := string(ctx.Method()) == fasthttp.MethodOptions &&
				ctx.Header("Access-Control-Request-Method") != ""
			if preflight {
				if allowed != "" {
					h.Set("Access-Control-Allow-Origin", allowed)
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", allowHeaders)
					if config.AllowCredentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if config.MaxAge > 0 {
						h.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
					}
				}
				ctx.RequestCtx.SetStatusCode(fasthttp.StatusNoContent)
				return nil
			}

			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if exposeHeaders != "" {
					h.Set("Access-Control-Expose-Headers", exposeHeaders)
				}
				if config.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
			}
			return next(ctx)
		}
	}
}
