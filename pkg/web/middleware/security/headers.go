package security

import (
	"strconv"

	"github.com/fluxorio/mtp/pkg/web"
)

// HeadersConfig configures security response headers. Empty values are omitted.
type HeadersConfig struct {
	// HSTSMaxAge in seconds; 0 disables Strict-Transport-Security
	HSTSMaxAge     int
	HSTSIncludeSub bool

	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
	PermissionsPolicy     string
	NoSniff               bool
}

// DefaultHeadersConfig returns headers suited to the admin webapp
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		HSTSMaxAge:     31536000,
		HSTSIncludeSub: true,
		FrameOptions:   "DENY",
		ReferrerPolicy: "strict-origin-when-cross-origin",
		NoSniff:        true,
	}
}

// Headers adds the configured security headers to every response
func Headers(config HeadersConfig) web.FastMiddleware {
	var headers [][2]string
	if config.HSTSMaxAge > 0 {
		v := "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSub {
			v += "; includeSubDomains"
		}
		headers = append(headers, [2]string{"Strict-Transport-Security", v})
	}
	if config.ContentSecurityPolicy != "" {
		headers = append(headers, [2]string{"Content-Security-Policy", config.ContentSecurityPolicy})
	}
	if config.FrameOptions != "" {
		headers = append(headers, [2]string{"X-Frame-Options", config.FrameOptions})
	}
	if config.NoSniff {
		headers = append(headers, [2]string{"X-Content-Type-Options", "nosniff"})
	}
	if config.ReferrerPolicy != "" {
		headers = append(headers, [2]string{"Referrer-Policy", config.ReferrerPolicy})
	}
	if config.PermissionsPolicy != "" {
		headers = append(headers, [2]string{"Permissions-Policy", config.PermissionsPolicy})
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			for _, h := range headers {
				ctx.RequestCtx.Response.Header.Set(h[0], h[1])
			}
			return next(ctx)
		}
	}
}
