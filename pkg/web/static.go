package web

import (
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// StaticConfig configures the webapp file handler
type StaticConfig struct {
	Root string
	// Dist serves "/", "/index.html", "/assets/" and "/scripts/" from
	// Root/dist, where the production build lands
	Dist bool
	// CacheDuration is how long fasthttp keeps open file handles
	CacheDuration time.Duration
}

// distPrefixes are served from the production build directory
var distPrefixes = []string{"/assets/", "/scripts/"}

// StaticHandler serves the webapp from disk. HTML is served as utf-8.
func StaticHandler(config StaticConfig) FastRequestHandler {
	fs := &fasthttp.FS{
		Root:               config.Root,
		IndexNames:         []string{"index.html"},
		AcceptByteRange:    true,
		CacheDuration:      config.CacheDuration,
		PathNotFound:       notFoundJSON,
		SkipCache:          config.CacheDuration <= 0,
		GenerateIndexPages: false,
	}
	if config.Dist {
		fs.PathRewrite = distRewrite
	}
	serve := fs.NewRequestHandler()

	return func(ctx *FastRequestContext) error {
		method := string(ctx.Method())
		if method != fasthttp.MethodGet && method != fasthttp.MethodHead {
			return ctx.Fail(fasthttp.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		}
		serve(ctx.RequestCtx)

		path := string(ctx.Path())
		if path == "/" || strings.HasSuffix(path, ".html") {
			if ctx.RequestCtx.Response.StatusCode() == fasthttp.StatusOK {
				ctx.RequestCtx.SetContentType("text/html; charset=utf-8")
			}
		}
		return nil
	}
}

func distRewrite(ctx *fasthttp.RequestCtx) []byte {
	path := string(ctx.Path())
	if path == "/" || path == "/index.html" {
		return []byte("/dist" + path)
	}
	for _, prefix := range distPrefixes {
		if strings.HasPrefix(path, prefix) {
			return []byte("/dist" + path)
		}
	}
	return ctx.Path()
}

func notFoundJSON(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"code":"NOT_FOUND","message":"resource not found"}`)
}
