package middleware

import (
	"strings"

	"github.com/fluxorio/mtp/pkg/web"
	"github.com/valyala/fasthttp"
)

// CompressionConfig configures response compression
type CompressionConfig struct {
	// Level is the gzip level (1-9, default: 6)
	Level int

	// MinSize is the minimum body size to compress
	MinSize int

	// ContentTypes are the compressible content type prefixes
	ContentTypes []string

	// SkipPaths are path prefixes never compressed
	SkipPaths []string
}

// DefaultCompressionConfig returns a default compression configuration
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level:   6,
		MinSize: 1024,
		ContentTypes: []string{
			"text/",
			"application/json",
			"application/javascript",
			"image/svg+xml",
		},
		SkipPaths: []string{"/metrics"},
	}
}

// Compression gzips responses for clients that accept it
func Compression(config CompressionConfig) web.FastMiddleware {
	level := config.Level
	if level < 1 || level > 9 {
		level = 6
	}
	contentTypes := config.ContentTypes
	if len(contentTypes) == 0 {
		contentTypes = DefaultCompressionConfig().ContentTypes
	}

	return func(next web.FastRequestHandler) web.FastRequestHandler {
		return func(ctx *web.FastRequestContext) error {
			path := string(ctx.Path())
			for _, skip := range config.SkipPaths {
				if strings.HasPrefix(path, skip) {
					return next(ctx)
				}
			}

			err := next(ctx)
			if err != nil || !ctx.RequestCtx.Request.Header.HasAcceptEncoding("gzip") {
				return err
			}

			resp := &ctx.RequestCtx.Response
			if len(resp.Header.ContentEncoding()) > 0 || resp.IsBodyStream() {
				return nil
			}
			body := resp.Body()
			if len(body) < config.MinSize || !compressible(string(resp.Header.ContentType()), contentTypes) {
				return nil
			}

			compressed := fasthttp.AppendGzipBytesLevel(nil, body, level)
			resp.SetBodyRaw(compressed)
			resp.Header.SetContentEncoding("gzip")
			resp.Header.Add(fasthttp.HeaderVary, fasthttp.HeaderAcceptEncoding)
			return nil
		}
	}
}

func compressible(contentType string, prefixes []string) bool {
	contentType = strings.ToLower(contentType)
	for _, p := range prefixes {
		if strings.HasPrefix(contentType, p) {
			return true
		}
	}
	return false
}
