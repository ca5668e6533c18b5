package middleware

import (
	"time"

	"github.com/valyala/fasthttp"

	"filebrowser/internal/metrics"
)

func MetricsMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		metrics.IncrementRequests()
		metrics.IncrementActiveRequests()

		defer func() {
			metrics.DecrementActiveRequests()
			duration := time.Since(start)
			metrics.RecordResponseTime(duration)
			metrics.RecordHTTPRequest(string(ctx.Method()), routeLabel(string(ctx.Path())), ctx.Response.StatusCode(), duration)
		}()

		next(ctx)

		if ctx.Response.StatusCode() >= 400 {
			metrics.IncrementErrors()
		}
	}
}

var routes = map[string]bool{
	"/browse/": true, "/mkdir/": true, "/rename/": true, "/delete/": true,
	"/check_file/": true, "/upload_file/": true, "/settings/": true,
	"/health": true, "/ready": true, "/metrics": true, "/metrics/prometheus": true,
}

// routeLabel 未知路径统一归为 other
func routeLabel(path string) string {
	if routes[path] {
		return path
	}
	return "other"
}
