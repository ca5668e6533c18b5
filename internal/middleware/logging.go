package middleware

import (
	"time"

	"github.com/valyala/fasthttp"

	"filebrowser/internal/log"
)

// LoggingMiddleware 5xx 记为 Warn，重定向带上目标地址
func LoggingMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		next(ctx)

		status := ctx.Response.StatusCode()
		logf := log.Logger.Infof
		if status >= fasthttp.StatusInternalServerError {
			logf = log.Logger.Warnf
		}

		site := ctx.Request.Header.Peek("X-Site-ID")
		if location := ctx.Response.Header.Peek("Location"); status == fasthttp.StatusFound && len(location) > 0 {
			logf("%s %s [site=%s] - %d -> %s - %v", ctx.Method(), ctx.RequestURI(), site, status, location, time.Since(start))
			return
		}
		logf("%s %s [site=%s] - %d - %v", ctx.Method(), ctx.RequestURI(), site, status, time.Since(start))
	}
}

func CORSMiddleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
		ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Response.Header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Site-ID, X-Requested-With")

		if ctx.IsOptions() {
			ctx.SetStatusCode(fasthttp.StatusOK)
			return
		}

		next(ctx)
	}
}
