package api

import (
	"strings"

	"filebrowser/internal/log"
	"filebrowser/internal/metrics"
	"filebrowser/internal/middleware"

	"github.com/valyala/fasthttp"
)

type route struct {
	method  string
	handler fasthttp.RequestHandler
}

func SetupRouter(h *API) fasthttp.RequestHandler {
	staff := middleware.StaffAuthMiddleware(h.config)

	// 浏览和变更都要求管理员身份，状态端点不需要
	routes := map[string]route{
		"/browse/":      {fasthttp.MethodGet, staff(h.Browse)},
		"/settings/":    {fasthttp.MethodGet, staff(h.Settings)},
		"/mkdir/":       {fasthttp.MethodPost, staff(h.MakeDir)},
		"/rename/":      {fasthttp.MethodPost, staff(h.Rename)},
		"/delete/":      {fasthttp.MethodPost, staff(h.Delete)},
		"/check_file/":  {fasthttp.MethodPost, staff(h.CheckFile)},
		"/upload_file/": {fasthttp.MethodPost, staff(h.UploadFile)},

		"/health":             {fasthttp.MethodGet, h.Health},
		"/ready":              {fasthttp.MethodGet, h.Ready},
		"/metrics":            {fasthttp.MethodGet, h.Metrics},
		"/metrics/prometheus": {fasthttp.MethodGet, metrics.Handler()},
	}

	mediaPrefix := ""
	if strings.HasPrefix(h.config.MediaURL, "/") {
		mediaPrefix = "/" + strings.Trim(h.config.MediaURL, "/") + "/"
	}

	return middleware.CORSMiddleware(
		middleware.LoggingMiddleware(
			middleware.MetricsMiddleware(
				func(ctx *fasthttp.RequestCtx) {
					path := string(ctx.Path())
					method := string(ctx.Method())

					log.Logger.Debugf("Request: %s %s", method, path)

					if r, ok := routes[path]; ok {
						if method != r.method && !(method == fasthttp.MethodHead && r.method == fasthttp.MethodGet) {
							ctx.Response.Header.Set("Allow", r.method)
							h.sendJSONError(ctx, "Method not allowed", fasthttp.StatusMethodNotAllowed)
							return
						}
						r.handler(ctx)
						return
					}

					// 存储中的文件，按 media-url 暴露
					if mediaPrefix != "/" && mediaPrefix != "" && strings.HasPrefix(path, mediaPrefix) &&
						(ctx.IsGet() || ctx.IsHead()) {
						h.Media(ctx, strings.TrimPrefix(path, mediaPrefix))
						return
					}

					if path == "/" && ctx.IsGet() {
						ctx.Redirect(browseURL, fasthttp.StatusFound)
						return
					}

					ctx.Error("Not Found", fasthttp.StatusNotFound)
				},
			),
		),
	)
}
