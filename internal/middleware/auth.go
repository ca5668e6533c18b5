package middleware

import (
	"crypto/subtle"
	"net/url"
	"strings"

	"github.com/valyala/fasthttp"

	"filebrowser/internal/config"
)

// StaffAuthMiddleware 所有浏览和变更操作都要求管理员身份。
// 依次接受 Bearer token、X-API-Key 和会话 cookie；浏览器请求被重定向到登录页。
func StaffAuthMiddleware(cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if !cfg.Auth.Enabled || isStaff(ctx, &cfg.Auth) {
				next(ctx)
				return
			}

			if wantsJSON(ctx) {
				ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
				ctx.Error("Authorization required", fasthttp.StatusUnauthorized)
				return
			}

			target := cfg.Auth.LoginURL + "?next=" + url.QueryEscape(string(ctx.RequestURI()))
			// 保持相对地址，不用 ctx.Redirect 拼出带 host 的绝对 URL
			ctx.Response.Header.Set("Location", target)
			ctx.SetStatusCode(fasthttp.StatusFound)
		}
	}
}

func isStaff(ctx *fasthttp.RequestCtx, auth *config.AuthConfig) bool {
	if h := string(ctx.Request.Header.Peek("Authorization")); strings.HasPrefix(h, "Bearer ") {
		if validToken(strings.TrimPrefix(h, "Bearer "), auth.StaffTokens) {
			return true
		}
	}

	apiKey := string(ctx.Request.Header.Peek("X-API-Key"))
	if apiKey == "" {
		apiKey = string(ctx.QueryArgs().Peek("api_key"))
	}
	if apiKey != "" && auth.APIKey != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(auth.APIKey)) == 1 {
		return true
	}

	if auth.Cookie != "" {
		if c := ctx.Request.Header.Cookie(auth.Cookie); len(c) > 0 {
			return validToken(string(c), auth.StaffTokens)
		}
	}
	return false
}

func validToken(token string, tokens []string) bool {
	if token == "" {
		return false
	}
	for _, t := range tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(t)) == 1 {
			return true
		}
	}
	return false
}

func wantsJSON(ctx *fasthttp.RequestCtx) bool {
	if len(ctx.Request.Header.Peek("Authorization")) > 0 || len(ctx.Request.Header.Peek("X-API-Key")) > 0 {
		return true
	}
	if string(ctx.Request.Header.Peek("X-Requested-With")) == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(string(ctx.Request.Header.Peek("Accept")), "application/json")
}
