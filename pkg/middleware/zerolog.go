package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	ctxPkg "github.com/yeisme/advstorage/pkg/context"
	"github.com/yeisme/advstorage/pkg/log"
)

// GinLoggerMiddleware 用 zerolog 记录请求.
//
// 探活和指标抓取降为 Debug，4xx 为 Warn，5xx 为 Error；字段带上路由模板、调用方与角色，
// 同一请求的日志可以通过 trace_id 和存储区日志关联.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		logger := ctxPkg.WithTraceContext(c.Request.Context(), log.Component("http"))

		var event *zerolog.Event

		switch {
		case status >= http.StatusInternalServerError:
			event = logger.Error()
		case status >= http.StatusBadRequest:
			event = logger.Warn()
		case isSkippedPath(c.Request.URL.Path, untracedPrefixes):
			event = logger.Debug()
		default:
			event = logger.Info()
		}

		event = event.
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", c.FullPath()).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Str("role", GetRole(c).String())

		if q := c.Request.URL.RawQuery; q != "" {
			event = event.Str("query", q)
		}

		if caller := GetCaller(c); caller != "" {
			event = event.Str("caller", caller)
		}

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.Msg("http request")
	}
}
