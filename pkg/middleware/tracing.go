package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/advstorage/pkg/tracing"
)

// untracedPrefixes 探活与指标抓取不产生 span.
var untracedPrefixes = []string{"/health", "/metrics"}

// TracingMiddleware 为每个请求创建 server span，名称为 "METHOD route"，
// 存储区、目录和迁移任务的 span 都挂在它下面.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, untracedPrefixes) {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracing.StartSpan(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("url.path", c.Request.URL.Path),
				attribute.String("client.address", c.ClientIP()),
				attribute.String("user_agent.original", c.Request.UserAgent()),
			),
		)
		defer span.End()

		if id := c.Param("id"); id != "" {
			span.SetAttributes(attribute.String("advst.resource_id", id))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))

		switch {
		case len(c.Errors) > 0:
			span.SetStatus(codes.Error, strings.Join(c.Errors.Errors(), "; "))
		case status >= http.StatusInternalServerError:
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
