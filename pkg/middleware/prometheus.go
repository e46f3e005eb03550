package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/metrics"
)

// PrometheusMiddleware 记录请求数、耗时与请求体大小.
//
// endpoint 标签使用路由模板（如 /instances/:id/file），资源 ID 不进入标签.抓取 /metrics 本身不计入.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()

		metrics.InflightRequests.Inc()
		defer metrics.InflightRequests.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		method := c.Request.Method

		metrics.RequestCounter.WithLabelValues(method, endpoint, statusClass(c.Writer.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())

		if c.Request.ContentLength > 0 {
			metrics.RequestSize.WithLabelValues(method, endpoint).Observe(float64(c.Request.ContentLength))
		}
	}
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
