package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/log"
)

// errServerStatus 标记 5xx 响应，计入熔断失败次数.
var errServerStatus = errors.New("server error status")

// CircuitBreakerMiddleware 基于 gobreaker 的熔断，5xx 计为失败，跳过路径不参与统计.
func CircuitBreakerMiddleware(cfg configs.CircuitBreakerConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	settings := gobreaker.Settings{
		Name:        "advstorage-http",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    cfg.GetInterval(),
		Timeout:     cfg.GetTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ShouldTrip(counts.Requests, counts.TotalFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Component("http").Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	cb := gobreaker.NewCircuitBreaker(settings)

	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		_, err := cb.Execute(func() (any, error) {
			c.Next()
			// 将 5xx 视为失败
			const firstServerErr = http.StatusInternalServerError

			status := c.Writer.Status()
			if status >= firstServerErr {
				return nil, errServerStatus
			}

			return nil, nil
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.Header("Retry-After", strconv.Itoa(int(cfg.GetTimeout().Seconds())))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
			return
		}
	}
}
