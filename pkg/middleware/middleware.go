// Package middleware 提供 gin 中间件：日志、追踪、指标、认证、限流、熔断以及依赖注入.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/advstorage/pkg/context"
	"github.com/yeisme/advstorage/pkg/internal/service"
	"github.com/yeisme/advstorage/pkg/internal/storage"
	"github.com/yeisme/advstorage/pkg/scheduler"
)

// depKey 每种依赖类型对应一个独立的 context 键.
type depKey[T any] struct{}

func inject[T any](v T) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), depKey[T]{}, v))
		c.Next()
	}
}

func lookup[T any](c *gin.Context) T {
	v, _ := c.Request.Context().Value(depKey[T]{}).(T)

	return v
}

// ServiceMiddleware 注入高级存储服务.
func ServiceMiddleware(svc *service.Service) gin.HandlerFunc {
	return inject(svc)
}

// GetService 返回高级存储服务，未注入时为 nil.
func GetService(c *gin.Context) *service.Service {
	return lookup[*service.Service](c)
}

// SchedulerMiddleware 注入调度器，供 /scheduler 接口使用.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return inject(sched)
}

// GetScheduler 返回调度器，未注入时为 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	return lookup[*scheduler.Scheduler](c)
}

// StorageMiddleware 注入存储资源，健康检查通过 pkg/context 读取.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxPkg.WithStorageManager(c.Request.Context(), manager))
		c.Next()
	}
}

// BodyLimitMiddleware 限制请求体大小，limit 不大于 0 时不限制.
// 超限在读取时以 *http.MaxBytesError 报告，由处理器转换为 413.
func BodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()
	}
}
