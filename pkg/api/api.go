// Package api 组装 HTTP 接口：中间件链与全部路由.
package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/internal/router"
	"github.com/yeisme/advstorage/pkg/internal/service"
	"github.com/yeisme/advstorage/pkg/internal/storage"
	"github.com/yeisme/advstorage/pkg/middleware"
	"github.com/yeisme/advstorage/pkg/scheduler"
)

// Deps HTTP 层依赖.
type Deps struct {
	Config    *configs.AppConfig
	Storage   *storage.Manager
	Scheduler *scheduler.Scheduler
	Service   *service.Service
}

// NewEngine 创建 gin 引擎并注册路由.
func NewEngine(d Deps) *gin.Engine {
	e := gin.New()
	RegisterGroup(e, d)

	return e
}

// RegisterGroup 在引擎上挂载中间件与路由.
func RegisterGroup(e *gin.Engine, d Deps) *gin.Engine {
	cfg := d.Config

	// 未启用认证时不区分调用方
	defaultRole := middleware.RoleAdmin
	if cfg.Auth.Enabled {
		defaultRole = middleware.RoleViewer
	}

	e.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.CORSMiddleware(cfg.Server),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})),
		middleware.CircuitBreakerMiddleware(cfg.CircuitBreaker),
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.AuthMiddleware(cfg.Auth),
		middleware.BodyLimitMiddleware(cfg.Server.GetMaxUploadBytes()),
		middleware.RoleMiddleware(defaultRole),
		middleware.StorageMiddleware(d.Storage),
		middleware.SchedulerMiddleware(d.Scheduler),
		middleware.ServiceMiddleware(d.Service),
	)

	router.Register(&e.RouterGroup, d.Service != nil && d.Service.Enabled())

	return e
}
