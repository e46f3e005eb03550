package middleware

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/configs"
)

// CORSMiddleware 按 server.cors_origins 放行跨域请求.调试模式或配置 "*" 时允许任意来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowHeaders = append(config.AllowHeaders, "X-Role", "X-Auth-Request-Email", "X-Forwarded-Email")
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	// 上传实例与任务提交返回的资源位置
	config.ExposeHeaders = []string{"Location", "Retry-After"}

	if cfg.Debug || len(cfg.CORSOrigins) == 0 || slices.Contains(cfg.CORSOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.CORSOrigins
	}

	return cors.New(config)
}
