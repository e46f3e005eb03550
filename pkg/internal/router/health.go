package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册汇总与单组件的健康检查.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	g.GET("/health", handle.Health)
	g.GET("/health/:component", handle.HealthComponent)
}
