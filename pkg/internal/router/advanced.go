package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/internal/handle"
	"github.com/yeisme/advstorage/pkg/middleware"
)

// RegisterAdvancedStorageRoutes 注册高级存储插件路由.
func RegisterAdvancedStorageRoutes(g *gin.RouterGroup) {
	pluginRoutes := g.Group("/plugins/advanced-storage")
	{
		pluginRoutes.GET("/status", handle.PluginStatus)

		pluginRoutes.POST("/adopt-instance", middleware.RequireMinRole(middleware.RoleOperator), handle.AdoptInstance)
		pluginRoutes.POST("/abandon-instance", middleware.RequireMinRole(middleware.RoleOperator), handle.AbandonInstance)
		pluginRoutes.POST("/move-storage", middleware.RequireMinRole(middleware.RoleAdmin), handle.MoveStorage)
	}
}
