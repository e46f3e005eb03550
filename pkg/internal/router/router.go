// Package router 管理路由配置，将路径绑定到 pkg/internal/handle 中的处理器.
package router

import (
	"github.com/gin-gonic/gin"
)

// Register 注册全部业务路由.advanced 为 false 时不挂载 /plugins/advanced-storage.
func Register(g *gin.RouterGroup, advanced bool) {
	if advanced {
		RegisterAdvancedStorageRoutes(g)
	}

	RegisterInstanceRoutes(g)
	RegisterJobRoutes(g)
	RegisterHealthCheckRoute(g)
	RegisterSchedulerRoutes(g)
}
