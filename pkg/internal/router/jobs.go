package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/internal/handle"
	"github.com/yeisme/advstorage/pkg/middleware"
)

// RegisterJobRoutes 注册迁移任务路由.
func RegisterJobRoutes(g *gin.RouterGroup) {
	jobRoutes := g.Group("/jobs")
	{
		jobRoutes.GET("", handle.ListJobs)
		jobRoutes.GET("/:id", handle.GetJob)
		jobRoutes.POST("/:id/cancel", middleware.RequireMinRole(middleware.RoleAdmin), handle.CancelJob)
		jobRoutes.POST("/:id/resubmit", middleware.RequireMinRole(middleware.RoleAdmin), handle.ResubmitJob)
	}
}
