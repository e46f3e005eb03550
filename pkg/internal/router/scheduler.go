package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/internal/handle"
	"github.com/yeisme/advstorage/pkg/middleware"
)

// RegisterSchedulerRoutes 注册维护任务的查询与管理路由，修改操作需要 admin.
func RegisterSchedulerRoutes(g *gin.RouterGroup) {
	sg := g.Group("/scheduler")
	admin := middleware.RequireMinRole(middleware.RoleAdmin)

	sg.GET("/jobs", handle.SchedulerJobs)
	sg.GET("/jobs/:name", handle.SchedulerJob)
	sg.POST("/jobs/:name/run", admin, handle.SchedulerRunJob)
	sg.DELETE("/jobs/:name", admin, handle.SchedulerRemoveJob)

	sg.GET("/queue/waiting", handle.SchedulerQueueWaiting)
}
