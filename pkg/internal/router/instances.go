package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/advstorage/pkg/internal/handle"
	"github.com/yeisme/advstorage/pkg/layout"
	"github.com/yeisme/advstorage/pkg/middleware"
)

// RegisterInstanceRoutes 注册宿主资源路由：上传、读取、删除与附件查询.
func RegisterInstanceRoutes(g *gin.RouterGroup) {
	operator := middleware.RequireMinRole(middleware.RoleOperator)

	g.POST("/instances", operator, handle.StoreInstance)

	instanceRoutes := g.Group("/instances/:id")
	{
		instanceRoutes.GET("/file", handle.GetInstanceFile)
		instanceRoutes.GET("/attachments", handle.ListAttachments)
		instanceRoutes.GET("/attachments/:name/info", handle.GetAttachmentInfo)
		instanceRoutes.DELETE("/attachments/:name", operator, handle.DeleteAttachment)
	}

	g.DELETE("/patients/:id", operator, handle.DeleteResource(layout.ResourcePatient))
	g.DELETE("/studies/:id", operator, handle.DeleteResource(layout.ResourceStudy))
	g.DELETE("/series/:id", operator, handle.DeleteResource(layout.ResourceSeries))
	g.DELETE("/instances/:id", operator, handle.DeleteResource(layout.ResourceInstance))
}
