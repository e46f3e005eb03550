package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListJobs 返回全部迁移任务.
func ListJobs(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	list, err := svc.Jobs().List(c.Request.Context())
	if err != nil {
		respondError(c, err, "list jobs failed")
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetJob 返回单个任务.
func GetJob(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	info, err := svc.Jobs().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "get job failed")
		return
	}

	c.JSON(http.StatusOK, info)
}

// CancelJob 停止任务.
func CancelJob(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	if err := svc.Jobs().Cancel(c.Param("id")); err != nil {
		respondError(c, err, "cancel job failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

// ResubmitJob 重新执行失败或已停止的任务.
func ResubmitJob(c *gin.Context) {
	svc, ok := mustService(c)
	if !ok {
		return
	}

	if err := svc.Jobs().Resubmit(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "resubmit job failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
