package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/advstorage/pkg/middleware"
	"github.com/yeisme/advstorage/pkg/scheduler"
)

func mustScheduler(c *gin.Context) (*scheduler.Scheduler, bool) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not initialized"})
		return nil, false
	}

	return sched, true
}

// SchedulerJobs 返回所有调度器任务信息，包括维护任务和执行中的迁移任务.
func SchedulerJobs(c *gin.Context) {
	sched, ok := mustScheduler(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerJob 按名称返回任务信息.
func SchedulerJob(c *gin.Context) {
	sched, ok := mustScheduler(c)
	if !ok {
		return
	}

	info, err := sched.GetJobInfoByName(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, info)
}

// SchedulerRunJob 立即触发一次周期任务，例如在批量删除后刷新待删除指标.
func SchedulerRunJob(c *gin.Context) {
	sched, ok := mustScheduler(c)
	if !ok {
		return
	}

	name := c.Param("name")
	if err := sched.RunNow(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "name": name})
}

// SchedulerRemoveJob 按名称或 ID 删除任务.
func SchedulerRemoveJob(c *gin.Context) {
	sched, ok := mustScheduler(c)
	if !ok {
		return
	}

	// 路径参数可以是任务名称，也可以是 gocron 任务 ID
	ref := c.Param("name")

	id, err := uuid.Parse(ref)
	if err != nil {
		info, lookupErr := sched.GetJobInfoByName(ref)
		if lookupErr != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": lookupErr.Error()})
			return
		}

		id = uuid.MustParse(info.ID)
	}

	if err := sched.RemoveJob(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}

// SchedulerQueueWaiting 返回队列中等待的任务数.
func SchedulerQueueWaiting(c *gin.Context) {
	sched, ok := mustScheduler(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"waiting": sched.JobsWaitingInQueue()})
}
