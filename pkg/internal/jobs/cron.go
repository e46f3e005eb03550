// Package jobs 管理后台任务：存储迁移任务的执行与跟踪，以及周期性的维护任务（基于 scheduler）.
package jobs

import (
	"context"
	"fmt"

	"github.com/yeisme/advstorage/pkg/internal/storagearea"
	"github.com/yeisme/advstorage/pkg/log"
	"github.com/yeisme/advstorage/pkg/scheduler"
)

// RegisterCronJobs 配置维护任务：
//   - 每分钟刷新延迟删除队列长度指标
func RegisterCronJobs(sched *scheduler.Scheduler, area *storagearea.Area) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if area == nil {
		return fmt.Errorf("storage area is nil")
	}

	return sched.AddCron(JobPendingDeletionsGauge, CronPendingDeletionsGauge, func(ctx context.Context) {
		refreshPendingDeletions(ctx, area)
	}, context.Background())
}

// refreshPendingDeletions 查询队列长度，指标在查询时更新.
func refreshPendingDeletions(ctx context.Context, area *storagearea.Area) {
	d := area.Deleter()
	if d == nil {
		return
	}

	if _, err := d.PendingDeletionFilesCount(ctx); err != nil {
		log.Logger().Warn().Err(err).Str("job", JobPendingDeletionsGauge).Msg("refresh pending deletions failed")
	}
}
