package metrics

import "github.com/prometheus/client_golang/prometheus"

// 存储布局相关指标，未启用 Metrics 时只计数不导出.
var (
	// ObjectsCreated 存储区写入的附件数.
	ObjectsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "advst_objects_created_total",
		Help: "Number of attachments written to the storage area",
	})

	// ObjectsRemoved 删除的附件数，mode 为 immediate、delayed 或 skipped（非拥有者）.
	ObjectsRemoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "advst_objects_removed_total",
		Help: "Number of attachments removed from the storage area",
	}, []string{"mode"})

	// PathFallbacks 因路径过长或可疑而回退到旧布局的次数.
	PathFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "advst_path_fallbacks_total",
		Help: "Number of generated paths replaced by the legacy layout",
	}, []string{"reason"})

	// IndexerFiles 索引器处理的文件，result 为 new、changed、unchanged、deleted、skipped 或 error.
	IndexerFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "advst_indexer_files_total",
		Help: "Number of files handled by the folder indexer",
	}, []string{"result"})

	// IndexerSweeps 完成的扫描轮数.
	IndexerSweeps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "advst_indexer_sweeps_total",
		Help: "Number of completed indexer sweeps",
	})

	// PendingDeletions 延迟删除队列长度.
	PendingDeletions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "advst_pending_deletions",
		Help: "Number of files waiting in the delayed deletion queue",
	})

	// MovedInstances 迁移任务处理的实例数，result 为 success 或 failure.
	MovedInstances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "advst_moved_instances_total",
		Help: "Number of instances handled by storage move jobs",
	}, []string{"result"})
)

func domainCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		ObjectsCreated,
		ObjectsRemoved,
		PathFallbacks,
		IndexerFiles,
		IndexerSweeps,
		PendingDeletions,
		MovedInstances,
	}
}
