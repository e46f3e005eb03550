package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobPendingDeletionsGauge = "advst.deleter.pending_gauge"
	JobMoveStoragePrefix     = "advst.move_storage."
	TagMoveStorage           = "move-storage"

	// HistoryNamespace KV 中任务历史的命名空间.
	HistoryNamespace = "advst-jobs"
)

// Cron 表达式常量.
const (
	CronPendingDeletionsGauge = "* * * * *"
)
