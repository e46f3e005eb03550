// 主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：advst.<域>.<动作>，尽量稳定且向后兼容.
// 域：object(存储区对象)、job(后台任务)

const (
	// 存储区对象领域.
	TopicObjectStored    = "advst.object.stored"    // 附件已写入存储区
	TopicObjectRemoved   = "advst.object.removed"   // 附件已删除或交给延迟删除器
	TopicObjectAdopted   = "advst.object.adopted"   // 外部文件被采纳为实例
	TopicObjectAbandoned = "advst.object.abandoned" // 放弃采纳的文件
	TopicObjectMoved     = "advst.object.moved"     // 实例的附件迁移到另一个存储池

	// 后台任务领域.
	TopicJobFinished = "advst.job.finished" // 迁移任务结束（成功、失败或被取消）
)

// 主题分组，用于批量订阅.
var (
	// ObjectTopics 存储区对象相关主题集合.
	ObjectTopics = []string{
		TopicObjectStored, TopicObjectRemoved, TopicObjectAdopted,
		TopicObjectAbandoned, TopicObjectMoved,
	}

	// JobTopics 后台任务相关主题集合.
	JobTopics = []string{TopicJobFinished}
)
