package queue

// Payload 事件负载，Topic 决定发布到哪个主题.
type Payload interface {
	Topic() string
}

// -------------------------- 存储区对象领域 --------------------------

// ObjectRef 标识存储区中的一个附件文件.
type ObjectRef struct {
	UUID        string `json:"uuid"`
	ContentType string `json:"content_type"`
	StorageID   string `json:"storage_id,omitempty"` // 多存储池时的存储池 id
	Path        string `json:"path"`                 // 绝对路径
	Size        int64  `json:"size,omitempty"`
}

// ObjectStoredPayload 附件已写入存储区.
type ObjectStoredPayload struct {
	Object ObjectRef `json:"object"`
	// Fallback 路径回退原因（too_long/suspicious），未回退时为空.
	Fallback string `json:"fallback,omitempty"`
}

// ObjectRemovedPayload 附件被删除.
type ObjectRemovedPayload struct {
	Object ObjectRef `json:"object"`
	// Mode immediate、delayed 或 skipped（文件不属于宿主，保留在磁盘上）.
	Mode string `json:"mode"`
}

// ObjectAdoptedPayload 外部文件被采纳.
type ObjectAdoptedPayload struct {
	Object        ObjectRef `json:"object"`
	InstanceID    string    `json:"instance_id"`
	TakeOwnership bool      `json:"take_ownership"`
	Source        string    `json:"source,omitempty"` // indexer 或 rest
}

// ObjectAbandonedPayload 采纳的文件被放弃.
type ObjectAbandonedPayload struct {
	Path       string `json:"path"`
	InstanceID string `json:"instance_id,omitempty"`
	Source     string `json:"source,omitempty"`
}

// ObjectMovedPayload 实例附件已迁移.
type ObjectMovedPayload struct {
	InstanceID      string `json:"instance_id"`
	TargetStorageID string `json:"target_storage_id"`
	Attachments     int    `json:"attachments"`
}

// -------------------------- 后台任务领域 --------------------------

// JobFinishedPayload 迁移任务结束.
type JobFinishedPayload struct {
	JobID    string  `json:"job_id"`
	Type     string  `json:"type"`
	State    string  `json:"state"`
	Progress float32 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

func (ObjectStoredPayload) Topic() string    { return TopicObjectStored }
func (ObjectRemovedPayload) Topic() string   { return TopicObjectRemoved }
func (ObjectAdoptedPayload) Topic() string   { return TopicObjectAdopted }
func (ObjectAbandonedPayload) Topic() string { return TopicObjectAbandoned }
func (ObjectMovedPayload) Topic() string     { return TopicObjectMoved }
func (JobFinishedPayload) Topic() string     { return TopicJobFinished }
