// Package types 定义 HTTP 接口的请求与响应结构，字段名沿用宿主 REST 接口的 PascalCase.
package types

// AdoptInstanceRequest 采纳文件请求.
type AdoptInstanceRequest struct {
	Path          string `json:"Path"          rule:"required,abspath"`
	TakeOwnership bool   `json:"TakeOwnership"`
}

// AdoptInstanceResponse 采纳结果.Status 取值 Success、AlreadyStored、Failure 等，
// 单个文件无法采纳时 Error 给出原因.
type AdoptInstanceResponse struct {
	InstanceID     string `json:"InstanceId,omitempty"`
	AttachmentUUID string `json:"AttachmentUuid,omitempty"`
	Status         string `json:"Status"`
	Error          string `json:"Error,omitempty"`
}

// AbandonInstanceRequest 放弃文件请求.
type AbandonInstanceRequest struct {
	Path string `json:"Path" rule:"required,abspath"`
}

// MoveStorageRequest 存储迁移请求，Resources 可以是任意层级的资源标识.
type MoveStorageRequest struct {
	Resources       []string `json:"Resources"       rule:"required,min=1,dive,required"`
	TargetStorageID string   `json:"TargetStorageId" rule:"required"`
}

// JobResponse 新建任务的引用.
type JobResponse struct {
	ID   string `json:"ID"`
	Path string `json:"Path"`
}

// StoreInstanceResponse 上传实例的结果.
type StoreInstanceResponse struct {
	ID             string `json:"ID"`
	Path           string `json:"Path"`
	AttachmentUUID string `json:"AttachmentUuid,omitempty"`
	Status         string `json:"Status"`
}
