package model

import "time"

// Attachment 实例的附件，CustomData 保存对象位置记录.
type Attachment struct {
	UUID        string `gorm:"primaryKey;size:36"                   json:"uuid"`
	InstanceID  string `gorm:"size:44;uniqueIndex:idx_instance_type" json:"instance_id"`
	ContentType int    `gorm:"uniqueIndex:idx_instance_type"        json:"content_type"`
	Size        int64  `json:"size"`
	Compression int    `json:"compression"`
	CustomData  []byte `json:"custom_data,omitempty"`
	CreatedAt   time.Time
}

// TableName 表名.
func (Attachment) TableName() string { return "advst_attachments" }
