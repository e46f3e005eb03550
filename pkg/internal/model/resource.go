package model

import "time"

// Resource 资源层级节点，患者、检查、序列、实例共用一张表.
type Resource struct {
	// 宿主风格的标识：SHA-1 按 8 位分组
	PublicID string `gorm:"primaryKey;size:44"       json:"id"`
	Level    int    `gorm:"index"                    json:"level"`
	ParentID string `gorm:"size:44;index"            json:"parent_id,omitempty"`
	// 主要标签，JSON 文本
	TagsJSON  string `gorm:"type:text" json:"tags_json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 表名.
func (Resource) TableName() string { return "advst_resources" }
