package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAdvancedStorageEnable = false
	DefaultNamingScheme          = "OrthancDefault"
	DefaultMaxPathLength         = 256

	DefaultIndexerInterval      = 10 // 两次扫描的间隔（秒）
	DefaultIndexerThrottleDelay = 0  // 每个文件之间的等待（毫秒）

	DefaultDeletionThrottleDelay = 0
	DefaultDeletionQueue         = "db" // 延迟删除队列的后端

	DefaultJobHistoryHours = 168 // 已结束任务的保留时间，0 表示不保留
)

type (
	// AdvancedStorageConfig 高级存储布局配置.
	AdvancedStorageConfig struct {
		Enable                 bool                   `mapstructure:"enable"`
		NamingScheme           string                 `mapstructure:"naming_scheme"            rule:"required"`
		MaxPathLength          int                    `mapstructure:"max_path_length"          rule:"min=64,max=4096"`
		OtherAttachmentsPrefix string                 `mapstructure:"other_attachments_prefix"`
		MultipleStorages       MultipleStoragesConfig `mapstructure:"multiple_storages"`
		Indexer                IndexerConfig          `mapstructure:"indexer"`
		DelayedDeletion        DelayedDeletionConfig  `mapstructure:"delayed_deletion"`
		JobHistoryHours        int                    `mapstructure:"job_history_hours"        rule:"min=0"`
	}

	// MultipleStoragesConfig 多存储池配置.列表形式，避免 viper 把 map 键转成小写.
	MultipleStoragesConfig struct {
		Storages            []StoragePoolConfig `mapstructure:"storages"              rule:"dive"`
		CurrentWriteStorage string              `mapstructure:"current_write_storage"`
	}

	// StoragePoolConfig 单个存储池.
	StoragePoolConfig struct {
		ID   string `mapstructure:"id"   rule:"required,storageid"`
		Path string `mapstructure:"path" rule:"required,abspath"`
	}

	// IndexerConfig 目录索引器配置.
	IndexerConfig struct {
		Enable            bool     `mapstructure:"enable"`
		Folders           []string `mapstructure:"folders"            rule:"dive,abspath"`
		Interval          int      `mapstructure:"interval"           rule:"min=1"`
		ThrottleDelayMs   int      `mapstructure:"throttle_delay_ms"  rule:"min=0"`
		ParsedExtensions  []string `mapstructure:"parsed_extensions"  rule:"dive,fileext"`
		SkippedExtensions []string `mapstructure:"skipped_extensions" rule:"dive,fileext"`
		TakeOwnership     bool     `mapstructure:"take_ownership"`
		Watch             bool     `mapstructure:"watch"` // fsnotify 提前唤醒
	}

	// DelayedDeletionConfig 延迟删除配置.
	DelayedDeletionConfig struct {
		Enable          bool   `mapstructure:"enable"`
		ThrottleDelayMs int    `mapstructure:"throttle_delay_ms" rule:"min=0"`
		Queue           string `mapstructure:"queue"             rule:"oneof=memory redis db"`
	}
)

// GetJobHistoryRetention 返回任务历史的保留时间.
func (c *AdvancedStorageConfig) GetJobHistoryRetention() time.Duration {
	return time.Duration(c.JobHistoryHours) * time.Hour
}

// GetInterval 返回扫描间隔.
func (c *IndexerConfig) GetInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// GetThrottleDelay 返回每个文件之间的等待时间.
func (c *IndexerConfig) GetThrottleDelay() time.Duration {
	return time.Duration(c.ThrottleDelayMs) * time.Millisecond
}

// GetThrottleDelay 返回每次删除之间的等待时间.
func (c *DelayedDeletionConfig) GetThrottleDelay() time.Duration {
	return time.Duration(c.ThrottleDelayMs) * time.Millisecond
}

func (c *AdvancedStorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("advanced_storage.enable", DefaultAdvancedStorageEnable)
	v.SetDefault("advanced_storage.naming_scheme", DefaultNamingScheme)
	v.SetDefault("advanced_storage.max_path_length", DefaultMaxPathLength)
	v.SetDefault("advanced_storage.other_attachments_prefix", "")

	v.SetDefault("advanced_storage.multiple_storages.storages", []map[string]string{})
	v.SetDefault("advanced_storage.multiple_storages.current_write_storage", "")

	v.SetDefault("advanced_storage.indexer.enable", false)
	v.SetDefault("advanced_storage.indexer.folders", []string{})
	v.SetDefault("advanced_storage.indexer.interval", DefaultIndexerInterval)
	v.SetDefault("advanced_storage.indexer.throttle_delay_ms", DefaultIndexerThrottleDelay)
	v.SetDefault("advanced_storage.indexer.parsed_extensions", []string{})
	v.SetDefault("advanced_storage.indexer.skipped_extensions", []string{})
	v.SetDefault("advanced_storage.indexer.take_ownership", false)
	v.SetDefault("advanced_storage.indexer.watch", false)

	v.SetDefault("advanced_storage.delayed_deletion.enable", false)
	v.SetDefault("advanced_storage.delayed_deletion.throttle_delay_ms", DefaultDeletionThrottleDelay)
	v.SetDefault("advanced_storage.delayed_deletion.queue", DefaultDeletionQueue)

	v.SetDefault("advanced_storage.job_history_hours", DefaultJobHistoryHours)
}
