package configs

import "github.com/spf13/viper"

const (
	DefaultStorageDirectory   = "/var/lib/advstorage/storage" // 默认存储目录
	DefaultOverwriteInstances = false
	DefaultSyncStorageArea    = true // 写入后 fsync
)

// HostConfig 宿主级别的存储配置.
type HostConfig struct {
	StorageDirectory   string `mapstructure:"storage_directory"   rule:"required,abspath"`
	OverwriteInstances bool   `mapstructure:"overwrite_instances"`
	SyncStorageArea    bool   `mapstructure:"sync_storage_area"`
}

func (c *HostConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("host.storage_directory", DefaultStorageDirectory)
	v.SetDefault("host.overwrite_instances", DefaultOverwriteInstances)
	v.SetDefault("host.sync_storage_area", DefaultSyncStorageArea)
}
