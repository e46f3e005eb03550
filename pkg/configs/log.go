package configs

import (
	"github.com/spf13/viper"
)

const (
	DefaultLogEnableFile = false
	DefaultLogFilePath   = "logs/advstorage.log"
	DefaultLogMaxSize    = 100 // MB
	DefaultLogMaxBackups = 7
	DefaultLogMaxAge     = 28 // 天
	DefaultLogCompress   = true
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// LogConfig 日志配置.
//
// Components 按组件覆盖级别，例如索引器扫描大目录时调到 warn，
// 排查迁移任务时把 movejob 调到 debug.键与 log.Component 的名称一致.
type LogConfig struct {
	EnableFile bool              `mapstructure:"enable_file"`
	FilePath   string            `mapstructure:"file_path"    rule:"required_if=EnableFile true"`
	MaxSize    int               `mapstructure:"max_size_mb"  rule:"min=0"`
	MaxBackups int               `mapstructure:"max_backups"  rule:"min=0"`
	MaxAge     int               `mapstructure:"max_age_days" rule:"min=0"`
	Compress   bool              `mapstructure:"compress"`
	Level      string            `mapstructure:"level"        rule:"omitempty,oneof=trace debug info warn error"`
	Format     string            `mapstructure:"format"       rule:"omitempty,oneof=console json"`
	Components map[string]string `mapstructure:"components"   rule:"dive,keys,required,endkeys,oneof=trace debug info warn error disabled"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.enable_file", DefaultLogEnableFile)
	v.SetDefault("log.file_path", DefaultLogFilePath)
	v.SetDefault("log.max_size_mb", DefaultLogMaxSize)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", DefaultLogMaxAge)
	v.SetDefault("log.compress", DefaultLogCompress)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
	v.SetDefault("log.components", map[string]string{})
}
