package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPort         = 8042
	DefaultHost         = "0.0.0.0"
	DefaultReloadConfig = true
	DefaultDebug        = false
	DefaultTimeout      = 30  // 读取请求头的超时（秒）
	DefaultMaxUploadMB  = 512 // 单个上传实例的上限
)

type (
	// ServerConfig HTTP 服务配置.
	ServerConfig struct {
		Port         int      `mapstructure:"port"          rule:"min=1,max=65535"`
		Host         string   `mapstructure:"host"          rule:"ip"`
		ReloadConfig bool     `mapstructure:"reload_config"`
		Debug        bool     `mapstructure:"debug"`
		Timeout      int      `mapstructure:"timeout"       rule:"min=1,max=300"`
		MaxUploadMB  int      `mapstructure:"max_upload_mb" rule:"min=0"`
		CORSOrigins  []string `mapstructure:"cors_origins"`
	}
)

// GetTimeoutDuration 返回超时时间.
func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// GetMaxUploadBytes 返回请求体上限，0 表示不限制.
func (s *ServerConfig) GetMaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.reload_config", DefaultReloadConfig)
	v.SetDefault("server.debug", DefaultDebug)
	v.SetDefault("server.timeout", DefaultTimeout)
	v.SetDefault("server.max_upload_mb", DefaultMaxUploadMB)
	v.SetDefault("server.cors_origins", []string{"*"})
}
