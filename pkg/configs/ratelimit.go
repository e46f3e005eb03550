package configs

import (
	"math"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultRateLimitEnabled = false
	DefaultRateLimitRPS     = 50.0
	DefaultRateLimitBurst   = 100
	DefaultRateLimitKey     = "ip"
)

// RateLimitConfig HTTP 入口的令牌桶限流.
//
// Key 选择限流维度：global、ip 或 header:<Name>.上传实例和采纳文件都会触发磁盘写入，
// 限流可以避免批量导入时压垮存储.
type RateLimitConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	RPS         float64  `mapstructure:"rps"          rule:"min=0"`
	Burst       int      `mapstructure:"burst"        rule:"min=0"`
	Key         string   `mapstructure:"key"`
	ExemptPaths []string `mapstructure:"exempt_paths"` // 不限流的路径前缀
}

// GetRetryAfter 返回拒绝请求时建议的重试间隔，至少 1 秒.
func (c *RateLimitConfig) GetRetryAfter() time.Duration {
	if c.RPS <= 0 {
		return time.Second
	}

	return time.Duration(math.Max(1, math.Ceil(1/c.RPS))) * time.Second
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)
	v.SetDefault("rate_limit.key", DefaultRateLimitKey)
	v.SetDefault("rate_limit.exempt_paths", []string{"/health", "/metrics"})
}
