package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultCBEnabled           = false
	DefaultCBFailureRate       = 0.5
	DefaultCBMinRequests       = 20
	DefaultCBIntervalSeconds   = 60
	DefaultCBTimeoutSeconds    = 30
	DefaultCBMaxRequestsInHalf = 5
)

// CircuitBreakerConfig 熔断器配置，HTTP 入口与远程 KV 后端共用同一结构.
type CircuitBreakerConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	FailureRate       float64  `mapstructure:"failure_rate"         rule:"min=0,max=1"`
	MinRequests       uint32   `mapstructure:"min_requests"`
	IntervalSeconds   int      `mapstructure:"interval_seconds"     rule:"min=0"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds"      rule:"min=0"`
	MaxRequestsInHalf uint32   `mapstructure:"max_requests_in_half"`
	SkipPaths         []string `mapstructure:"skip_paths"` // 只对 HTTP 生效，健康检查不应被熔断挡住
}

// GetInterval 返回统计窗口.
func (c *CircuitBreakerConfig) GetInterval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// GetTimeout 返回打开状态的持续时间.
func (c *CircuitBreakerConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShouldTrip 请求数达到 MinRequests 且失败比例不低于 FailureRate 时打开熔断.
func (c *CircuitBreakerConfig) ShouldTrip(requests, failures uint32) bool {
	if requests == 0 || requests < c.MinRequests {
		return false
	}

	return float64(failures)/float64(requests) >= c.FailureRate
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	for _, prefix := range []string{"circuit_breaker", "kv.breaker"} {
		v.SetDefault(prefix+".enabled", DefaultCBEnabled)
		v.SetDefault(prefix+".failure_rate", DefaultCBFailureRate)
		v.SetDefault(prefix+".min_requests", DefaultCBMinRequests)
		v.SetDefault(prefix+".interval_seconds", DefaultCBIntervalSeconds)
		v.SetDefault(prefix+".timeout_seconds", DefaultCBTimeoutSeconds)
		v.SetDefault(prefix+".max_requests_in_half", DefaultCBMaxRequestsInHalf)
	}

	v.SetDefault("circuit_breaker.skip_paths", []string{"/health", "/metrics"})
}
