package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Prometheus 指标配置.指标挂在主服务的 /metrics 上.
type MetricsConfig struct {
	Enabled        bool              `mapstructure:"enabled"`
	ServiceName    string            `mapstructure:"service_name"`    // watermill 指标的命名空间
	RuntimeMetrics bool              `mapstructure:"runtime_metrics"` // Go 运行时与进程指标
	Pprof          bool              `mapstructure:"pprof"`
	CustomMetrics  []string          `mapstructure:"custom_metrics"` // 额外的计数器名，通过 metrics.Custom 获取
	Labels         map[string]string `mapstructure:"labels"`         // 附加到全部指标的常量标签
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.service_name", "advstorage")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.custom_metrics", []string{})
	v.SetDefault("metrics.labels", map[string]string{
		"service": "advstorage",
		"version": AppVersion,
	})
}
