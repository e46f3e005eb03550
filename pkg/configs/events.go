package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool               `mapstructure:"enabled"` // 总开关
	Object  ObjectEventsConfig `mapstructure:"object"`
	Job     JobEventsConfig    `mapstructure:"job"`
}

// ObjectEventsConfig 针对存储区对象的事件开关。
type ObjectEventsConfig struct {
	Stored    bool `mapstructure:"stored"`
	Removed   bool `mapstructure:"removed"`
	Adopted   bool `mapstructure:"adopted"`
	Abandoned bool `mapstructure:"abandoned"`
	Moved     bool `mapstructure:"moved"`
}

// JobEventsConfig 后台任务事件开关。
type JobEventsConfig struct {
	Finished bool `mapstructure:"finished"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用，gochannel 后端只在进程内投递
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.object.stored", true)
	v.SetDefault("events.object.removed", true)
	v.SetDefault("events.object.adopted", true)
	v.SetDefault("events.object.abandoned", true)

	// 迁移事件按实例发布，量可能很大，默认关闭
	v.SetDefault("events.object.moved", false)
	v.SetDefault("events.job.finished", true)
}
