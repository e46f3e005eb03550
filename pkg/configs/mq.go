package configs

import (
	"github.com/spf13/viper"
)

// MQType 事件总线后端类型.
type MQType string

const (
	MQTypeGoChannel MQType = "gochannel"
	MQTypeNATS      MQType = "nats"
	MQTypeRedis     MQType = "redis"

	DefaultMQURL         = "localhost:4222"
	DefaultMQClientID    = "advstorage" // NATS 连接名
	DefaultMaxReconnects = 5
	DefaultReconnectWait = 5     // 秒
	DefaultPingInterval  = 20    // 秒
	DefaultBufferSize    = 32768 // 断线期间缓存的发布字节数
)

// MQConfig 事件总线配置.只在 events.enabled 时打开.
type MQConfig struct {
	Type   MQType         `mapstructure:"type"   rule:"oneof=gochannel nats redis"`
	Common MQCommonConfig `mapstructure:"common"`
	NATS   MQNATSConfig   `mapstructure:"nats"`
	Redis  MQRedisConfig  `mapstructure:"redis"`
}

// MQCommonConfig 远程后端共用的连接参数.
type MQCommonConfig struct {
	URL           string `mapstructure:"url"            rule:"hostname_port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	ClientID      string `mapstructure:"client_id"`
	MaxReconnects int    `mapstructure:"max_reconnects" rule:"min=0,max=100"`
	ReconnectWait int    `mapstructure:"reconnect_wait" rule:"min=1,max=300"`
	PingInterval  int    `mapstructure:"ping_interval"  rule:"min=1,max=300"`
	BufferSize    int    `mapstructure:"buffer_size"    rule:"min=1024,max=1048576"`
	EnableMetrics bool   `mapstructure:"enable_metrics"` // watermill 发布订阅指标，挂在 /metrics 上
}

// MQNATSConfig NATS 后端配置.
type MQNATSConfig struct {
	JetStreamEnabled       bool     `mapstructure:"jetstream_enabled"`
	JetStreamAutoProvision bool     `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool     `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool     `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string   `mapstructure:"jetstream_durable_prefix"`
	JWT                    string   `mapstructure:"jwt"`
	NKey                   string   `mapstructure:"nkey"`
	ClusterURLs            []string `mapstructure:"cluster_urls"`
}

// MQRedisConfig Redis pub/sub 后端配置.pub/sub 不持久化，订阅者离线期间的事件会丢失.
type MQRedisConfig struct {
	Addr          string `mapstructure:"addr"           rule:"hostname_port"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"             rule:"min=0,max=15"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// Remote 报告后端是否跨进程投递.gochannel 只在进程内可见.
func (c *MQConfig) Remote() bool {
	return c.Type != MQTypeGoChannel
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeGoChannel)

	v.SetDefault("mq.common.url", DefaultMQURL)
	v.SetDefault("mq.common.user", "")
	v.SetDefault("mq.common.password", "")
	v.SetDefault("mq.common.client_id", DefaultMQClientID)
	v.SetDefault("mq.common.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.common.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.common.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.common.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.common.enable_metrics", false)

	// 事件量小，默认持久化到 JetStream，方便离线的消费者补读
	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.jetstream_auto_provision", true)
	v.SetDefault("mq.nats.jetstream_track_msg_id", true)
	v.SetDefault("mq.nats.jetstream_ack_async", false)
	v.SetDefault("mq.nats.jetstream_durable_prefix", "advstorage-events")
	v.SetDefault("mq.nats.jwt", "")
	v.SetDefault("mq.nats.nkey", "")
	v.SetDefault("mq.nats.cluster_urls", []string{})

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
	v.SetDefault("mq.redis.channel_prefix", "advst.")
}
