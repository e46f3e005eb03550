package configs

import "github.com/spf13/viper"

// KVConfig 键值存储配置，保存索引器记录和采纳文件归属记录.
type KVConfig struct {
	Type    string               `mapstructure:"type"    rule:"oneof=memory redis nats db"`
	Redis   RedisKVConfig        `mapstructure:"redis"`
	NATS    NATSKVConfig         `mapstructure:"nats"`
	Breaker CircuitBreakerConfig `mapstructure:"breaker"` // 远程后端的熔断
}

// RedisKVConfig Redis KV 配置.KeyPrefix 让多个实例共享同一个 Redis 库.
type RedisKVConfig struct {
	Addr      string `mapstructure:"addr"       rule:"hostname_port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"         rule:"min=0,max=15"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// NATSKVConfig NATS JetStream KV 配置.
type NATSKVConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"   rule:"required,printascii,excludesall= .*>"`
	Replicas int    `mapstructure:"replicas" rule:"min=1,max=5"`
}

// setDefaults 设置 KV 配置的默认值.
func (c *KVConfig) setDefaults(v *viper.Viper) {
	// 默认复用目录数据库，索引记录重启后仍然有效
	v.SetDefault("kv.type", "db")

	// Redis 默认值
	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)
	v.SetDefault("kv.redis.key_prefix", "advst:")

	// NATS 默认值
	v.SetDefault("kv.nats.url", "nats://localhost:4222")
	v.SetDefault("kv.nats.user", "")
	v.SetDefault("kv.nats.password", "")
	v.SetDefault("kv.nats.bucket", "advstorage-kv")
	v.SetDefault("kv.nats.replicas", 1)

	// kv.breaker 的默认值见 circuitbreaker.go
}
