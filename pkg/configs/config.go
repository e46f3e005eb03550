// Package configs 管理应用程序配置，包括数据库、KV、队列以及存储布局的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	import "path/to/configs"
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing DB config:
//
//	config := configs.GetConfig()
//	dbConfig := config.DB
//	dsn := dbConfig.GetDSN()
//	fmt.Println("DSN:", dsn)
//
// Example accessing advanced storage config:
//
//	config := configs.GetConfig()
//	scheme := config.AdvancedStorage.NamingScheme
//	fmt.Println("Naming scheme:", scheme)
//
// Example accessing MQ config:
//
//	config := configs.GetConfig()
//	mqConfig := config.MQ
//	fmt.Println("MQ Type:", mqConfig.Type, "remote:", mqConfig.Remote())
//
// Example accessing Server config:
//
//	config := configs.GetConfig()
//	serverConfig := config.Server
//	timeout := serverConfig.GetTimeoutDuration()
//	fmt.Println("Timeout:", timeout)
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/advstorage/pkg/rule"
)

// EnvPrefix 环境变量前缀，例如 ADVSTORAGE_SERVER_PORT.
const EnvPrefix = "ADVSTORAGE"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		DB              DBConfig              `mapstructure:"db"`               // DBConfig 目录数据库配置
		KV              KVConfig              `mapstructure:"kv"`               // KVConfig 键值存储配置
		MQ              MQConfig              `mapstructure:"mq"`               // MQConfig 消息队列配置
		Server          ServerConfig          `mapstructure:"server"`           // ServerConfig 其它服务器配置，日志级别、服务器端口等
		Log             LogConfig             `mapstructure:"log"`              // LogConfig 日志相关配置
		Metrics         MetricsConfig         `mapstructure:"metrics"`          // MetricsConfig 指标
		Tracing         TracingConfig         `mapstructure:"tracing"`          // TracingConfig 链路追踪
		Events          EventsConfig          `mapstructure:"events"`           // EventsConfig 事件发布
		RateLimit       RateLimitConfig       `mapstructure:"rate_limit"`       // RateLimitConfig 限流
		CircuitBreaker  CircuitBreakerConfig  `mapstructure:"circuit_breaker"`  // CircuitBreakerConfig HTTP 熔断
		Auth            AuthConfig            `mapstructure:"auth"`             // AuthConfig 认证
		Host            HostConfig            `mapstructure:"host"`             // HostConfig 宿主存储目录
		AdvancedStorage AdvancedStorageConfig `mapstructure:"advanced_storage"` // AdvancedStorageConfig 存储布局
	}
)

var (
	current  atomic.Pointer[AppConfig]
	appViper *viper.Viper

	reloadMu        sync.Mutex
	reloadListeners []ReloadFunc
)

// ReloadFunc 在配置文件变更后调用.err 非空时 cfg 为 nil，当前配置保持不变.
type ReloadFunc func(cfg *AppConfig, err error)

// ErrExclusiveExtensions 同时配置了解析与跳过的扩展名列表.
var ErrExclusiveExtensions = errors.New("parsed_extensions and skipped_extensions are mutually exclusive")

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
func InitConfig(path string) error {
	appViper = viper.New()
	// 设置默认值
	setAllDefaults(appViper)

	// 检查path是否是文件
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		// 是文件，使用SetConfigFile，Viper会自动检测类型
		appViper.SetConfigFile(path)
	} else {
		// 是目录，设置配置名和路径
		appViper.SetConfigName("config")
		appViper.AddConfigPath(path)
		appViper.AddConfigPath(path + "/configs")

		exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}

		for _, ext := range exts {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				appViper.SetConfigFile(cfg)

				break
			}
		}
	}

	bindEnv(appViper)

	// 读取配置
	if err := appViper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := LoadFromViper(appViper)
	if err != nil {
		return err
	}

	current.Store(cfg)

	if cfg.Server.ReloadConfig {
		watch(appViper)
	}

	return nil
}

// NewViper 返回已设置默认值和环境变量绑定的 Viper，不读取任何文件.
func NewViper() *viper.Viper {
	v := viper.New()
	setAllDefaults(v)
	bindEnv(v)

	return v
}

// LoadFromViper 从给定 Viper 解析并校验配置，不修改全局配置.
func LoadFromViper(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateConfig 按 rule 标签校验配置，并检查跨字段约束.
func ValidateConfig(cfg *AppConfig) error {
	if err := rule.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	idx := cfg.AdvancedStorage.Indexer
	if len(idx.ParsedExtensions) > 0 && len(idx.SkippedExtensions) > 0 {
		return fmt.Errorf("invalid config: %w", ErrExclusiveExtensions)
	}

	return nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var cfg AppConfig

	cfg.Server.setDefaults(v)
	cfg.DB.setDefaults(v)
	cfg.KV.setDefaults(v)
	cfg.MQ.setDefaults(v)
	cfg.Log.setDefaults(v)
	cfg.Metrics.setDefaults(v)
	cfg.Tracing.setDefaults(v)
	cfg.Events.setDefaults(v)
	cfg.RateLimit.setDefaults(v)
	cfg.CircuitBreaker.setDefaults(v)
	cfg.Auth.setDefaults(v)
	cfg.Host.setDefaults(v)
	cfg.AdvancedStorage.setDefaults(v)
}

// watch 监听配置文件.存储布局与宿主目录决定文件位置，只在启动时生效，重载时沿用旧值.
func watch(v *viper.Viper) {
	v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := LoadFromViper(v)
		if err == nil {
			if old := current.Load(); old != nil {
				cfg.AdvancedStorage, cfg.Host = old.AdvancedStorage, old.Host
			}

			current.Store(cfg)
		}

		reloadMu.Lock()
		listeners := append([]ReloadFunc(nil), reloadListeners...)
		reloadMu.Unlock()

		for _, fn := range listeners {
			fn(cfg, err)
		}
	})
	v.WatchConfig()
}

// OnReload 注册配置重载回调.
func OnReload(fn ReloadFunc) {
	reloadMu.Lock()
	defer reloadMu.Unlock()

	reloadListeners = append(reloadListeners, fn)
}

// GetConfig 返回当前配置.重载会替换整个实例，调用方不要长期持有返回值中的可变字段.
func GetConfig() *AppConfig {
	if c := current.Load(); c != nil {
		return c
	}

	return &AppConfig{}
}

// SetConfig 替换当前配置，供命令行和测试使用.
func SetConfig(cfg *AppConfig) {
	c := *cfg
	current.Store(&c)
}

// GetViper 返回全局 Viper 实例.
func GetViper() *viper.Viper {
	return appViper
}
