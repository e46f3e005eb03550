// Package kv 提供用于键值存储的接口和实现.
//
// 索引器记录与采纳文件的归属记录都保存在这里，后端可选 memory、redis、nats 或数据库表.
package kv

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/yeisme/advstorage/pkg/configs"
)

// ErrKeyNotFound 键不存在（或已过期）.
var ErrKeyNotFound = errors.New("key not found")

type Client struct {
	KVStore
}

// KVStore 定义键值存储接口.
type KVStore interface {
	// Get 获取键的值，不存在时返回 ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，可选过期时间.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除键.
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在.
	Exists(ctx context.Context, key string) (bool, error)
	// Keys 返回匹配 glob 模式的键，空模式表示全部.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Close 关闭存储连接.
	Close() error
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory KVType = "memory"
	KVTypeRedis  KVType = "redis"
	KVTypeNATS   KVType = "nats"
	KVTypeDB     KVType = "db"
)

// KVFactory 定义创建 KVStore 的工厂函数类型.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

// kvFactories 存储 KV 类型到工厂的映射.
var kvFactories = make(map[KVType]KVFactory)

// RegisterKVFactory 注册 KV 工厂函数.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 返回已注册的 KV 类型列表.
func GetRegisteredKVTypes() []KVType {
	types := make([]KVType, 0, len(kvFactories))
	for kvType := range kvFactories {
		types = append(types, kvType)
	}

	slices.Sort(types)

	return types
}

// NewKVStore 根据类型创建 KVStore 实例.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factory, exists := kvFactories[kvType]
	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", kvType)
	}

	return factory(ctx, config)
}

// NewKVClient 按配置创建 KVClient.db 后端需要传入已打开的 *gorm.DB（作为 dbConn）.
func NewKVClient(ctx context.Context, cfg *configs.KVConfig, dbConn any) (*Client, error) {
	var backendCfg any

	switch KVType(cfg.Type) {
	case KVTypeRedis:
		backendCfg = &cfg.Redis
	case KVTypeNATS:
		backendCfg = &cfg.NATS
	case KVTypeDB:
		backendCfg = dbConn
	}

	store, err := NewKVStore(ctx, KVType(cfg.Type), backendCfg)
	if err != nil {
		return nil, err
	}

	if cfg.Breaker.Enabled && KVType(cfg.Type) != KVTypeMemory {
		store = WithBreaker(store, cfg.Breaker)
	}

	return &Client{KVStore: store}, nil
}

// Unwrap 去掉熔断等包装层，返回实际的后端.
func Unwrap(store KVStore) KVStore {
	for {
		w, ok := store.(interface{ Unwrap() KVStore })
		if !ok {
			return store
		}

		store = w.Unwrap()
	}
}

// Ping 检查后端是否可达.后端未实现 Ping 时用一次 Exists 代替.
func (c *Client) Ping(ctx context.Context) error {
	if p, ok := Unwrap(c.KVStore).(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}

	_, err := c.Exists(ctx, "advst-health")

	return err
}

// matchPattern 使用 glob 语义匹配键，空模式匹配全部.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	ok, err := path.Match(pattern, key)

	return err == nil && ok
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}
