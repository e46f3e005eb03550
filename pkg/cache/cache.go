// Package cache 在 KV 命名空间上保存 JSON 编码的记录，过期交给底层存储的 TTL.
//
//	history := cache.New[jobs.Info](kvStore, "advst-jobs", 7*24*time.Hour)
//	err := history.Put(ctx, id, info)
//	info, err := history.Get(ctx, id) // 未命中时为 kv.ErrKeyNotFound
//
// 现有的 memory、redis、nats、db 后端都可以并发使用.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
)

// Store 类型为 T 的记录集合.
type Store[T any] struct {
	ns  *kv.Namespace
	ttl time.Duration
}

// New 在 kvStore 的 namespace 上创建记录集合，ttl 为 0 表示不过期.
func New[T any](kvStore kv.KVStore, namespace string, ttl time.Duration) *Store[T] {
	return &Store[T]{ns: kv.NewNamespace(kvStore, namespace), ttl: ttl}
}

// TTL 返回写入时使用的过期时间.
func (s *Store[T]) TTL() time.Duration { return s.ttl }

// Get 读取一条记录.
func (s *Store[T]) Get(ctx context.Context, key string) (T, error) {
	var v T

	data, err := s.ns.Get(ctx, key)
	if err != nil {
		return v, err
	}

	if err := sonic.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}

	return v, nil
}

// Put 写入一条记录，使用 New 时给出的 ttl.
func (s *Store[T]) Put(ctx context.Context, key string, v T) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	return s.ns.Set(ctx, key, data, s.ttl)
}

func (s *Store[T]) Delete(ctx context.Context, key string) error {
	return s.ns.Delete(ctx, key)
}

func (s *Store[T]) Exists(ctx context.Context, key string) (bool, error) {
	return s.ns.Exists(ctx, key)
}

// Keys 返回未过期的全部键.
func (s *Store[T]) Keys(ctx context.Context) ([]string, error) {
	return s.ns.Keys(ctx)
}

// All 读出全部记录.列举之后才过期的键被跳过，无法解码的记录返回错误.
func (s *Store[T]) All(ctx context.Context) (map[string]T, error) {
	keys, err := s.ns.Keys(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]T, len(keys))

	for _, k := range keys {
		v, err := s.Get(ctx, k)
		if errors.Is(err, kv.ErrKeyNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		out[k] = v
	}

	return out, nil
}
