package kv

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/advstorage/pkg/configs"
)

// breakerKV 用熔断器包装远程 KV，后端不可用时快速失败，避免索引器线程长时间阻塞.
type breakerKV struct {
	next KVStore
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker 为 KVStore 增加熔断保护.键不存在不计为失败.
func WithBreaker(store KVStore, cfg configs.CircuitBreakerConfig) KVStore {
	settings := gobreaker.Settings{
		Name:        "kv",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    cfg.GetInterval(),
		Timeout:     cfg.GetTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ShouldTrip(counts.Requests, counts.TotalFailures)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrKeyNotFound) || errors.Is(err, context.Canceled)
		},
	}

	return &breakerKV{next: store, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerKV) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Get(ctx, key) })
	if err != nil {
		return nil, err
	}

	data, _ := v.([]byte)

	return data, nil
}

func (b *breakerKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.next.Set(ctx, key, value, ttl) })

	return err
}

func (b *breakerKV) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (any, error) { return nil, b.next.Delete(ctx, key) })

	return err
}

func (b *breakerKV) Exists(ctx context.Context, key string) (bool, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Exists(ctx, key) })
	if err != nil {
		return false, err
	}

	ok, _ := v.(bool)

	return ok, nil
}

func (b *breakerKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	v, err := b.cb.Execute(func() (any, error) { return b.next.Keys(ctx, pattern) })
	if err != nil {
		return nil, err
	}

	keys, _ := v.([]string)

	return keys, nil
}

func (b *breakerKV) Close() error {
	return b.next.Close()
}

// Unwrap 返回被包装的存储.
func (b *breakerKV) Unwrap() KVStore {
	return b.next
}
