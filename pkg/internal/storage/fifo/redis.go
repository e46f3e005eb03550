//go:build !no_redis

package fifo

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/yeisme/advstorage/pkg/configs"
)

// RedisQueue 基于 redis list 的队列.
type RedisQueue struct {
	client *redis.Client
	key    string
	owned  bool // 由队列自己创建的连接才在 Close 时关闭
}

// SharedRedis 复用 KV 后端已经建立的连接.
type SharedRedis struct {
	Client    *redis.Client
	KeyPrefix string
}

// NewRedisQueue 创建 redis 队列.config 为 *SharedRedis 或 *configs.RedisKVConfig.
func NewRedisQueue(ctx context.Context, name string, config any) (Queue, error) {
	switch cfg := config.(type) {
	case *SharedRedis:
		return &RedisQueue{client: cfg.Client, key: cfg.KeyPrefix + "queue:" + name}, nil

	case *configs.RedisKVConfig:
		rdb := redis.NewClient(&redis.Options{
			Addr:       cfg.Addr,
			Password:   cfg.Password,
			DB:         cfg.DB,
			ClientName: "advstorage-queue",
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to Redis %s: %w", cfg.Addr, err)
		}

		return &RedisQueue{client: rdb, key: cfg.KeyPrefix + "queue:" + name, owned: true}, nil

	default:
		return nil, fmt.Errorf("invalid Redis config %T", config)
	}
}

func (q *RedisQueue) PushBack(ctx context.Context, value []byte) error {
	if err := q.client.RPush(ctx, q.key, value).Err(); err != nil {
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}

func (q *RedisQueue) PopFront(ctx context.Context) ([]byte, error) {
	v, err := q.client.LPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}

	if err != nil {
		return nil, fmt.Errorf("failed to pop: %w", err)
	}

	return v, nil
}

func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue size: %w", err)
	}

	return n, nil
}

func (q *RedisQueue) Close() error {
	if !q.owned {
		return nil
	}

	return q.client.Close()
}

func init() {
	RegisterFactory(TypeRedis, NewRedisQueue)
}
