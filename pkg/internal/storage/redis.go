//go:build !no_redis

package storage

import (
	"github.com/yeisme/advstorage/pkg/internal/storage/fifo"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
)

// sharedRedis KV 后端是 Redis 时返回可供删除队列复用的连接.
func sharedRedis(c *kv.Client) any {
	if c == nil {
		return nil
	}

	r, ok := kv.Unwrap(c.KVStore).(*kv.RedisKV)
	if !ok {
		return nil
	}

	return &fifo.SharedRedis{Client: r.Client(), KeyPrefix: r.Prefix()}
}
