//go:build no_redis

package storage

import "github.com/yeisme/advstorage/pkg/internal/storage/kv"

func sharedRedis(*kv.Client) any { return nil }
