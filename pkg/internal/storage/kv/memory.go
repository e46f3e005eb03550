package kv

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	memoryShards = 32
	// memorySweepInterval 后台清理过期项的周期，读取时也会惰性清理.
	memorySweepInterval = time.Minute
)

// MemoryKV 进程内 KV，重启后数据丢失，用于测试和单机部署.
// 键按 xxhash 分片，索引器并发写入时不会争用同一把锁.
type MemoryKV struct {
	shards [memoryShards]memoryShard
	stop   chan struct{}
	once   sync.Once
}

type memoryShard struct {
	mu sync.RWMutex
	m  map[string]memoryEntry
}

type memoryEntry struct {
	value    []byte
	expireAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// NewMemoryKV 创建内存 KV，config 被忽略.
func NewMemoryKV(_ context.Context, _ any) (KVStore, error) {
	m := &MemoryKV{stop: make(chan struct{})}
	for i := range m.shards {
		m.shards[i].m = make(map[string]memoryEntry)
	}

	go m.sweepLoop()

	return m, nil
}

func (m *MemoryKV) shard(key string) *memoryShard {
	return &m.shards[xxhash.Sum64String(key)%memoryShards]
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	s := m.shard(key)

	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return nil, notFound(key)
	}

	return slices.Clone(e.value), nil
}

// Set 写入值的副本，ttl 为 0 表示不过期.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: slices.Clone(value)}
	if e.value == nil {
		e.value = []byte{}
	}

	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}

	s := m.shard(key)
	s.mu.Lock()
	s.m[key] = e
	s.mu.Unlock()

	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	s := m.shard(key)
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()

	return nil
}

func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	return err == nil, nil
}

// Keys 返回匹配 pattern 的未过期键，顺序不固定.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := time.Now()
	keys := make([]string, 0)

	for i := range m.shards {
		s := &m.shards[i]

		s.mu.RLock()
		for k, e := range s.m {
			if !e.expired(now) && matchPattern(pattern, k) {
				keys = append(keys, k)
			}
		}
		s.mu.RUnlock()
	}

	return keys, nil
}

// Len 返回未过期的键数.
func (m *MemoryKV) Len() int {
	keys, _ := m.Keys(context.Background(), "")
	return len(keys)
}

func (m *MemoryKV) sweepLoop() {
	t := time.NewTicker(memorySweepInterval)
	defer t.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-t.C:
			m.sweep(now)
		}
	}
}

// sweep 删除 now 时已经过期的项.
func (m *MemoryKV) sweep(now time.Time) {
	for i := range m.shards {
		s := &m.shards[i]

		s.mu.Lock()
		for k, e := range s.m {
			if e.expired(now) {
				delete(s.m, k)
			}
		}
		s.mu.Unlock()
	}
}

// Close 停止后台清理，数据仍可读取.
func (m *MemoryKV) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, NewMemoryKV)
}
