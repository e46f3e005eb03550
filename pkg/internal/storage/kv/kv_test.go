package kv_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
)

// indexRecord 与索引器记录大小相近的值.
var indexRecord = []byte(`{"mtime":1718000000,"size":524288,"instance":"0b9c52a4-2f0e3c1d-7e6a8b90-1c2d3e4f-5a6b7c8d","adopted":true}`)

func BenchmarkMemoryKV(b *testing.B) {
	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		b.Fatalf("create memory kv: %v", err)
	}

	defer func() { _ = store.Close() }()

	benchIndexer(b, store)
}

// BenchmarkRedisKV 需要设置 ADVST_BENCH_REDIS=host:port.
func BenchmarkRedisKV(b *testing.B) {
	addr := os.Getenv("ADVST_BENCH_REDIS")
	if addr == "" {
		b.Skip("ADVST_BENCH_REDIS not set")
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeRedis,
		&configs.RedisKVConfig{Addr: addr, KeyPrefix: "advst-bench:"})
	if err != nil {
		b.Skipf("redis not available: %v", err)
	}

	defer func() { _ = store.Close() }()

	benchIndexer(b, store)
}

// BenchmarkNATSKV 需要设置 ADVST_BENCH_NATS=nats://host:port.
func BenchmarkNATSKV(b *testing.B) {
	url := os.Getenv("ADVST_BENCH_NATS")
	if url == "" {
		b.Skip("ADVST_BENCH_NATS not set")
	}

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeNATS,
		&configs.NATSKVConfig{URL: url, Bucket: "advst-bench", Replicas: 1})
	if err != nil {
		b.Skipf("nats not available: %v", err)
	}

	defer func() { _ = store.Close() }()

	benchIndexer(b, store)
}

// benchIndexer 模拟索引器：按绝对路径写入记录，随后查询是否已索引，最后删除.
func benchIndexer(b *testing.B, store kv.KVStore) {
	ctx := context.Background()
	ns := kv.NewNamespace(store, "bench-indexer")

	b.Run("sequential", func(b *testing.B) {
		b.ReportAllocs()

		for i := 0; b.Loop(); i++ {
			path := fmt.Sprintf("/mnt/archive/PAT%06d/1.2.840.%d/IM%04d.dcm", i/1000, i/100, i%100)
			if err := ns.Set(ctx, path, indexRecord, 0); err != nil {
				b.Fatalf("set: %v", err)
			}

			if ok, err := ns.Exists(ctx, path); err != nil || !ok {
				b.Fatalf("exists: %v %v", ok, err)
			}

			if err := ns.Delete(ctx, path); err != nil {
				b.Fatalf("delete: %v", err)
			}
		}
	})

	var ctr atomic.Uint64

	b.Run("parallel", func(b *testing.B) {
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				path := fmt.Sprintf("/mnt/archive/parallel/IM%08d.dcm", ctr.Add(1))
				if err := ns.Set(ctx, path, indexRecord, 0); err != nil {
					b.Errorf("set: %v", err)
					return
				}

				if _, err := ns.Get(ctx, path); err != nil {
					b.Errorf("get: %v", err)
					return
				}

				_ = ns.Delete(ctx, path)
			}
		})
	})
}
