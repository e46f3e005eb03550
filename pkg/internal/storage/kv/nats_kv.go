package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/yeisme/advstorage/pkg/configs"
)

// NATSKV 基于 JetStream KV bucket.bucket 只保留每个键的最新值；
// JetStream 不支持单键过期，带 TTL 的值用 ttl.go 的头部包装，读取时惰性清理.
type NATSKV struct {
	conn *nats.Conn
	kv   jetstream.KeyValue
}

// NewNATSKV 连接 NATS 并创建或更新 bucket.
func NewNATSKV(ctx context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.NATSKVConfig)
	if !ok {
		return nil, fmt.Errorf("invalid NATS config")
	}

	opts := []nats.Option{nats.Name("advstorage-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "advstorage indexer and ownership records",
		History:     1,
		Replicas:    max(1, cfg.Replicas),
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create KV bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSKV{conn: nc, kv: kv}, nil
}

// entry 读取并解包，过期的键顺手删除.
func (n *NATSKV) entry(ctx context.Context, key string) ([]byte, error) {
	e, err := n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, notFound(key)
	}

	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	val, expired, err := decodeWithTTL(e.Value(), time.Now())
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	if expired {
		_ = n.kv.Delete(ctx, key)
		return nil, notFound(key)
	}

	return val, nil
}

func (n *NATSKV) Get(ctx context.Context, key string) ([]byte, error) {
	return n.entry(ctx, key)
}

func (n *NATSKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := n.kv.Put(ctx, key, encodeWithTTL(value, ttl)); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("delete %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.entry(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Keys 列出 bucket 中的键并在客户端按 glob 过滤，已过期的键不返回.
func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	lister, err := n.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	var keys []string

	for key := range lister.Keys() {
		if !matchPattern(pattern, key) {
			continue
		}

		if ok, err := n.Exists(ctx, key); err != nil || !ok {
			continue
		}

		keys = append(keys, key)
	}

	return keys, ctx.Err()
}

// Ping 确认连接仍然可用.
func (n *NATSKV) Ping(ctx context.Context) error {
	if !n.conn.IsConnected() {
		return fmt.Errorf("nats connection %s", n.conn.Status())
	}

	_, err := n.kv.Status(ctx)

	return err
}

func (n *NATSKV) Close() error {
	n.conn.Close()
	return nil
}

func init() {
	RegisterKVFactory(KVTypeNATS, NewNATSKV)
}
