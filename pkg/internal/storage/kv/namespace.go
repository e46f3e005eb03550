package kv

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog"
)

// Namespace 在共享 KVStore 上隔离一组键.
//
// 原始键（通常是绝对路径）经过 base64url 编码，所有后端都能接受；nats 不允许键中出现 '/' 和空格.
type Namespace struct {
	store  KVStore
	prefix string
	logger zerolog.Logger
}

// NewNamespace 创建命名空间，name 只能使用字母、数字和 '-'.
func NewNamespace(store KVStore, name string) *Namespace {
	return &Namespace{store: store, prefix: name + ".", logger: zerolog.Nop()}
}

// WithLogger 设置日志，Keys 跳过无法解码的键时记录警告.
func (n *Namespace) WithLogger(l zerolog.Logger) *Namespace {
	n.logger = l

	return n
}

func (n *Namespace) encode(key string) string {
	return n.prefix + base64.RawURLEncoding.EncodeToString([]byte(key))
}

func (n *Namespace) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.encode(key))
}

func (n *Namespace) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return n.store.Set(ctx, n.encode(key), value, ttl)
}

func (n *Namespace) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.encode(key))
}

func (n *Namespace) Exists(ctx context.Context, key string) (bool, error) {
	return n.store.Exists(ctx, n.encode(key))
}

// Keys 返回命名空间内全部原始键.无法解码的键被跳过.
func (n *Namespace) Keys(ctx context.Context) ([]string, error) {
	raw, err := n.store.Keys(ctx, n.prefix+"*")
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(raw))

	for _, k := range raw {
		if len(k) < len(n.prefix) || k[:len(n.prefix)] != n.prefix {
			continue
		}

		decoded, err := base64.RawURLEncoding.DecodeString(k[len(n.prefix):])
		if err != nil {
			n.logger.Warn().Err(err).Str("key", k).Msg("skipping undecodable key")
			continue
		}

		keys = append(keys, string(decoded))
	}

	return keys, nil
}
