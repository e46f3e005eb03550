// Package ownership 保存采纳文件的归属记录：绝对路径到宿主资源的映射.
//
// 宿主删除实例时需要知道路径属于哪个资源，放弃采纳时也要据此找回资源.
package ownership

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	"github.com/yeisme/advstorage/pkg/layout"
)

// Namespace KV 中归属记录的命名空间.
const Namespace = "advst-path-owners"

// ErrNotFound 路径没有归属记录.
var ErrNotFound = errors.New("path owner not found")

// Store 归属记录存储，键为绝对路径.
type Store struct {
	ns *kv.Namespace
}

// NewStore 在给定 KV 上创建归属记录存储.
func NewStore(store kv.KVStore) *Store {
	return &Store{ns: kv.NewNamespace(store, Namespace)}
}

// Put 写入（或覆盖）路径的归属记录.
func (s *Store) Put(ctx context.Context, path string, owner layout.PathOwner) error {
	data, err := owner.Marshal()
	if err != nil {
		return err
	}

	if err := s.ns.Set(ctx, path, data, 0); err != nil {
		return fmt.Errorf("store path owner %s: %w", path, err)
	}

	return nil
}

// Get 读取路径的归属记录，不存在时返回 ErrNotFound.
func (s *Store) Get(ctx context.Context, path string) (layout.PathOwner, error) {
	data, err := s.ns.Get(ctx, path)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return layout.PathOwner{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if err != nil {
		return layout.PathOwner{}, fmt.Errorf("load path owner %s: %w", path, err)
	}

	return layout.ParsePathOwner(data)
}

// Delete 删除归属记录，不存在时不报错.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := s.ns.Delete(ctx, path); err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
		return fmt.Errorf("delete path owner %s: %w", path, err)
	}

	return nil
}

// Exists 判断路径是否有归属记录.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	return s.ns.Exists(ctx, path)
}

// Paths 返回全部已登记的路径.
func (s *Store) Paths(ctx context.Context) ([]string, error) {
	return s.ns.Keys(ctx)
}
