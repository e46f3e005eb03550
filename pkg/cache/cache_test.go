package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/cache"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
)

type testJob struct {
	ID    string         `json:"id"`
	State string         `json:"state"`
	Extra map[string]any `json:"extra"`
}

func newStore(t *testing.T) kv.KVStore {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// TestStore_PutGet 测试写入后读取.
func TestStore_PutGet(t *testing.T) {
	s := cache.New[testJob](newStore(t), "advst-test", 0)
	ctx := context.Background()

	want := testJob{ID: "01J", State: "Success", Extra: map[string]any{"target": "cold"}}
	require.NoError(t, s.Put(ctx, want.ID, want))

	got, err := s.Get(ctx, want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

// TestStore_DeleteExists 测试删除与存在性.
func TestStore_DeleteExists(t *testing.T) {
	s := cache.New[testJob](newStore(t), "advst-test", 0)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", testJob{ID: "a"}))

	ok, err := s.Exists(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, "a"))

	ok, err = s.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestStore_AllIsolated 测试不同命名空间互不可见.
func TestStore_AllIsolated(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	jobs := cache.New[testJob](store, "advst-jobs", 0)
	other := cache.New[testJob](store, "advst-other", 0)

	require.NoError(t, jobs.Put(ctx, "j1", testJob{ID: "j1"}))
	require.NoError(t, jobs.Put(ctx, "j2", testJob{ID: "j2"}))
	require.NoError(t, other.Put(ctx, "o1", testJob{ID: "o1"}))

	all, err := jobs.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "j2", all["j2"].ID)
}

// TestStore_AllCorrupt 测试无法解码的记录.
func TestStore_AllCorrupt(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, kv.NewNamespace(store, "advst-jobs").Set(ctx, "bad", []byte("{"), 0))

	_, err := cache.New[testJob](store, "advst-jobs", 0).All(ctx)
	require.Error(t, err)
}

// TestStore_TTL 测试过期后读取失败.
func TestStore_TTL(t *testing.T) {
	s := cache.New[testJob](newStore(t), "advst-test", 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "short", testJob{ID: "short"}))

	require.Eventually(t, func() bool {
		_, err := s.Get(ctx, "short")
		return err != nil
	}, time.Second, 10*time.Millisecond)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
