package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTTLEnvelope 测试 TTL 头的编码与过期判断.
func TestTTLEnvelope(t *testing.T) {
	plain := []byte(`{"path":"/mnt/a.dcm"}`)

	// 无 TTL 时原样保存
	assert.Equal(t, plain, encodeWithTTL(plain, 0))

	v, expired, err := decodeWithTTL(plain, time.Now())
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, plain, v)

	enc := encodeWithTTL(plain, time.Minute)
	assert.Len(t, enc, ttlHeaderLen+len(plain))

	v, expired, err = decodeWithTTL(enc, time.Now())
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, plain, v)

	_, expired, err = decodeWithTTL(enc, time.Now().Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, expired)

	_, _, err = decodeWithTTL(enc[:ttlHeaderLen-1], time.Now())
	assert.ErrorIs(t, err, errTTLHeader)
}

// TestMemorySweep 测试后台清理删除过期项.
func TestMemorySweep(t *testing.T) {
	store, err := NewMemoryKV(context.Background(), nil)
	require.NoError(t, err)
	defer store.Close()

	m := store.(*MemoryKV)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "b", nil, 0))
	assert.Equal(t, 2, m.Len())

	m.sweep(time.Now().Add(2 * time.Minute))

	assert.Equal(t, 1, m.Len())

	v, err := m.Get(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, v)
}
