package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/internal/indexer"
)

// TestIndexedPathFormat 测试索引记录的序列化格式与版本校验.
func TestIndexedPathFormat(t *testing.T) {
	data, err := indexer.IndexedPath{Time: 1700000000, Size: 42, IsDicom: true}.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"d":true,"s":42,"t":1700000000,"r":false}`, string(data))

	rec, err := indexer.ParseIndexedPath([]byte(`{"v":1,"d":false,"s":7,"t":3,"r":true}`))
	require.NoError(t, err)
	assert.True(t, rec.DeletedByHost)
	assert.False(t, rec.HasChanged(3, 7))
	assert.True(t, rec.HasChanged(4, 7))
	assert.True(t, rec.HasChanged(3, 8))

	for _, bad := range []string{`{"d":true}`, `{"v":2}`, `not json`} {
		_, err := indexer.ParseIndexedPath([]byte(bad))
		assert.Error(t, err, bad)
	}
}
