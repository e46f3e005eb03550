package db_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/internal/storage/db"
)

// TestNewSQLite 测试打开 sqlite 目录数据库.
func TestNewSQLite(t *testing.T) {
	cfg := &configs.DBConfig{
		Type:         configs.SQLite,
		Database:     filepath.Join(t.TempDir(), "catalog"),
		MaxOpenConns: 8,
	}

	c, err := db.New(context.Background(), cfg, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Ping(context.Background()))

	sqlDB, err := c.DB.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	assert.Contains(t, db.GetRegisteredDBTypes(), configs.SQLite)
}

// TestNewUnsupported 测试未注册的数据库类型.
func TestNewUnsupported(t *testing.T) {
	_, err := db.New(context.Background(), &configs.DBConfig{Type: "oracle"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}
