package layout_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/configs"
	"github.com/yeisme/advstorage/pkg/layout"
)

func baseConfig() (configs.AdvancedStorageConfig, configs.HostConfig) {
	cfg := configs.AdvancedStorageConfig{
		Enable:        true,
		NamingScheme:  "{PatientID}/{UUID}{.ext}",
		MaxPathLength: 256,
		MultipleStorages: configs.MultipleStoragesConfig{
			Storages: []configs.StoragePoolConfig{
				{ID: "hot", Path: "/data/hot"},
				{ID: "cold", Path: "/data/cold"},
			},
			CurrentWriteStorage: "hot",
		},
	}

	return cfg, configs.HostConfig{StorageDirectory: "/data/core", SyncStorageArea: true}
}

// TestNewRegistryFromConfig 测试按配置构建注册表.
func TestNewRegistryFromConfig(t *testing.T) {
	cfg, host := baseConfig()

	reg, err := layout.NewRegistryFromConfig(cfg, host)
	require.NoError(t, err)

	assert.True(t, reg.IsMultipleStoragesEnabled())
	assert.False(t, reg.IsDefaultNamingScheme())
	assert.Equal(t, "hot", reg.CurrentWriteStorageID())
	assert.Equal(t, []string{"cold", "hot"}, reg.StorageIDs())
	assert.True(t, reg.IsARootPath("/data/core"))
	assert.True(t, reg.IsARootPath("/data/cold/"))
	assert.False(t, reg.IsARootPath("/data"))

	root, err := reg.CurrentWriteRootPath()
	require.NoError(t, err)
	assert.Equal(t, "/data/hot", root)
}

// TestNewRegistryFromConfigErrors 测试非法配置.
func TestNewRegistryFromConfigErrors(t *testing.T) {
	t.Run("relative root", func(t *testing.T) {
		cfg, host := baseConfig()
		cfg.MultipleStorages.Storages[0].Path = "data/hot"

		_, err := layout.NewRegistryFromConfig(cfg, host)
		require.ErrorIs(t, err, layout.ErrInvalidRootPath)
	})

	t.Run("root too long", func(t *testing.T) {
		cfg, host := baseConfig()
		host.StorageDirectory = "/" + strings.Repeat("x", 220)

		_, err := layout.NewRegistryFromConfig(cfg, host)
		require.ErrorIs(t, err, layout.ErrInvalidRootPath)
	})

	t.Run("unknown write storage", func(t *testing.T) {
		cfg, host := baseConfig()
		cfg.MultipleStorages.CurrentWriteStorage = "warm"

		_, err := layout.NewRegistryFromConfig(cfg, host)
		require.ErrorIs(t, err, layout.ErrUnknownStorage)
	})

	t.Run("invalid scheme", func(t *testing.T) {
		cfg, host := baseConfig()
		cfg.NamingScheme = "{PatientID}"

		_, err := layout.NewRegistryFromConfig(cfg, host)
		require.ErrorIs(t, err, layout.ErrInvalidNamingScheme)
	})
}

// TestRegistryLookups 测试未配置时的查询错误.
func TestRegistryLookups(t *testing.T) {
	reg := layout.NewRegistry()

	_, err := reg.CoreRootPath()
	require.ErrorIs(t, err, layout.ErrNoRootPath)

	_, err = reg.StorageRootPath("x")
	require.ErrorIs(t, err, layout.ErrUnknownStorage)

	require.ErrorIs(t, reg.SetCurrentWriteStorageID("x"), layout.ErrUnknownStorage)
	assert.False(t, reg.IsMultipleStoragesEnabled())
	assert.True(t, reg.IsDefaultNamingScheme())
	assert.Equal(t, layout.DefaultMaxPathLength, reg.MaxPathLength())
}
