package layout_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/layout"
)

// TestEnsureDirectory 测试目录创建是幂等的，且能识别被文件占用的路径.
func TestEnsureDirectory(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "a", "b")

	require.NoError(t, layout.EnsureDirectory(dir))
	require.NoError(t, layout.EnsureDirectory(dir))

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	err := layout.EnsureDirectory(filepath.Join(file, "sub"))
	require.ErrorIs(t, err, layout.ErrNotADirectory)
}

// TestRemoveEmptyParentDirectories 测试清理空目录时不越过根目录.
func TestRemoveEmptyParentDirectories(t *testing.T) {
	root := t.TempDir()

	reg := layout.NewRegistry()
	reg.SetCoreRootPath(root)

	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	keep := filepath.Join(root, "a", "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o600))

	layout.RemoveEmptyParentDirectories(reg, filepath.Join(deep, "removed.dcm"))

	_, err := os.Stat(filepath.Join(root, "a", "b"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(root, "a"))
	require.NoError(t, err)

	require.NoError(t, os.Remove(keep))
	layout.RemoveEmptyParentDirectories(reg, keep)

	_, err = os.Stat(filepath.Join(root, "a"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(root)
	require.NoError(t, err)
}

// TestRemoveEmptyParentDirectoriesOutsideRoots 测试根目录之外的路径不做清理.
func TestRemoveEmptyParentDirectoriesOutsideRoots(t *testing.T) {
	reg := layout.NewRegistry()
	reg.SetCoreRootPath(filepath.Join(t.TempDir(), "storage"))

	outside := filepath.Join(t.TempDir(), "incoming", "empty")
	require.NoError(t, os.MkdirAll(outside, 0o755))

	layout.RemoveEmptyParentDirectories(reg, filepath.Join(outside, "a.dcm"))

	_, err := os.Stat(outside)
	require.NoError(t, err)
}
