package deleter_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/internal/deleter"
	"github.com/yeisme/advstorage/pkg/internal/storage/fifo"
	"github.com/yeisme/advstorage/pkg/layout"
)

func newDeleter(t *testing.T) (*deleter.Deleter, string) {
	t.Helper()

	root := t.TempDir()

	reg := layout.NewRegistry()
	reg.SetCoreRootPath(root)

	q, err := fifo.New(context.Background(), fifo.TypeMemory, "test", nil)
	require.NoError(t, err)

	return deleter.New(q, reg, 0, zerolog.Nop()), root
}

func writeFile(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

// TestDrainRemovesFilesAndParents 测试队列处理删除文件并清理空目录.
func TestDrainRemovesFilesAndParents(t *testing.T) {
	d, root := newDeleter(t)
	ctx := context.Background()

	a := filepath.Join(root, "ab", "cd", "a")
	b := filepath.Join(root, "ab", "ef", "b")
	keep := filepath.Join(root, "ab", "ef", "keep")

	for _, p := range []string{a, b, keep} {
		writeFile(t, p)
	}

	require.NoError(t, d.ScheduleFileDeletion(ctx, a))
	require.NoError(t, d.ScheduleFileDeletion(ctx, b))

	n, err := d.PendingDeletionFilesCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	removed, err := d.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
	assert.NoDirExists(t, filepath.Join(root, "ab", "cd"))
	assert.FileExists(t, keep)
	assert.DirExists(t, root)

	n, err = d.PendingDeletionFilesCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestDrainMissingFile 测试已不存在的文件不影响后续处理.
func TestDrainMissingFile(t *testing.T) {
	d, root := newDeleter(t)
	ctx := context.Background()

	other := filepath.Join(root, "x", "other")
	writeFile(t, other)

	require.NoError(t, d.ScheduleFileDeletion(ctx, filepath.Join(root, "missing")))
	require.NoError(t, d.ScheduleFileDeletion(ctx, other))

	removed, err := d.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.NoFileExists(t, other)
}

// TestBackgroundLoop 测试后台循环处理运行期间加入的文件.
func TestBackgroundLoop(t *testing.T) {
	d, root := newDeleter(t)
	ctx := context.Background()

	d.Start(ctx)
	defer d.Stop()

	assert.True(t, d.IsRunning())

	path := filepath.Join(root, "late")
	writeFile(t, path)
	require.NoError(t, d.ScheduleFileDeletion(ctx, path))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 3*time.Second, 20*time.Millisecond)

	d.Stop()
	assert.False(t, d.IsRunning())
}

// TestThrottledDrainCanceled 测试限速等待时取消立即返回.
func TestThrottledDrainCanceled(t *testing.T) {
	root := t.TempDir()
	reg := layout.NewRegistry()
	reg.SetCoreRootPath(root)

	q, err := fifo.New(context.Background(), fifo.TypeMemory, "test", nil)
	require.NoError(t, err)

	d := deleter.New(q, reg, time.Hour, zerolog.Nop())

	for _, name := range []string{"a", "b", "c"} {
		p := filepath.Join(root, name)
		writeFile(t, p)
		require.NoError(t, d.ScheduleFileDeletion(context.Background(), p))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	removed, err := d.Drain(ctx)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.GreaterOrEqual(t, removed, 1)
}
