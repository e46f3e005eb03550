package indexer_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/internal/indexer"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	"github.com/yeisme/advstorage/pkg/layout"
)

// fakeAdopter 把 .dcm 结尾的文件视为 DICOM.
type fakeAdopter struct {
	mu        sync.Mutex
	adopted   []string
	abandoned []string
	takes     []bool
}

func (f *fakeAdopter) AdoptFile(_ context.Context, path string, take bool) (layout.AdoptResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.adopted = append(f.adopted, path)
	f.takes = append(f.takes, take)

	if strings.HasSuffix(path, ".dcm") {
		return layout.AdoptResult{InstanceID: "inst-" + filepath.Base(path), Status: layout.StoreSuccess}, nil
	}

	return layout.AdoptResult{Status: layout.StoreFailure}, nil
}

func (f *fakeAdopter) AbandonFile(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.abandoned = append(f.abandoned, path)

	return nil
}

func (f *fakeAdopter) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.adopted), len(f.abandoned)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newIndexer(t *testing.T, cfg indexer.Config) (*indexer.Indexer, *fakeAdopter) {
	t.Helper()

	mem, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	adopter := &fakeAdopter{}

	return indexer.New(cfg, mem, adopter, zerolog.Nop()), adopter
}

// TestSweepAdoptsNewFiles 测试首次扫描采纳所有文件，第二次扫描不重复采纳.
func TestSweepAdoptsNewFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.dcm"), "a")
	writeFile(t, filepath.Join(root, "sub", "deep", "b.dcm"), "b")
	writeFile(t, filepath.Join(root, "notes.txt"), "text")

	idx, adopter := newIndexer(t, indexer.Config{Folders: []string{root}, TakeOwnership: true})
	ctx := context.Background()

	require.NoError(t, idx.Sweep(ctx))

	adopted, abandoned := adopter.counts()
	assert.Equal(t, 3, adopted)
	assert.Equal(t, 0, abandoned)
	assert.NotContains(t, adopter.takes, false)

	ok, err := idx.IsFileIndexed(ctx, filepath.Join(root, "sub", "deep", "b.dcm"))
	require.NoError(t, err)
	assert.True(t, ok)

	// 非 DICOM 文件同样记录，避免每轮重复尝试
	ok, err = idx.IsFileIndexed(ctx, filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, idx.Sweep(ctx))

	adopted, _ = adopter.counts()
	assert.Equal(t, 3, adopted)
}

// TestSweepChangedFileIsReadopted 测试文件修改后先放弃再重新采纳.
func TestSweepChangedFileIsReadopted(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.dcm")
	writeFile(t, path, "a")

	idx, adopter := newIndexer(t, indexer.Config{Folders: []string{root}})
	ctx := context.Background()

	require.NoError(t, idx.Sweep(ctx))

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	require.NoError(t, idx.Sweep(ctx))

	adopted, abandoned := adopter.counts()
	assert.Equal(t, 2, adopted)
	assert.Equal(t, 1, abandoned)
	assert.Equal(t, []string{path}, adopter.abandoned)
}

// TestSweepDeletedFile 测试文件消失时放弃 DICOM 实例并删除记录.
func TestSweepDeletedFile(t *testing.T) {
	root := t.TempDir()
	dicom := filepath.Join(root, "a.dcm")
	other := filepath.Join(root, "b.txt")
	writeFile(t, dicom, "a")
	writeFile(t, other, "b")

	idx, adopter := newIndexer(t, indexer.Config{Folders: []string{root}})
	ctx := context.Background()

	require.NoError(t, idx.Sweep(ctx))
	require.NoError(t, os.Remove(dicom))
	require.NoError(t, os.Remove(other))
	require.NoError(t, idx.Sweep(ctx))

	// 非 DICOM 文件只删除记录
	assert.Equal(t, []string{dicom}, adopter.abandoned)

	for _, p := range []string{dicom, other} {
		ok, err := idx.IsFileIndexed(ctx, p)
		require.NoError(t, err)
		assert.False(t, ok, p)
	}
}

// TestDeletedByHostIsNotAbandoned 测试宿主已删除的文件消失时不再放弃.
func TestDeletedByHostIsNotAbandoned(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.dcm")
	writeFile(t, path, "a")

	idx, adopter := newIndexer(t, indexer.Config{Folders: []string{root}})
	ctx := context.Background()

	require.NoError(t, idx.Sweep(ctx))
	require.NoError(t, idx.MarkAsDeletedByHost(ctx, path))
	require.NoError(t, os.Remove(path))
	require.NoError(t, idx.Sweep(ctx))

	_, abandoned := adopter.counts()
	assert.Equal(t, 0, abandoned)

	ok, err := idx.IsFileIndexed(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestMarkAsDeletedByHostUnknownPath 测试未索引路径的标记是空操作.
func TestMarkAsDeletedByHostUnknownPath(t *testing.T) {
	idx, _ := newIndexer(t, indexer.Config{})
	ctx := context.Background()

	require.NoError(t, idx.MarkAsDeletedByHost(ctx, "/nowhere/a.dcm"))

	ok, err := idx.IsFileIndexed(ctx, "/nowhere/a.dcm")
	require.NoError(t, err)
	assert.False(t, ok)
}

// TestExtensionFilters 测试扩展名白名单与黑名单.
func TestExtensionFilters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.dcm"), "a")
	writeFile(t, filepath.Join(root, "b.DCM"), "b")
	writeFile(t, filepath.Join(root, "c.tmp"), "c")
	writeFile(t, filepath.Join(root, "d"), "d")

	t.Run("parsed", func(t *testing.T) {
		idx, adopter := newIndexer(t, indexer.Config{Folders: []string{root}, ParsedExtensions: []string{".dcm"}})
		require.NoError(t, idx.Sweep(context.Background()))
		assert.Equal(t, []string{filepath.Join(root, "a.dcm")}, adopter.adopted)
	})

	t.Run("skipped", func(t *testing.T) {
		idx, adopter := newIndexer(t, indexer.Config{Folders: []string{root}, SkippedExtensions: []string{".tmp"}})
		require.NoError(t, idx.Sweep(context.Background()))
		assert.Len(t, adopter.adopted, 3)
		assert.NotContains(t, adopter.adopted, filepath.Join(root, "c.tmp"))
	})
}

// TestSweepMissingFolder 测试不存在的目录只告警不报错.
func TestSweepMissingFolder(t *testing.T) {
	idx, adopter := newIndexer(t, indexer.Config{Folders: []string{filepath.Join(t.TempDir(), "missing")}})

	require.NoError(t, idx.Sweep(context.Background()))

	adopted, _ := adopter.counts()
	assert.Equal(t, 0, adopted)
}

// TestStartStop 测试后台循环的启动与停止.
func TestStartStop(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.dcm"), "a")

	idx, adopter := newIndexer(t, indexer.Config{Folders: []string{root}, Interval: time.Hour})

	idx.Start(context.Background())
	assert.True(t, idx.IsRunning())

	assert.Eventually(t, func() bool {
		adopted, _ := adopter.counts()
		return adopted == 1
	}, 2*time.Second, 10*time.Millisecond)

	idx.Stop()
	assert.False(t, idx.IsRunning())
}

// TestWatchWakesOnSubdirectoryChange 测试子目录中的新文件提前唤醒索引循环.
func TestWatchWakesOnSubdirectoryChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.dcm"), "a")
	writeFile(t, filepath.Join(root, "sub", "deep", "b.dcm"), "b")

	idx, adopter := newIndexer(t, indexer.Config{Folders: []string{root}, Interval: time.Hour, Watch: true})

	idx.Start(context.Background())
	t.Cleanup(idx.Stop)

	assert.Eventually(t, func() bool {
		adopted, _ := adopter.counts()
		return adopted == 2 && idx.WatchedDirs() == 3
	}, 2*time.Second, 10*time.Millisecond)

	writeFile(t, filepath.Join(root, "sub", "deep", "c.dcm"), "c")

	assert.Eventually(t, func() bool {
		adopted, _ := adopter.counts()
		return adopted == 3
	}, 2*time.Second, 10*time.Millisecond)
}

// TestSweepCanceled 测试取消的上下文立即返回.
func TestSweepCanceled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.dcm"), "a")

	idx, _ := newIndexer(t, indexer.Config{Folders: []string{root}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, idx.Sweep(ctx), context.Canceled)
}
