package storagearea_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/internal/ownership"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	"github.com/yeisme/advstorage/pkg/internal/storagearea"
	"github.com/yeisme/advstorage/pkg/layout"
)

const testUUID = "0b4f2a9e-3c1d-4e5f-8a7b-9c0d1e2f3a4b"

type fakeIndexer struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeIndexer) MarkAsDeletedByHost(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, path)

	return nil
}

func (f *fakeIndexer) IsFileIndexed(context.Context, string) (bool, error) { return false, nil }

func (f *fakeIndexer) IsRunning() bool { return true }

type fakeDeleter struct {
	scheduled []string
}

func (f *fakeDeleter) ScheduleFileDeletion(_ context.Context, path string) error {
	f.scheduled = append(f.scheduled, path)
	return nil
}

func (f *fakeDeleter) PendingDeletionFilesCount(context.Context) (int64, error) {
	return int64(len(f.scheduled)), nil
}

func (f *fakeDeleter) IsRunning() bool { return true }

func newArea(t *testing.T, scheme string) (*storagearea.Area, *ownership.Store, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "storage")
	require.NoError(t, os.MkdirAll(root, 0o755))

	reg := layout.NewRegistry()
	reg.SetCoreRootPath(root)
	require.NoError(t, reg.SetNamingScheme(scheme, false))

	mem, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	owners := ownership.NewStore(mem)

	return storagearea.New(reg, storagearea.Options{Owners: owners, Logger: zerolog.Nop()}), owners, root
}

// TestCreateReadRemoveDefaultLayout 测试默认布局下的写入、读取与删除.
func TestCreateReadRemoveDefaultLayout(t *testing.T) {
	area, _, root := newArea(t, layout.DefaultNamingScheme)
	ctx := context.Background()
	data := []byte("0123456789")

	meta, err := area.Create(ctx, testUUID, data, layout.ContentDicom, layout.CompressionNone, nil)
	require.NoError(t, err)
	assert.Empty(t, meta)

	path := filepath.Join(root, "0b", "4f", testUUID)
	assert.FileExists(t, path)

	whole, err := area.ReadWhole(ctx, testUUID, layout.ContentDicom, meta)
	require.NoError(t, err)
	assert.Equal(t, data, whole)

	buf := make([]byte, 4)
	require.NoError(t, area.ReadRange(ctx, testUUID, layout.ContentDicom, meta, 3, buf))
	assert.Equal(t, []byte("3456"), buf)

	err = area.ReadRange(ctx, testUUID, layout.ContentDicom, meta, 8, buf)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = area.Create(ctx, testUUID, data, layout.ContentDicom, layout.CompressionNone, nil)
	require.ErrorIs(t, err, storagearea.ErrAlreadyExists)

	require.NoError(t, area.Remove(ctx, testUUID, layout.ContentDicom, meta))
	assert.NoFileExists(t, path)
	assert.NoDirExists(t, filepath.Join(root, "0b"))
	assert.DirExists(t, root)

	_, err = area.ReadWhole(ctx, testUUID, layout.ContentDicom, meta)
	require.ErrorIs(t, err, storagearea.ErrInexistentFile)
}

// TestCreateWithNamingScheme 测试自定义命名模板生成的路径和自定义数据.
func TestCreateWithNamingScheme(t *testing.T) {
	area, _, root := newArea(t, "{PatientID}/{split(StudyDate)}/{UUID}{.ext}")
	ctx := context.Background()

	tags := layout.Tags{layout.TagPatientID: "P1", layout.TagStudyDate: "20240131"}

	meta, err := area.Create(ctx, testUUID, []byte("dicom"), layout.ContentDicom, layout.CompressionNone, tags)
	require.NoError(t, err)
	require.NotEmpty(t, meta)

	path, err := area.PathOf(testUUID, meta)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "P1", "2024", "01", "31", testUUID+".dcm"), path)
	assert.FileExists(t, path)
}

// TestCreateDirectoryOverFile 测试父目录被文件占用时报错.
func TestCreateDirectoryOverFile(t *testing.T) {
	area, _, root := newArea(t, "{PatientID}/{UUID}")
	require.NoError(t, os.WriteFile(filepath.Join(root, "P1"), []byte("x"), 0o600))

	_, err := area.Create(context.Background(), testUUID, []byte("d"), layout.ContentDicom,
		layout.CompressionNone, layout.Tags{layout.TagPatientID: "P1"})
	require.ErrorIs(t, err, storagearea.ErrDirectoryOverFile)
}

// TestRemoveNotOwnedKeepsFile 测试删除非自有文件时只清理记录.
func TestRemoveNotOwnedKeepsFile(t *testing.T) {
	area, owners, _ := newArea(t, layout.DefaultNamingScheme)
	idx := &fakeIndexer{}
	area.SetIndexer(idx)

	ctx := context.Background()
	external := filepath.Join(t.TempDir(), "IM0001.dcm")
	require.NoError(t, os.WriteFile(external, []byte("dicom"), 0o600))
	require.NoError(t, owners.Put(ctx, external, layout.NewPathOwner("inst-1", layout.ResourceInstance, layout.ContentDicom)))

	meta, err := layout.CreateForAdoption(external, false).Marshal(area.Registry())
	require.NoError(t, err)

	require.NoError(t, area.Remove(ctx, "", layout.ContentDicom, meta))
	assert.FileExists(t, external)

	ok, err := owners.Exists(ctx, external)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{external}, idx.deleted)
}

// TestRemoveDelayed 测试配置延迟删除器后文件交给删除队列.
func TestRemoveDelayed(t *testing.T) {
	area, _, root := newArea(t, layout.DefaultNamingScheme)
	del := &fakeDeleter{}
	area.SetDeleter(del)

	ctx := context.Background()
	meta, err := area.Create(ctx, testUUID, []byte("x"), layout.ContentDicom, layout.CompressionNone, nil)
	require.NoError(t, err)

	require.NoError(t, area.Remove(ctx, testUUID, layout.ContentDicom, meta))

	path := filepath.Join(root, "0b", "4f", testUUID)
	assert.FileExists(t, path)
	assert.Equal(t, []string{path}, del.scheduled)
}

// TestRemoveInvalidMetadata 测试无法解析的自定义数据返回错误.
func TestRemoveInvalidMetadata(t *testing.T) {
	area, _, _ := newArea(t, layout.DefaultNamingScheme)

	err := area.Remove(context.Background(), testUUID, layout.ContentDicom, []byte(`{"v":7,"o":true}`))
	require.ErrorIs(t, err, layout.ErrUnknownVersion)
}
