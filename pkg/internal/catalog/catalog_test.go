package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/advstorage/pkg/internal/catalog"
	"github.com/yeisme/advstorage/pkg/internal/dicomtest"
	"github.com/yeisme/advstorage/pkg/internal/model"
	"github.com/yeisme/advstorage/pkg/internal/ownership"
	"github.com/yeisme/advstorage/pkg/internal/storage/kv"
	"github.com/yeisme/advstorage/pkg/internal/storagearea"
	"github.com/yeisme/advstorage/pkg/layout"
)

type fixture struct {
	cat    *catalog.Catalog
	db     *gorm.DB
	owners *ownership.Store
	root   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	root := filepath.Join(dir, "storage")
	require.NoError(t, os.MkdirAll(root, 0o755))

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "catalog.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	reg := layout.NewRegistry()
	reg.SetCoreRootPath(root)
	require.NoError(t, reg.SetNamingScheme(layout.DefaultNamingScheme, false))

	mem, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	require.NoError(t, err)

	owners := ownership.NewStore(mem)
	area := storagearea.New(reg, storagearea.Options{Owners: owners, Logger: zerolog.Nop()})

	cat := catalog.New(db, area, owners, nil, zerolog.Nop())
	require.NoError(t, cat.Migrate(context.Background()))

	return &fixture{cat: cat, db: db, owners: owners, root: root}
}

func (f *fixture) count(t *testing.T, m any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)

	return n
}

// TestStoreReadDelete 测试实例入库、读取和删除.
func TestStoreReadDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	data := dicomtest.Build(dicomtest.Sample)

	res, err := f.cat.StoreInstance(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, layout.StoreSuccess, res.Status)
	assert.True(t, layout.IsUUID(res.AttachmentUUID))

	h := layout.NewInstanceHasher(layout.Tags{
		layout.TagPatientID:         dicomtest.Sample.PatientID,
		layout.TagStudyInstanceUID:  dicomtest.Sample.StudyInstanceUID,
		layout.TagSeriesInstanceUID: dicomtest.Sample.SeriesInstanceUID,
		layout.TagSOPInstanceUID:    dicomtest.Sample.SOPInstanceUID,
	})
	assert.Equal(t, h.HashInstance(), res.InstanceID)

	got, err := f.cat.ReadAttachment(ctx, res.InstanceID, layout.ContentDicom)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	info, err := f.cat.AttachmentInfo(ctx, res.InstanceID, layout.ContentDicom)
	require.NoError(t, err)
	assert.True(t, info.IsOwnedByHost)
	assert.False(t, info.IsIndexed)
	assert.FileExists(t, info.Path)
	assert.Equal(t, f.root, info.Path[:len(f.root)])

	again, err := f.cat.StoreInstance(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, layout.StoreAlreadyStored, again.Status)
	assert.Equal(t, res.AttachmentUUID, again.AttachmentUUID)

	instances, err := f.cat.Instances(ctx, layout.ResourcePatient, h.HashPatient())
	require.NoError(t, err)
	assert.Equal(t, []string{res.InstanceID}, instances)

	require.NoError(t, f.cat.DeleteResource(ctx, layout.ResourcePatient, h.HashPatient()))

	assert.NoFileExists(t, info.Path)
	assert.Zero(t, f.count(t, &model.Resource{}))
	assert.Zero(t, f.count(t, &model.Attachment{}))

	_, err = f.cat.ReadAttachment(ctx, res.InstanceID, layout.ContentDicom)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

// TestDeleteInstanceKeepsSiblings 测试删除实例时保留仍有子节点的上级.
func TestDeleteInstanceKeepsSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.cat.StoreInstance(ctx, dicomtest.Build(dicomtest.Sample))
	require.NoError(t, err)

	other := dicomtest.Sample
	other.SOPInstanceUID = "1.2.3.4.5.7"

	second, err := f.cat.StoreInstance(ctx, dicomtest.Build(other))
	require.NoError(t, err)

	// 患者、检查、序列各一条，实例两条
	assert.Equal(t, int64(5), f.count(t, &model.Resource{}))

	require.NoError(t, f.cat.DeleteResource(ctx, layout.ResourceInstance, first.InstanceID))
	assert.Equal(t, int64(4), f.count(t, &model.Resource{}))

	level, err := f.cat.LookupResource(ctx, second.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, layout.ResourceInstance, level)

	require.NoError(t, f.cat.DeleteResource(ctx, layout.ResourceInstance, second.InstanceID))
	assert.Zero(t, f.count(t, &model.Resource{}))
}

// TestStoreNotDicom 测试非 DICOM 数据入库失败且不留文件.
func TestStoreNotDicom(t *testing.T) {
	f := newFixture(t)

	res, err := f.cat.StoreInstance(context.Background(), []byte("plain text"))
	require.ErrorIs(t, err, catalog.ErrNotDicom)
	assert.Equal(t, layout.StoreFailure, res.Status)

	entries, err := os.ReadDir(f.root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestAdoptAndAbandon 测试采纳外部文件后放弃，文件始终保留.
func TestAdoptAndAbandon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	external := filepath.Join(t.TempDir(), "incoming", "a.dcm")
	require.NoError(t, os.MkdirAll(filepath.Dir(external), 0o755))
	require.NoError(t, os.WriteFile(external, dicomtest.Build(dicomtest.Sample), 0o644))

	res, err := f.cat.AdoptFile(ctx, external, false)
	require.NoError(t, err)
	assert.Equal(t, layout.StoreSuccess, res.Status)

	owner, err := f.owners.Get(ctx, external)
	require.NoError(t, err)
	assert.Equal(t, res.InstanceID, owner.ResourceID)
	assert.Equal(t, layout.ResourceInstance, owner.ResourceType)

	info, err := f.cat.AttachmentInfo(ctx, res.InstanceID, layout.ContentDicom)
	require.NoError(t, err)
	assert.Equal(t, external, info.Path)
	assert.False(t, info.IsOwnedByHost)

	// 存储区中没有写入任何文件
	entries, err := os.ReadDir(f.root)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, f.cat.AbandonFile(ctx, external))
	assert.FileExists(t, external)
	assert.Zero(t, f.count(t, &model.Resource{}))

	ok, err := f.owners.Exists(ctx, external)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, f.cat.AbandonFile(ctx, external), catalog.ErrNotFound)
}

// TestDeleteAdopted 测试宿主删除采纳实例时按拥有权决定是否删除文件.
func TestDeleteAdopted(t *testing.T) {
	for _, take := range []bool{false, true} {
		f := newFixture(t)
		ctx := context.Background()

		external := filepath.Join(t.TempDir(), "a.dcm")
		require.NoError(t, os.WriteFile(external, dicomtest.Build(dicomtest.Sample), 0o644))

		res, err := f.cat.AdoptFile(ctx, external, take)
		require.NoError(t, err)

		require.NoError(t, f.cat.DeleteResource(ctx, layout.ResourceInstance, res.InstanceID))

		if take {
			assert.NoFileExists(t, external)
		} else {
			assert.FileExists(t, external)
		}

		ok, err := f.owners.Exists(ctx, external)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

// TestUpdateAttachmentMetadata 测试更新位置记录.
func TestUpdateAttachmentMetadata(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.cat.StoreInstance(ctx, dicomtest.Build(dicomtest.Sample))
	require.NoError(t, err)

	atts, err := f.cat.ListAttachments(ctx, res.InstanceID)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, res.AttachmentUUID, atts[0].UUID)
	assert.Equal(t, layout.ContentDicom, atts[0].ContentType)

	meta := []byte(`{"v":1,"o":true}`)
	require.NoError(t, f.cat.UpdateAttachmentMetadata(ctx, res.AttachmentUUID, meta))

	atts, err = f.cat.ListAttachments(ctx, res.InstanceID)
	require.NoError(t, err)
	assert.Equal(t, meta, atts[0].Metadata)

	err = f.cat.UpdateAttachmentMetadata(ctx, "00000000-0000-0000-0000-000000000000", meta)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = f.cat.ListAttachments(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
