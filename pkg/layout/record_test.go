package layout_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/layout"
)

func newRegistry(t *testing.T, scheme string) *layout.Registry {
	t.Helper()

	reg := layout.NewRegistry()
	reg.SetCoreRootPath("/data/core")
	require.NoError(t, reg.SetNamingScheme(scheme, false))

	return reg
}

func newMultiRegistry(t *testing.T, scheme string) *layout.Registry {
	t.Helper()

	reg := newRegistry(t, scheme)
	reg.SetStorageRootPath("a", "/data/a")
	reg.SetStorageRootPath("b", "/data/b")
	require.NoError(t, reg.SetCurrentWriteStorageID("a"))

	return reg
}

// TestMarshalDefaultIsEmpty 测试默认方案单存储池时不产生任何自定义数据.
func TestMarshalDefaultIsEmpty(t *testing.T) {
	reg := newRegistry(t, layout.DefaultNamingScheme)

	rec, err := layout.CreateForWriting(reg, testUUID, "")
	require.NoError(t, err)

	data, err := rec.Marshal(reg)
	require.NoError(t, err)
	assert.Empty(t, data)

	abs, err := rec.AbsolutePath(reg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/core", "00", "f7", testUUID), abs)
}

// TestMarshalMultipleStorages 测试多存储池时只写入存储池 id.
func TestMarshalMultipleStorages(t *testing.T) {
	reg := newMultiRegistry(t, layout.DefaultNamingScheme)

	rec, err := layout.CreateForWriting(reg, testUUID, "")
	require.NoError(t, err)

	data, err := rec.Marshal(reg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"o":true,"s":"a"}`, string(data))

	parsed, err := layout.ParseRecord(testUUID, data)
	require.NoError(t, err)

	abs, err := parsed.AbsolutePath(reg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/a", "00", "f7", testUUID), abs)
}

// TestRecordRoundTrip 测试自定义方案下记录序列化后位置不变.
func TestRecordRoundTrip(t *testing.T) {
	reg := newMultiRegistry(t, "{PatientID}/{UUID}{.ext}")

	rel, err := reg.RelativePathFor(layout.Tags{layout.TagPatientID: "P1"}, testUUID, layout.ContentDicom, false)
	require.NoError(t, err)

	rec, err := layout.CreateForWriting(reg, testUUID, rel)
	require.NoError(t, err)

	data, err := rec.Marshal(reg)
	require.NoError(t, err)

	parsed, err := layout.ParseRecord(testUUID, data)
	require.NoError(t, err)

	want, err := rec.AbsolutePath(reg)
	require.NoError(t, err)

	got, err := parsed.AbsolutePath(reg)
	require.NoError(t, err)

	assert.Equal(t, want, got)
	assert.Equal(t, filepath.Join("/data/a", "P1", testUUID+".dcm"), got)
	assert.True(t, parsed.IsOwner())
	assert.Equal(t, "a", parsed.StorageID())
}

// TestCreateForWritingSuspiciousPath 测试可疑路径回退到带前缀的回退路径.
func TestCreateForWritingSuspiciousPath(t *testing.T) {
	reg := newRegistry(t, "{PatientID}/{UUID}{.ext}")
	reg.SetOtherAttachmentsPrefix("fallback")

	rel, err := reg.RelativePathFor(layout.Tags{layout.TagPatientID: "../../etc"}, testUUID, layout.ContentDicom, false)
	require.NoError(t, err)

	rec, err := layout.CreateForWriting(reg, testUUID, rel)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("fallback", "00", "f7", testUUID), rec.Path())
	assert.Equal(t, layout.FallbackSuspicious, rec.Fallback())

	// 回退路径再次校验得到同一路径
	again, err := layout.CreateForWriting(reg, testUUID, rec.Path())
	require.NoError(t, err)
	assert.Equal(t, rec.Path(), again.Path())
	assert.Empty(t, again.Fallback())
}

// TestMarshalDefaultSchemePrefixedFallback 测试默认方案下回退到带前缀的路径时记录保存路径.
func TestMarshalDefaultSchemePrefixedFallback(t *testing.T) {
	reg := layout.NewRegistry()
	reg.SetCoreRootPath("/data/key=value")
	reg.SetOtherAttachmentsPrefix("other")
	require.NoError(t, reg.SetNamingScheme(layout.DefaultNamingScheme, false))

	rec, err := layout.CreateForWriting(reg, testUUID, "")
	require.NoError(t, err)
	assert.Equal(t, layout.FallbackSuspicious, rec.Fallback())

	want := filepath.Join("/data/key=value", "other", "00", "f7", testUUID)

	abs, err := rec.AbsolutePath(reg)
	require.NoError(t, err)
	assert.Equal(t, want, abs)

	data, err := rec.Marshal(reg)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	parsed, err := layout.ParseRecord(testUUID, data)
	require.NoError(t, err)

	abs, err = parsed.AbsolutePath(reg)
	require.NoError(t, err)
	assert.Equal(t, want, abs)
}

// TestCreateForWritingTooLong 测试超长路径回退.
func TestCreateForWritingTooLong(t *testing.T) {
	reg := newRegistry(t, "{PatientID}/{UUID}{.ext}")

	rel, err := reg.RelativePathFor(layout.Tags{layout.TagPatientID: strings.Repeat("A", 300)}, testUUID, layout.ContentDicom, false)
	require.NoError(t, err)

	rec, err := layout.CreateForWriting(reg, testUUID, rel)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("00", "f7", testUUID), rec.Path())
	assert.Equal(t, layout.FallbackTooLong, rec.Fallback())
}

// TestParseRecordErrors 测试格式错误的记录.
func TestParseRecordErrors(t *testing.T) {
	_, err := layout.ParseRecord(testUUID, []byte(`{"o":true}`))
	require.ErrorIs(t, err, layout.ErrMissingVersion)

	_, err = layout.ParseRecord(testUUID, []byte(`{"v":2,"o":true}`))
	require.ErrorIs(t, err, layout.ErrUnknownVersion)

	_, err = layout.ParseRecord(testUUID, []byte(`{"v":1,"o":false}`))
	require.ErrorIs(t, err, layout.ErrAdoptedWithoutPath)

	_, err = layout.ParseRecord(testUUID, []byte(`{"v":1}`))
	require.ErrorIs(t, err, layout.ErrAdoptedWithoutPath)
}

// TestAdoptedRecord 测试采纳文件的记录保存绝对路径.
func TestAdoptedRecord(t *testing.T) {
	reg := newRegistry(t, layout.DefaultNamingScheme)

	rec := layout.CreateForAdoption("/mnt/import/a.dcm", false)

	data, err := rec.Marshal(reg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1,"o":false,"p":"/mnt/import/a.dcm"}`, string(data))

	parsed, err := layout.ParseRecord(testUUID, data)
	require.NoError(t, err)
	assert.True(t, parsed.IsAdopted())
	assert.False(t, parsed.IsOwner())
	assert.True(t, parsed.HasAbsolutePath())

	abs, err := parsed.AbsolutePath(reg)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/import/a.dcm", abs)
}

// TestCreateForMoveStorage 测试移动只更换存储池.
func TestCreateForMoveStorage(t *testing.T) {
	reg := newMultiRegistry(t, "{PatientID}/{UUID}{.ext}")

	rec, err := layout.CreateForWriting(reg, testUUID, filepath.Join("P1", testUUID+".dcm"))
	require.NoError(t, err)

	moved := layout.CreateForMoveStorage(rec, "b")
	assert.Equal(t, rec.Path(), moved.Path())
	assert.Equal(t, rec.UUID(), moved.UUID())
	assert.Equal(t, "b", moved.StorageID())

	abs, err := moved.AbsolutePath(reg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/b", "P1", testUUID+".dcm"), abs)
}
