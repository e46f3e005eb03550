package layout_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/layout"
)

const testUUID = "00f7fd8b-47bd-8c3a-ff91-7804d180cdbc"

// TestExpandUUIDLayout 测试以 UUID 切片组成的模板.
func TestExpandUUIDLayout(t *testing.T) {
	got := layout.Expand("{01(UUID)}/{23(UUID)}/{UUID}{.ext}", layout.Tags{}, testUUID, layout.ContentDicom, false)
	assert.Equal(t, filepath.Join("00", "f7", testUUID+".dcm"), got)
}

// TestExpandFallbacks 测试缺失标签时使用缺省值.
func TestExpandFallbacks(t *testing.T) {
	tags := layout.Tags{
		layout.TagPatientID:    "P1",
		layout.TagSeriesNumber: 7,
		layout.TagStudyDate:    "",
	}

	got := layout.Expand("{PatientID}/{StudyDate}/{pad4(SeriesNumber)}/{InstanceNumber}/{UUID}{.ext}",
		tags, testUUID, layout.ContentDicom, true)

	assert.Equal(t, filepath.Join("P1", "NO_STUDY_DATE", "0007", "NO_INSTANCE_NUMBER", testUUID+".dcm.cmp"), got)
}

// TestExpandSplitDateAndPadding 测试日期拆分与字符串数字的补零.
func TestExpandSplitDateAndPadding(t *testing.T) {
	tags := layout.Tags{
		layout.TagStudyDate:        "20240315",
		layout.TagInstanceNumber:   "12",
		layout.TagPatientBirthDate: "1980",
	}

	got := layout.Expand("{split(StudyDate)}/{split(PatientBirthDate)}/{pad6(InstanceNumber)}",
		tags, testUUID, layout.ContentDicom, false)

	assert.Equal(t, filepath.Join("2024", "03", "15", "NO_PATIENT_BIRTH_DATE", "000012"), got)
}

// TestExpandUnknownTokenKeptLiteral 测试未知占位符原样保留.
func TestExpandUnknownTokenKeptLiteral(t *testing.T) {
	got := layout.Expand("{Foo}/x{UUID}", nil, testUUID, layout.ContentUnknown, false)
	assert.Equal(t, filepath.Join("{Foo}", "x"+testUUID), got)
}

// TestExpandOrthancIdentifiers 测试哈希标识及其切片.
func TestExpandOrthancIdentifiers(t *testing.T) {
	tags := layout.Tags{
		layout.TagPatientID:         "P1",
		layout.TagStudyInstanceUID:  "1.2",
		layout.TagSeriesInstanceUID: "1.2.3",
		layout.TagSOPInstanceUID:    "1.2.3.4",
	}

	h := layout.NewInstanceHasher(tags)
	id := h.HashInstance()

	got := layout.Expand("{01(OrthancInstanceID)}/{23(OrthancInstanceID)}/{OrthancInstanceID}", tags, testUUID, layout.ContentDicom, false)
	assert.Equal(t, filepath.Join(id[0:2], id[2:4], id), got)
}

// TestRelativePathLegacyFallback 测试非 DICOM 内容和无标签内容走回退布局.
func TestRelativePathLegacyFallback(t *testing.T) {
	scheme := "{PatientID}/{UUID}{.ext}"

	got, err := layout.RelativePath(scheme, layout.Tags{layout.TagPatientID: "P"}, testUUID, layout.ContentDicomAsJSON, false, "other")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("other", "00", "f7", testUUID), got)

	got, err = layout.RelativePath(scheme, nil, testUUID, layout.ContentDicom, false, "other")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("00", "f7", testUUID), got)

	_, err = layout.RelativePath(scheme, nil, "not-a-uuid", layout.ContentDicom, false, "")
	require.ErrorIs(t, err, layout.ErrInvalidUUID)
}

// TestLegacyRelativePathDeterministic 测试回退路径只取决于 UUID.
func TestLegacyRelativePathDeterministic(t *testing.T) {
	a, err := layout.LegacyRelativePath(testUUID)
	require.NoError(t, err)

	b, err := layout.LegacyRelativePath(testUUID)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, filepath.Join("00", "f7", testUUID), a)
}

// TestValidateNamingScheme 测试命名方案的唯一性约束.
func TestValidateNamingScheme(t *testing.T) {
	cases := []struct {
		name      string
		scheme    string
		overwrite bool
		ok        bool
	}{
		{"default", layout.DefaultNamingScheme, true, true},
		{"uuid with overwrite", "{PatientID}/{UUID}", true, true},
		{"no uuid with overwrite", "{OrthancInstanceID}", true, false},
		{"instance id", "{OrthancInstanceID}", false, true},
		{"four dicom ids", "{PatientID}/{StudyInstanceUID}/{SeriesInstanceUID}/{SOPInstanceUID}", false, true},
		{"mixed ids", "{OrthancPatientID}/{OrthancStudyID}/{SeriesInstanceUID}/{SOPInstanceUID}", false, true},
		{"missing ids", "{PatientID}/{StudyInstanceUID}", false, false},
		{"empty", "", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := layout.ValidateNamingScheme(tc.scheme, tc.overwrite)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, layout.ErrInvalidNamingScheme)
			}
		})
	}
}

// TestCheckPathSafety 测试可疑路径与超长路径.
func TestCheckPathSafety(t *testing.T) {
	assert.NoError(t, layout.CheckPathSafety("/data/a/b.dcm", 256))
	assert.ErrorIs(t, layout.CheckPathSafety("/data/../b.dcm", 256), layout.ErrSuspiciousPath)
	assert.ErrorIs(t, layout.CheckPathSafety("/data/a=b", 256), layout.ErrSuspiciousPath)
	assert.ErrorIs(t, layout.CheckPathSafety("/data/abcdef", 8), layout.ErrPathTooLong)
}

// TestInstanceHasherFormat 测试资源标识格式.
func TestInstanceHasherFormat(t *testing.T) {
	h := layout.InstanceHasher{PatientID: "P", StudyInstanceUID: "S", SeriesInstanceUID: "SE", SOPInstanceUID: "I"}

	for _, id := range []string{h.HashPatient(), h.HashStudy(), h.HashSeries(), h.HashInstance()} {
		assert.Len(t, id, 44)
		assert.Regexp(t, `^[0-9a-f]{8}(-[0-9a-f]{8}){4}$`, id)
	}

	assert.NotEqual(t, h.HashPatient(), h.HashStudy())
	assert.Equal(t, h.HashInstance(), layout.InstanceHasher{PatientID: "P", StudyInstanceUID: "S", SeriesInstanceUID: "SE", SOPInstanceUID: "I"}.HashInstance())
}
