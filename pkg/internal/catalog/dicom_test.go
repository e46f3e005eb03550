package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/advstorage/pkg/internal/catalog"
	"github.com/yeisme/advstorage/pkg/internal/dicomtest"
	"github.com/yeisme/advstorage/pkg/layout"
)

// TestParseTags 测试从 DICOM 文件提取主要标签.
func TestParseTags(t *testing.T) {
	tags, err := catalog.ParseTags(dicomtest.Build(dicomtest.Sample))
	require.NoError(t, err)

	assert.Equal(t, "PAT-001", tags.String(layout.TagPatientID))
	assert.Equal(t, "DOE^JOHN", tags.String(layout.TagPatientName))
	assert.Equal(t, "1.2.3.4", tags.String(layout.TagStudyInstanceUID))
	assert.Equal(t, "1.2.3.4.5", tags.String(layout.TagSeriesInstanceUID))
	assert.Equal(t, "1.2.3.4.5.6", tags.String(layout.TagSOPInstanceUID))
	assert.Equal(t, "20240131", tags.String(layout.TagStudyDate))

	n, ok := tags.Int(layout.TagInstanceNumber)
	assert.True(t, ok)
	assert.Equal(t, "12", n)
}

// TestParseTagsRejectsNonDicom 测试非 DICOM 数据.
func TestParseTagsRejectsNonDicom(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("hello"), make([]byte, 200)} {
		_, err := catalog.ParseTags(data)
		assert.ErrorIs(t, err, catalog.ErrNotDicom)
	}
}
