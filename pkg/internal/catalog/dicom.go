package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/yeisme/advstorage/pkg/layout"
)

// ErrNotDicom 数据不是 DICOM Part 10 文件.
var ErrNotDicom = errors.New("not a DICOM file")

const (
	preambleSize = 128
	magic        = "DICM"
)

// indexedTags 入库时提取的标签，也是命名模板可用的标签.
var indexedTags = map[string]tag.Tag{
	layout.TagPatientID:         tag.PatientID,
	layout.TagPatientName:       tag.PatientName,
	layout.TagPatientSex:        tag.PatientSex,
	layout.TagPatientBirthDate:  tag.PatientBirthDate,
	layout.TagStudyInstanceUID:  tag.StudyInstanceUID,
	layout.TagStudyDate:         tag.StudyDate,
	layout.TagStudyID:           tag.StudyID,
	layout.TagStudyDescription:  tag.StudyDescription,
	layout.TagAccessionNumber:   tag.AccessionNumber,
	layout.TagSeriesInstanceUID: tag.SeriesInstanceUID,
	layout.TagSeriesDate:        tag.SeriesDate,
	layout.TagSeriesDescription: tag.SeriesDescription,
	layout.TagSOPInstanceUID:    tag.SOPInstanceUID,
	layout.TagSeriesNumber:      tag.SeriesNumber,
	layout.TagInstanceNumber:    tag.InstanceNumber,
}

// ParseTags 解析 DICOM 文件并提取主要标签，像素数据不读取.
func ParseTags(data []byte) (layout.Tags, error) {
	if len(data) < preambleSize+len(magic) || string(data[preambleSize:preambleSize+len(magic)]) != magic {
		return nil, ErrNotDicom
	}

	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotDicom, err)
	}

	tags := layout.Tags{}

	for name, t := range indexedTags {
		elem, err := ds.FindElementByTag(t)
		if err != nil {
			continue
		}

		if v, ok := elementString(elem); ok {
			tags[name] = v
		}
	}

	if tags.String(layout.TagSOPInstanceUID) == "" {
		return nil, fmt.Errorf("%w: missing SOPInstanceUID", ErrNotDicom)
	}

	return tags, nil
}

// elementString 把元素值转成文本，多值用 '\' 连接.
func elementString(elem *dicom.Element) (string, bool) {
	switch elem.Value.ValueType() {
	case dicom.Strings:
		vals, ok := elem.Value.GetValue().([]string)
		if !ok || len(vals) == 0 {
			return "", false
		}

		for i := range vals {
			vals[i] = strings.TrimRight(vals[i], " \x00")
		}

		s := strings.Join(vals, `\`)

		return s, s != ""
	case dicom.Ints:
		vals, ok := elem.Value.GetValue().([]int)
		if !ok || len(vals) == 0 {
			return "", false
		}

		return strconv.Itoa(vals[0]), true
	default:
		return "", false
	}
}
