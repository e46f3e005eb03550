package layout

import (
	"encoding/json"
	"strconv"
)

// 模板里使用的 DICOM 标签名.
const (
	TagPatientID         = "PatientID"
	TagPatientName       = "PatientName"
	TagPatientSex        = "PatientSex"
	TagPatientBirthDate  = "PatientBirthDate"
	TagStudyInstanceUID  = "StudyInstanceUID"
	TagStudyDate         = "StudyDate"
	TagStudyID           = "StudyID"
	TagStudyDescription  = "StudyDescription"
	TagAccessionNumber   = "AccessionNumber"
	TagSeriesInstanceUID = "SeriesInstanceUID"
	TagSeriesDate        = "SeriesDate"
	TagSeriesDescription = "SeriesDescription"
	TagSOPInstanceUID    = "SOPInstanceUID"
	TagSeriesNumber      = "SeriesNumber"
	TagInstanceNumber    = "InstanceNumber"
)

// Tags 简化后的 DICOM 标签集合，键为标签名，值为字符串或数字.
type Tags map[string]any

// String 返回字符串标签的值，不存在或不是字符串时返回空串.
func (t Tags) String(name string) string {
	if t == nil {
		return ""
	}

	if s, ok := t[name].(string); ok {
		return s
	}

	return ""
}

// Int 返回整数标签的文本形式，值可以是数字或字符串.
func (t Tags) Int(name string) (string, bool) {
	if t == nil {
		return "", false
	}

	v, ok := t[name]
	if !ok {
		return "", false
	}

	var s string

	switch n := v.(type) {
	case string:
		s = n
	case int:
		s = strconv.Itoa(n)
	case int32:
		s = strconv.FormatInt(int64(n), 10)
	case int64:
		s = strconv.FormatInt(n, 10)
	case uint16:
		s = strconv.FormatUint(uint64(n), 10)
	case float64:
		s = strconv.FormatInt(int64(n), 10)
	case json.Number:
		s = n.String()
	default:
		return "", false
	}

	return s, s != ""
}
