package layout

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultNamingScheme 哨兵值：不使用模板，沿用宿主原生布局.
const DefaultNamingScheme = "OrthancDefault"

// 直接复制的字符串标签及其缺省值.
var stringTagFallbacks = map[string]string{
	TagPatientID:         "NO_PATIENT_ID",
	TagPatientName:       "NO_PATIENT_NAME",
	TagPatientSex:        "NO_PATIENT_SEX",
	TagPatientBirthDate:  "NO_PATIENT_BIRTH_DATE",
	TagStudyInstanceUID:  "NO_STUDY_INSTANCE_UID",
	TagStudyDate:         "NO_STUDY_DATE",
	TagStudyID:           "NO_STUDY_ID",
	TagStudyDescription:  "NO_STUDY_DESCRIPTION",
	TagAccessionNumber:   "NO_ACCESSION_NUMBER",
	TagSeriesInstanceUID: "NO_SERIES_INSTANCE_UID",
	TagSeriesDate:        "NO_SERIES_DATE",
	TagSeriesDescription: "NO_SERIES_DESCRIPTION",
	TagSOPInstanceUID:    "NO_SOP_INSTANCE_UID",
}

var intTagFallbacks = map[string]string{
	TagSeriesNumber:   "NO_SERIES_NUMBER",
	TagInstanceNumber: "NO_INSTANCE_NUMBER",
}

// 每个宿主标识除了 DICOM 形式外还可以用哈希形式出现.
var uniqueIdentifierForms = [][]string{
	{"PatientID", "OrthancPatientID"},
	{"StudyInstanceUID", "OrthancStudyID"},
	{"SeriesInstanceUID", "OrthancSeriesID"},
	{"SOPInstanceUID", "OrthancInstanceID"},
}

// ValidateNamingScheme 在配置阶段检查模板能否保证路径唯一.
//
// OverwriteInstances 开启时同一实例会被重写，模板必须包含 {UUID}；
// 关闭时包含 {UUID}、{OrthancInstanceID} 或全部四个标识之一即可.
func ValidateNamingScheme(scheme string, overwriteInstances bool) error {
	if scheme == DefaultNamingScheme {
		return nil
	}

	if strings.TrimSpace(scheme) == "" {
		return fmt.Errorf("%w: empty scheme", ErrInvalidNamingScheme)
	}

	hasUUID := strings.Contains(scheme, "{UUID}")

	if overwriteInstances {
		if !hasUUID {
			return fmt.Errorf("%w: the scheme must contain {UUID} when OverwriteInstances is enabled", ErrInvalidNamingScheme)
		}

		return nil
	}

	if hasUUID || strings.Contains(scheme, "{OrthancInstanceID}") {
		return nil
	}

	for _, forms := range uniqueIdentifierForms {
		found := false

		for _, f := range forms {
			if strings.Contains(scheme, f) {
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("%w: the scheme must contain either {UUID}, {OrthancInstanceID} "+
				"or the 4 identifiers {PatientID}, {StudyInstanceUID}, {SeriesInstanceUID}, {SOPInstanceUID} (missing %s)",
				ErrInvalidNamingScheme, forms[0])
		}
	}

	return nil
}

// RelativePath 按内容类型选择布局：只有带标签的 DICOM 内容使用模板，其余一律使用回退布局.
func RelativePath(scheme string, tags Tags, id string, ct ContentType, compressed bool, otherPrefix string) (string, error) {
	if ct != ContentDicom {
		return prefixedLegacyPath(otherPrefix, id)
	}

	if tags == nil {
		return LegacyRelativePath(id)
	}

	return Expand(scheme, tags, id, ct, compressed), nil
}

// Expand 展开命名模板.模板按 '/' 切分，每段独立展开，未知占位符原样保留.
func Expand(scheme string, tags Tags, id string, ct ContentType, compressed bool) string {
	exp := &expansion{tags: tags, uuid: id, contentType: ct, compressed: compressed}

	segments := strings.Split(scheme, "/")
	out := make([]string, 0, len(segments))

	for _, seg := range segments {
		expanded := exp.segment(seg)
		if expanded == "" {
			continue
		}

		out = append(out, expanded)
	}

	// 不能用 filepath.Join，它会把 '..' 清理掉，导致写入前检查失效
	return strings.Join(out, string(filepath.Separator))
}

type expansion struct {
	tags        Tags
	uuid        string
	contentType ContentType
	compressed  bool

	hashed bool
	ids    map[string]string
}

func (e *expansion) segment(seg string) string {
	var b strings.Builder

	for {
		start := strings.IndexByte(seg, '{')
		if start < 0 {
			b.WriteString(seg)
			break
		}

		end := strings.IndexByte(seg[start:], '}')
		if end < 0 {
			b.WriteString(seg)
			break
		}

		end += start

		b.WriteString(seg[:start])

		if v, ok := e.resolve(seg[start+1 : end]); ok {
			b.WriteString(v)
		} else {
			b.WriteString(seg[start : end+1])
		}

		seg = seg[end+1:]
	}

	return b.String()
}

func (e *expansion) resolve(token string) (string, bool) {
	if fallback, ok := stringTagFallbacks[token]; ok {
		if v := e.tags.String(token); v != "" {
			return v, true
		}

		return fallback, true
	}

	if _, ok := intTagFallbacks[token]; ok {
		return e.intTag(token, 0), true
	}

	switch token {
	case "UUID":
		return e.uuid, true
	case ".ext":
		return e.contentType.Extension(e.compressed), true
	case "split(StudyDate)":
		return splitDate(e.tags.String(TagStudyDate), stringTagFallbacks[TagStudyDate]), true
	case "split(PatientBirthDate)":
		return splitDate(e.tags.String(TagPatientBirthDate), stringTagFallbacks[TagPatientBirthDate]), true
	}

	if id, ok := e.identifier(token); ok {
		return id, true
	}

	if fn, arg, ok := call(token); ok {
		switch fn {
		case "pad4", "pad6", "pad8":
			if _, known := intTagFallbacks[arg]; !known {
				return "", false
			}

			width, _ := strconv.Atoi(fn[3:])

			return e.intTag(arg, width), true
		case "01", "23":
			id, known := e.identifier(arg)
			if !known || len(id) < 4 {
				return "", false
			}

			if fn == "01" {
				return id[0:2], true
			}

			return id[2:4], true
		}
	}

	return "", false
}

// identifier 返回 UUID 或四个宿主哈希标识之一.
func (e *expansion) identifier(name string) (string, bool) {
	if name == "UUID" {
		return e.uuid, true
	}

	switch name {
	case "OrthancPatientID", "OrthancStudyID", "OrthancSeriesID", "OrthancInstanceID":
	default:
		return "", false
	}

	if !e.hashed {
		h := NewInstanceHasher(e.tags)
		e.ids = map[string]string{
			"OrthancPatientID":  h.HashPatient(),
			"OrthancStudyID":    h.HashStudy(),
			"OrthancSeriesID":   h.HashSeries(),
			"OrthancInstanceID": h.HashInstance(),
		}
		e.hashed = true
	}

	return e.ids[name], true
}

func (e *expansion) intTag(name string, width int) string {
	v, ok := e.tags.Int(name)
	if !ok {
		return intTagFallbacks[name]
	}

	if width > len(v) {
		v = strings.Repeat("0", width-len(v)) + v
	}

	return v
}

// call 解析形如 fn(arg) 的占位符.
func call(token string) (string, string, bool) {
	open := strings.IndexByte(token, '(')
	if open <= 0 || !strings.HasSuffix(token, ")") {
		return "", "", false
	}

	return token[:open], token[open+1 : len(token)-1], true
}

func splitDate(date, fallback string) string {
	const dateLength = 8
	if len(date) != dateLength {
		return fallback
	}

	return date[0:4] + string(filepath.Separator) + date[4:6] + string(filepath.Separator) + date[6:8]
}
